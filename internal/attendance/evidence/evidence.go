// Package evidence validates and persists the photographic proof every clock
// event must carry.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"ponto/internal/attendance/models"
	"ponto/internal/platform/objectstore"
)

// DefaultMaxBytes is 2 MiB.
const DefaultMaxBytes int64 = 2 << 20

// PathPrefix is the purpose prefix of every evidence object path.
const PathPrefix = "clock-events"

// Stored is a persisted evidence object.
type Stored struct {
	Ref         string
	ContentType string
	Size        int
}

type Option func(*Capture)

func WithMaxBytes(n int64) Option {
	return func(c *Capture) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Capture) {
		c.logger = logger
	}
}

// WithIDGenerator replaces uuid.NewString for object names.
func WithIDGenerator(fn func() string) Option {
	return func(c *Capture) {
		if fn != nil {
			c.newID = fn
		}
	}
}

type Capture struct {
	store    objectstore.Store
	maxBytes int64
	newID    func() string
	logger   *slog.Logger
}

func New(store objectstore.Store, opts ...Option) *Capture {
	c := &Capture{store: store, maxBytes: DefaultMaxBytes, newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Capture) MaxBytes() int64 { return c.maxBytes }

// Validate checks presence, declared type, size and the sniffed content type.
// It returns the sniffed MIME.
func (c *Capture) Validate(up *models.EvidenceUpload) (*mimetype.MIME, error) {
	if up == nil || len(up.Data) == 0 {
		return nil, models.Reject(models.KindEvidenceRequired, "a photo is required to record attendance", nil)
	}
	if !isImage(declaredType(up.ContentType)) {
		return nil, models.Reject(models.KindEvidenceInvalidType, "the photo must be an image",
			map[string]any{"contentType": up.ContentType})
	}
	size := max(up.Size, int64(len(up.Data)))
	if size > c.maxBytes {
		return nil, models.Reject(models.KindEvidenceTooLarge, "the photo is too large",
			map[string]any{"maxBytes": c.maxBytes, "size": size})
	}

	detected := mimetype.Detect(up.Data)
	if !isImage(detected.String()) {
		return nil, models.Reject(models.KindEvidenceInvalidType, "the photo content is not an image",
			map[string]any{"contentType": detected.String()})
	}
	return detected, nil
}

// Capture validates up and writes it to
// clock-events/{employee}/{day}/{uuid}{ext}. Any store failure is fatal.
func (c *Capture) Capture(ctx context.Context, employeeID models.EmployeeID, day string, up *models.EvidenceUpload) (*Stored, error) {
	detected, err := c.Validate(up)
	if err != nil {
		return nil, err
	}

	objectPath := path.Join(PathPrefix, string(employeeID), day, c.newID()+detected.Extension())
	contentType, _, _ := strings.Cut(detected.String(), ";")
	ref, err := c.store.Put(ctx, objectPath, up.Data, contentType)
	if err != nil {
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "evidence store failed", "path", objectPath, "error", err)
		}
		return nil, models.Fail(models.KindEvidenceStoreFailed,
			fmt.Errorf("put %s: %w", objectPath, err), "could not store the photo; try again")
	}
	return &Stored{Ref: ref, ContentType: contentType, Size: len(up.Data)}, nil
}

func declaredType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return mediaType
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
