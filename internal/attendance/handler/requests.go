package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ponto/internal/attendance/models"
)

// formMemory is the in-memory threshold for multipart parsing; larger parts
// spill to temporary files.
const formMemory = 4 << 20

const evidenceField = "foto"

type consentRequest struct {
	LegalID string `json:"cpf"`
}

func (r *consentRequest) Normalize() {
	r.LegalID = strings.TrimSpace(r.LegalID)
}

// decodeClockIn reads the multipart submission. Field validation is left to
// the recorder so that its rejection order holds; only transport failures
// are reported here.
func (h *Handler) decodeClockIn(r *http.Request) (*models.ClockInRequest, error) {
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, models.Reject(models.KindEvidenceTooLarge, "the photo is too large",
				map[string]any{"maxBytes": h.maxEvidence})
		}
		return nil, models.Reject(models.KindMalformedRequest, "expected a multipart form", nil)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup is best effort
	}()

	req := &models.ClockInRequest{
		Type:      r.FormValue("type"),
		Code:      r.FormValue("qrCode"),
		LegalID:   r.FormValue("cpf"),
		Latitude:  r.FormValue("latitude"),
		Longitude: r.FormValue("longitude"),
		Accuracy:  r.FormValue("accuracy"),
		DeviceID:  r.FormValue("deviceId"),
	}

	up, err := h.readEvidence(r)
	if err != nil {
		return nil, err
	}
	req.Evidence = up
	return req, nil
}

// readEvidence returns nil when no photo part was sent. At most maxEvidence+1
// bytes are read so oversize uploads are still detectable downstream.
func (h *Handler) readEvidence(r *http.Request) (*models.EvidenceUpload, error) {
	file, header, err := r.FormFile(evidenceField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.Reject(models.KindMalformedRequest, "could not read the photo", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxEvidence+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", evidenceField, err)
	}
	return &models.EvidenceUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}
