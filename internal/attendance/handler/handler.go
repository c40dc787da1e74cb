package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/recorder"
	"ponto/pkg/platform/httputil"
	"ponto/pkg/requestcontext"
)

// Recorder records one clock-event submission. Reject closes out a
// submission that failed before it could be decoded.
type Recorder interface {
	Record(ctx context.Context, req models.ClockInRequest) (*models.Receipt, error)
	Reject(ctx context.Context, err error)
}

// ConsentService records the monitoring-terms acknowledgement.
type ConsentService interface {
	Acknowledge(ctx context.Context, rawLegalID string) (*consent.Result, error)
}

// Verifier checks a receipt against the stored event.
type Verifier interface {
	Verify(ctx context.Context, req recorder.VerifyRequest) (*recorder.Verification, error)
}

// Handler serves the attendance endpoints.
type Handler struct {
	recorder    Recorder
	consent     ConsentService
	verifier    Verifier
	logger      *slog.Logger
	maxEvidence int64
}

// New creates a Handler. maxEvidence bounds how much of the photo part is
// read into memory; the recorder still rejects anything above its own limit.
func New(rec Recorder, consent ConsentService, verifier Verifier, logger *slog.Logger, maxEvidence int64) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		recorder:    rec,
		consent:     consent,
		verifier:    verifier,
		logger:      logger,
		maxEvidence: maxEvidence,
	}
}

// Register registers the attendance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/attendance", func(r chi.Router) {
		r.Post("/clock-events", h.handleClockEvent)
		r.Post("/consents", h.handleConsent)
		r.Post("/receipts/verify", h.handleVerify)
	})
}

func (h *Handler) handleClockEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := h.decodeClockIn(r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode clock event form",
			"request_id", requestID,
			"error", err,
		)
		h.recorder.Reject(ctx, err)
		httputil.WriteError(w, err)
		return
	}

	rcpt, err := h.recorder.Record(ctx, *req)
	if err != nil {
		// The recorder logs every outcome itself.
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toClockEventResponse(rcpt))
}

func (h *Handler) handleConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[consentRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	res, err := h.consent.Acknowledge(ctx, req.LegalID)
	if err != nil {
		h.logger.WarnContext(ctx, "consent acknowledgement failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toConsentResponse(res))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[recorder.VerifyRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	res, err := h.verifier.Verify(ctx, *req)
	if err != nil {
		h.logger.InfoContext(ctx, "receipt verification failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
