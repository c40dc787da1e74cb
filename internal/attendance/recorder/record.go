package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/device"
	"ponto/internal/attendance/evidence"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/notify"
	"ponto/internal/attendance/protocol"
	dErrors "ponto/pkg/domain-errors"
	"ponto/pkg/platform/sentinel"
	"ponto/pkg/platform/tracer"
	"ponto/pkg/requestcontext"
)

const commitFailedMessage = "could not record attendance; try again"

// attempt is what is known about a submission when it terminates.
type attempt struct {
	sub   *models.Submission
	id    *identity.Identity
	unit  *models.WorkUnit
	event *models.ClockEvent
}

// Record runs ParseRequest, ResolveIdentity, ResolveGeofence, CheckConsent,
// CheckDuplication, CaptureEvidence and Commit (which seals) in that order.
// Every stage can end the request with a rejection; every outcome is audited.
// Once Commit succeeds the event stands even if the caller goes away.
func (r *Recorder) Record(ctx context.Context, req models.ClockInRequest) (receipt *models.Receipt, err error) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, tracer.SpanRecord)
	a := &attempt{}
	defer func() {
		span.End(err)
		r.finish(ctx, a, err, started)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sub, err := req.Parse()
	if err != nil {
		return nil, err
	}
	a.sub = sub
	span.SetAttributes(tracer.String(tracer.AttrEventType, string(sub.Type)))

	id, err := r.resolveIdentity(ctx, sub)
	if err != nil {
		return nil, err
	}
	a.id = id
	r.repair(ctx, id.Match)

	fence, err := r.resolveFence(ctx, id, sub.Location)
	if err != nil {
		return nil, err
	}
	a.unit = fence.Unit
	span.SetAttributes(tracer.String(tracer.AttrUnitID, fence.Unit.ID.String()))

	if err := r.checkConsent(ctx, id.Employee.ID); err != nil {
		return nil, err
	}

	key := models.DedupKey{EmployeeID: id.Employee.ID, UnitID: fence.Unit.ID, Type: sub.Type}
	if err := r.checkDuplicate(ctx, key); err != nil {
		return nil, err
	}

	release, err := r.claim(ctx, key)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed && release != nil {
			r.releaseClaim(ctx, release)
		}
	}()

	day := dedup.LocalDay(r.now(ctx), r.guard.Location())
	stored, err := r.captureEvidence(ctx, id.Employee.ID, day, sub.Evidence)
	if err != nil {
		return nil, err
	}

	ev, err := r.commit(ctx, key, &models.ClockEvent{
		ID:              models.EventID(uuid.NewString()),
		EmployeeID:      id.Employee.ID,
		UnitID:          fence.Unit.ID,
		Type:            sub.Type,
		Location:        sub.Location,
		EvidenceRef:     stored.Ref,
		Device:          device.FromContext(ctx, sub.DeviceID),
		LegalIDSnapshot: id.LegalID,
		CredentialRef:   id.CredentialRef,
	})
	if err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "evidence stored without event", "evidence_ref", stored.Ref, "error", err)
		}
		return nil, err
	}
	committed = true
	a.event = ev

	post := context.WithoutCancel(ctx)
	r.enqueueNotification(post, span, ev, id.Employee, fence.Unit)
	return r.receipt(post, ev, id.Employee, fence.Unit), nil
}

// now is server time at microsecond precision, the resolution stores keep.
func (r *Recorder) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
}

// stage runs fn inside a span and records its latency.
func (r *Recorder) stage(ctx context.Context, name string, fn func(ctx context.Context, span tracer.Span) error) error {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, name)
	err := fn(ctx, span)
	switch kind := models.KindOf(err); {
	case kind == "":
	case kind.Code() == dErrors.CodeInternal:
		span.SetAttributes(tracer.String(tracer.AttrFailureKind, string(kind)))
	default:
		span.SetAttributes(tracer.String(tracer.AttrRejectReason, string(kind)))
	}
	span.End(err)
	r.metrics.ObserveStage(name, start)
	return err
}

func (r *Recorder) resolveIdentity(ctx context.Context, sub *models.Submission) (*identity.Identity, error) {
	var id *identity.Identity
	err := r.stage(ctx, tracer.SpanResolveIdentity, func(ctx context.Context, span tracer.Span) error {
		var err error
		id, err = r.identity.Resolve(ctx, sub.Code, sub.LegalID)
		if err != nil {
			return err
		}
		span.SetAttributes(
			tracer.String(tracer.AttrCredentialMode, string(id.Mode)),
			tracer.String(tracer.AttrLegalIDHash, tracer.HashLegalID(id.LegalID)),
		)
		return nil
	})
	return id, err
}

// repair normalizes a legacy legal ID. It never fails the request.
func (r *Recorder) repair(ctx context.Context, m *identity.Match) {
	if !m.NeedsRepair() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.asideTimeout)
	defer cancel()
	if err := r.identity.Repair(ctx, m); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "legal id repair failed", "employee_id", m.Employee.ID.String(), "error", err)
	}
}

func (r *Recorder) resolveFence(ctx context.Context, id *identity.Identity, point models.GeoPoint) (*identity.FenceMatch, error) {
	var match *identity.FenceMatch
	err := r.stage(ctx, tracer.SpanResolveFence, func(_ context.Context, span tracer.Span) error {
		var err error
		match, err = r.identity.ResolveUnit(id, point)
		if err != nil {
			return err
		}
		span.SetAttributes(tracer.Float64(tracer.AttrDistanceMeters, match.DistanceMeters))
		if r.metrics != nil {
			r.metrics.FenceDistance.Observe(match.DistanceMeters)
		}
		return nil
	})
	return match, err
}

func (r *Recorder) checkConsent(ctx context.Context, employeeID models.EmployeeID) error {
	return r.stage(ctx, tracer.SpanCheckConsent, func(ctx context.Context, _ tracer.Span) error {
		return r.consent.Check(ctx, employeeID)
	})
}

func (r *Recorder) checkDuplicate(ctx context.Context, key models.DedupKey) error {
	return r.stage(ctx, tracer.SpanCheckDuplicate, func(ctx context.Context, _ tracer.Span) error {
		return r.guard.Check(ctx, r.events, key, r.now(ctx))
	})
}

// claim reserves the window across replicas. An unreachable claim store is
// logged and skipped: the commit re-check still holds.
func (r *Recorder) claim(ctx context.Context, key models.DedupKey) (func(context.Context) error, error) {
	if r.claimer == nil || r.guard.Window() <= 0 {
		return nil, nil
	}
	release, ok, err := r.claimer.Claim(ctx, key, r.guard.Window())
	if err != nil {
		if r.metrics != nil {
			r.metrics.ClaimErrors.Inc()
		}
		if r.logger != nil {
			r.logger.WarnContext(ctx, "duplicate window claim unavailable", "error", err)
		}
		return nil, nil
	}
	if !ok {
		return nil, models.Reject(models.KindDuplicateSubmission,
			fmt.Sprintf("this %s is already being recorded; wait before trying again", key.Type.Label()),
			map[string]any{
				"tipoBatido":        string(key.Type),
				"retryAfterSeconds": int(r.guard.Window().Seconds()),
			})
	}
	return release, nil
}

func (r *Recorder) releaseClaim(ctx context.Context, release func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.asideTimeout)
	defer cancel()
	if err := release(ctx); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "duplicate window release failed", "error", err)
	}
}

func (r *Recorder) captureEvidence(ctx context.Context, employeeID models.EmployeeID, day string, up *models.EvidenceUpload) (*evidence.Stored, error) {
	var out *evidence.Stored
	err := r.stage(ctx, tracer.SpanCaptureEvidence, func(ctx context.Context, span tracer.Span) error {
		s, err := r.evidence.Capture(ctx, employeeID, day, up)
		if err != nil {
			return err
		}
		span.SetAttributes(tracer.Int64(tracer.AttrEvidenceBytes, int64(s.Size)))
		if r.metrics != nil {
			r.metrics.EvidenceBytes.Observe(float64(s.Size))
		}
		out = s
		return nil
	})
	return out, err
}

// commit re-checks duplication, stamps the server time and seals inside the
// store's atomic unit, so the digest covers exactly what is written.
func (r *Recorder) commit(ctx context.Context, key models.DedupKey, draft *models.ClockEvent) (*models.ClockEvent, error) {
	var ev *models.ClockEvent
	err := r.stage(ctx, tracer.SpanCommit, func(ctx context.Context, _ tracer.Span) error {
		var err error
		ev, err = r.events.Commit(ctx, key, func(ctx context.Context, reader dedup.Reader) (*models.ClockEvent, error) {
			now := r.now(ctx)
			if err := r.guard.Check(ctx, reader, key, now); err != nil {
				return nil, err
			}
			sealed := *draft
			sealed.Timestamp = now
			sealed.LocalDay = dedup.LocalDay(now, r.guard.Location())
			if err := protocol.Seal(&sealed); err != nil {
				return nil, models.Fail(models.KindCommitFailed, err, commitFailedMessage)
			}
			return &sealed, nil
		})
		switch {
		case err == nil:
			return nil
		case models.KindOf(err) != "":
			return err
		case errors.Is(err, sentinel.ErrConflict):
			return models.Reject(models.KindAlreadyRecordedToday,
				fmt.Sprintf("%s already recorded today", key.Type.Label()),
				map[string]any{
					"tipoBatido": string(key.Type),
					"localDay":   dedup.LocalDay(r.now(ctx), r.guard.Location()),
				})
		default:
			return models.Fail(models.KindCommitFailed, err, commitFailedMessage)
		}
	})
	return ev, err
}

func (r *Recorder) enqueueNotification(ctx context.Context, span tracer.Span, ev *models.ClockEvent, emp *models.Employee, unit *models.WorkUnit) {
	if r.notifier == nil {
		return
	}
	queued := r.notifier.Enqueue(ctx, notify.Notification{
		EventID:      ev.ID,
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
		GroupID:      emp.GroupID,
		UnitID:       unit.ID,
		UnitName:     unit.Name,
		Type:         ev.Type,
		Timestamp:    ev.Timestamp,
		ProtocolCode: ev.ProtocolCode,
	})
	span.AddEvent(tracer.EventNotificationQueued, tracer.Bool("queued", queued))
}

func (r *Recorder) receipt(ctx context.Context, ev *models.ClockEvent, emp *models.Employee, unit *models.WorkUnit) *models.Receipt {
	out := &models.Receipt{
		EventID:      ev.ID,
		UnitName:     unit.Name,
		ProtocolCode: ev.ProtocolCode,
		Digest:       ev.Digest,
		Timestamp:    ev.Timestamp,
	}
	if emp != nil && emp.Name != "" {
		name := emp.Name
		out.EmployeeName = &name
	}
	if r.receipts != nil {
		token, err := r.receipts.Issue(ev)
		if err != nil {
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "receipt token not issued", "event_id", ev.ID.String(), "error", err)
			}
		} else {
			out.ReceiptToken = token
		}
	}
	return out
}
