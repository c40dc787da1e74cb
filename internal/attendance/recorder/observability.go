package recorder

import (
	"context"
	"time"

	"ponto/internal/attendance/device"
	"ponto/internal/attendance/models"
	dErrors "ponto/pkg/domain-errors"
	"ponto/pkg/platform/audit"
	"ponto/pkg/platform/privacy"
	"ponto/pkg/requestcontext"
)

const (
	resourceClockEvent = "clock_event"
	resourceEmployee   = "employee"
)

// Reject terminates a submission the transport could not turn into a
// request: a body that is not a form, one over the size limit, an unreadable
// photo part. It gets the same log line, audit entry and metrics as a
// rejection raised inside Record.
func (r *Recorder) Reject(ctx context.Context, err error) {
	r.finish(ctx, &attempt{}, err, time.Now())
}

// finish emits exactly one audit entry, one log line and the outcome metrics
// for a terminated submission. It runs detached from the request context.
func (r *Recorder) finish(ctx context.Context, a *attempt, err error, started time.Time) {
	ctx = context.WithoutCancel(ctx)

	if r.metrics != nil {
		r.metrics.RecordDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			r.metrics.IncRejection(dErrors.ReasonOf(err))
		} else if a.id != nil && a.event != nil {
			r.metrics.IncRecorded(string(a.event.Type), string(a.id.Mode))
		}
	}

	r.log(ctx, a, err)
	r.audit(ctx, a, err)
}

func (r *Recorder) log(ctx context.Context, a *attempt, err error) {
	if r.logger == nil {
		return
	}
	attrs := []any{"ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx))}
	if a.sub != nil {
		attrs = append(attrs, "type", string(a.sub.Type))
	}
	if a.id != nil {
		attrs = append(attrs, "employee_id", a.id.Employee.ID.String(), "mode", string(a.id.Mode))
	}
	if a.unit != nil {
		attrs = append(attrs, "unit_id", a.unit.ID.String())
	}

	switch kind := models.KindOf(err); {
	case err == nil:
		attrs = append(attrs, "event_id", a.event.ID.String(), "protocol", a.event.ProtocolCode)
		r.logger.InfoContext(ctx, "clock event recorded", attrs...)
	case kind == "" || kind.Code() == dErrors.CodeInternal:
		attrs = append(attrs, "reason", dErrors.ReasonOf(err), "error", err)
		r.logger.ErrorContext(ctx, "clock event failed", attrs...)
	default:
		attrs = append(attrs, "reason", string(kind))
		r.logger.InfoContext(ctx, "clock event rejected", attrs...)
	}
}

func (r *Recorder) audit(ctx context.Context, a *attempt, err error) {
	if r.auditor == nil {
		return
	}
	ev := audit.Event{
		Timestamp:      r.now(ctx),
		Success:        err == nil,
		ActorIP:        requestcontext.ClientIP(ctx),
		ActorUserAgent: requestcontext.UserAgent(ctx),
		DeviceID:       requestcontext.DeviceID(ctx),
		RequestID:      requestcontext.RequestID(ctx),
		Metadata:       map[string]string{},
	}
	if fp := device.FingerprintOf(ctx); fp != "" {
		ev.Metadata["deviceFingerprint"] = fp
	}
	if a.sub != nil {
		ev.Metadata["type"] = string(a.sub.Type)
		if a.sub.DeviceID != "" {
			ev.DeviceID = a.sub.DeviceID
		}
	}
	if a.id != nil {
		ev.ActorID = a.id.Employee.ID.String()
		ev.Metadata["mode"] = string(a.id.Mode)
	}
	if a.unit != nil {
		ev.Metadata["unitId"] = a.unit.ID.String()
	}

	if err == nil {
		ev.Action = string(audit.ActionClockEventRecorded)
		ev.ResourceType = resourceClockEvent
		ev.ResourceID = a.event.ID.String()
		ev.Metadata["protocolCode"] = a.event.ProtocolCode
	} else {
		ev.Action = string(audit.ActionClockEventRejected)
		ev.Reason = dErrors.ReasonOf(err)
		ev.ResourceType = resourceEmployee
		ev.ResourceID = ev.ActorID
	}

	ctx, cancel := context.WithTimeout(ctx, r.asideTimeout)
	defer cancel()
	if emitErr := r.auditor.Emit(ctx, ev); emitErr != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "audit emit failed", "action", ev.Action, "error", emitErr)
	}
}
