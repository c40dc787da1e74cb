package models

import (
	"errors"

	dErrors "ponto/pkg/domain-errors"
)

// Kind names a terminal rejection. It is the "code" clients see.
type Kind string

const (
	KindMalformedRequest     Kind = "malformed_request"
	KindGeoRequired          Kind = "geo_required"
	KindGeoInvalid           Kind = "geo_invalid"
	KindInvalidCredential    Kind = "invalid_credential"
	KindMissingIdentity      Kind = "missing_identity"
	KindInvalidIdentity      Kind = "invalid_identity"
	KindIdentityNotFound     Kind = "identity_not_found"
	KindNoUnitAssigned       Kind = "no_unit_assigned"
	KindFenceNotConfigured   Kind = "fence_not_configured"
	KindOutsideFence         Kind = "outside_fence"
	KindNoUnitInRange        Kind = "no_unit_in_range"
	KindConsentRequired      Kind = "consent_required"
	KindDuplicateSubmission  Kind = "duplicate_submission"
	KindAlreadyRecordedToday Kind = "already_recorded_today"
	KindEvidenceRequired     Kind = "evidence_required"
	KindEvidenceInvalidType  Kind = "evidence_invalid_type"
	KindEvidenceTooLarge     Kind = "evidence_too_large"
	KindEvidenceStoreFailed  Kind = "evidence_store_failed"
	KindCommitFailed         Kind = "commit_failed"
)

var kindCodes = map[Kind]dErrors.Code{
	KindMalformedRequest:     dErrors.CodeBadRequest,
	KindGeoRequired:          dErrors.CodeBadRequest,
	KindGeoInvalid:           dErrors.CodeBadRequest,
	KindMissingIdentity:      dErrors.CodeBadRequest,
	KindInvalidIdentity:      dErrors.CodeBadRequest,
	KindEvidenceRequired:     dErrors.CodeBadRequest,
	KindEvidenceInvalidType:  dErrors.CodeBadRequest,
	KindEvidenceTooLarge:     dErrors.CodeBadRequest,
	KindConsentRequired:      dErrors.CodeMissingConsent,
	KindFenceNotConfigured:   dErrors.CodeForbidden,
	KindOutsideFence:         dErrors.CodeForbidden,
	KindNoUnitInRange:        dErrors.CodeForbidden,
	KindNoUnitAssigned:       dErrors.CodeForbidden,
	KindInvalidCredential:    dErrors.CodeNotFound,
	KindIdentityNotFound:     dErrors.CodeNotFound,
	KindDuplicateSubmission:  dErrors.CodeConflict,
	KindAlreadyRecordedToday: dErrors.CodeConflict,
	KindEvidenceStoreFailed:  dErrors.CodeInternal,
	KindCommitFailed:         dErrors.CodeInternal,
}

// Code returns the transport class for the kind.
func (k Kind) Code() dErrors.Code {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return dErrors.CodeInternal
}

// Reject builds a gate rejection carrying kind-specific details.
func Reject(kind Kind, msg string, details map[string]any) error {
	return dErrors.NewWithReason(kind.Code(), string(kind), msg, details)
}

// Fail wraps an infrastructure error under a critical-step kind.
func Fail(kind Kind, err error, msg string) error {
	return dErrors.WrapWithReason(err, kind.Code(), string(kind), msg)
}

// KindOf extracts the rejection kind, or "" for errors without one.
func KindOf(err error) Kind {
	var e *dErrors.Error
	if errors.As(err, &e) {
		return Kind(e.Reason)
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return dErrors.HasReason(err, string(kind))
}
