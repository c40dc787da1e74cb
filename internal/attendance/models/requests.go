package models

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"ponto/internal/attendance/geo"
	dErrors "ponto/pkg/domain-errors"
	"ponto/pkg/platform/validation"
)

// EvidenceUpload is the photographic proof as received from the client.
type EvidenceUpload struct {
	Filename    string
	ContentType string
	// Size is the declared size; Data may be truncated at the transport limit.
	Size int64
	Data []byte
}

// ClockInRequest is the raw submission. Geo fields stay strings so parsing can
// tell "missing" from "non-numeric".
type ClockInRequest struct {
	Type      string          `form:"type" validate:"notblank"`
	Code      string          `form:"qrCode" validate:"notblank,max=128"`
	LegalID   string          `form:"cpf" validate:"max=32"`
	Latitude  string          `form:"latitude"`
	Longitude string          `form:"longitude"`
	Accuracy  string          `form:"accuracy"`
	DeviceID  string          `form:"deviceId" validate:"max=128"`
	Evidence  *EvidenceUpload `form:"foto" validate:"-"`
}

// Submission is a ClockInRequest whose shape, type and geolocation are valid.
type Submission struct {
	Type     EventType
	Code     string
	LegalID  string
	Location GeoPoint
	DeviceID string
	Evidence *EvidenceUpload
}

// Normalize trims whitespace from every text field.
func (r *ClockInRequest) Normalize() {
	r.Type = strings.TrimSpace(r.Type)
	r.Code = strings.TrimSpace(r.Code)
	r.LegalID = strings.TrimSpace(r.LegalID)
	r.Latitude = strings.TrimSpace(r.Latitude)
	r.Longitude = strings.TrimSpace(r.Longitude)
	r.Accuracy = strings.TrimSpace(r.Accuracy)
	r.DeviceID = strings.TrimSpace(r.DeviceID)
}

// Parse checks the request without touching any store. Malformed fields are
// reported before geolocation problems.
func (r ClockInRequest) Parse() (*Submission, error) {
	r.Normalize()

	if err := validation.Validate(r); err != nil {
		msg := "invalid request"
		var de *dErrors.Error
		if errors.As(err, &de) {
			msg = de.Message
		}
		return nil, Reject(KindMalformedRequest, msg, nil)
	}
	eventType, ok := ParseEventType(r.Type)
	if !ok {
		return nil, Reject(KindMalformedRequest, "unknown event type", map[string]any{"type": r.Type})
	}

	loc, err := parseLocation(r.Latitude, r.Longitude, r.Accuracy)
	if err != nil {
		return nil, err
	}

	return &Submission{
		Type:     eventType,
		Code:     r.Code,
		LegalID:  r.LegalID,
		Location: loc,
		DeviceID: r.DeviceID,
		Evidence: r.Evidence,
	}, nil
}

func parseLocation(rawLat, rawLng, rawAccuracy string) (GeoPoint, error) {
	if rawLat == "" || rawLng == "" {
		return GeoPoint{}, Reject(KindGeoRequired,
			"location is required to record attendance; enable location services and try again", nil)
	}
	lat, latErr := parseFinite(rawLat)
	lng, lngErr := parseFinite(rawLng)
	if latErr != nil || lngErr != nil || !geo.Valid(lat, lng) {
		return GeoPoint{}, Reject(KindGeoInvalid, "location coordinates are invalid", nil)
	}

	point := GeoPoint{Lat: lat, Lng: lng}
	// Accuracy is advisory; unusable values are dropped.
	if acc, err := parseFinite(rawAccuracy); err == nil && acc >= 0 {
		point.Accuracy = &acc
	}
	return point, nil
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
