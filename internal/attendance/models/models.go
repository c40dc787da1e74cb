package models

import (
	"time"
)

type EmployeeID string

type UnitID string

type EventID string

func (id EmployeeID) String() string { return string(id) }
func (id UnitID) String() string     { return string(id) }
func (id EventID) String() string    { return string(id) }

// Fence is a circular geofence.
type Fence struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// WorkUnit is a physical site. A unit without a fence accepts no clock events.
type WorkUnit struct {
	ID    UnitID
	Name  string
	Fence *Fence
}

// HasFence reports whether a usable fence is configured.
func (u WorkUnit) HasFence() bool {
	return u.Fence != nil && u.Fence.RadiusMeters > 0
}

// Employee is the identity record. LegalID is stored as HR entered it and may
// not be canonical; see identity.NormalizeLegalID.
type Employee struct {
	ID            EmployeeID
	LegalID       string
	Name          string
	PrimaryUnitID UnitID
	// PermittedUnitIDs is ordered; the order is the default universal-mode tie-break.
	PermittedUnitIDs []UnitID
	GroupID          string
}

// CandidateUnits returns the permission list, or the primary unit when it is empty.
func (e Employee) CandidateUnits() []UnitID {
	if len(e.PermittedUnitIDs) > 0 {
		return e.PermittedUnitIDs
	}
	if e.PrimaryUnitID != "" {
		return []UnitID{e.PrimaryUnitID}
	}
	return nil
}

// AccessCredential is a unit-bound badge code.
type AccessCredential struct {
	Code   string
	UnitID UnitID
	Active bool
}

// ConsentRecord is the on-file acknowledgement of the monitoring terms.
type ConsentRecord struct {
	EmployeeID     EmployeeID
	AcknowledgedAt time.Time
	IP             string
	UserAgent      string
}

// Supervisor receives notifications for a group.
type Supervisor struct {
	GroupID string
	Name    string
	Email   string
}

// GeoPoint is the device location reported with a submission.
type GeoPoint struct {
	Lat      float64
	Lng      float64
	Accuracy *float64
}

// Device carries best-effort client fingerprint fields.
type Device struct {
	IP        string
	UserAgent string
	DeviceID  string
	// Label is a display string such as "Chrome on Android".
	Label string
	// Fingerprint groups submissions from the same browser build and form
	// factor across IP changes.
	Fingerprint string
}

// CredentialUniversal is the credential reference sealed into universal-mode events.
const CredentialUniversal = "universal"

// ClockEvent is the immutable event of record.
type ClockEvent struct {
	ID         EventID
	EmployeeID EmployeeID
	UnitID     UnitID
	Type       EventType
	// Timestamp is server time in UTC, truncated to microseconds.
	Timestamp time.Time
	// LocalDay is the organizational calendar day (YYYY-MM-DD) of Timestamp.
	LocalDay        string
	Location        GeoPoint
	EvidenceRef     string
	Device          Device
	LegalIDSnapshot string
	// CredentialRef is the unit-bound code or CredentialUniversal.
	CredentialRef string
	Digest        string
	ProtocolCode  string
}

// Receipt is returned to the employee after a successful commit.
type Receipt struct {
	EventID      EventID
	UnitName     string
	EmployeeName *string
	ProtocolCode string
	Digest       string
	ReceiptToken string
	Timestamp    time.Time
}

// DedupKey identifies the (employee, unit, type) triple both duplication
// rules are evaluated against.
type DedupKey struct {
	EmployeeID EmployeeID
	UnitID     UnitID
	Type       EventType
}

func (k DedupKey) String() string {
	return string(k.EmployeeID) + "|" + string(k.UnitID) + "|" + string(k.Type)
}

// Key returns the event's duplication key.
func (e *ClockEvent) Key() DedupKey {
	return DedupKey{EmployeeID: e.EmployeeID, UnitID: e.UnitID, Type: e.Type}
}
