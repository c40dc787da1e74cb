package recorder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/dedup"
	"ponto/internal/attendance/evidence"
	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/notify"
	"ponto/internal/attendance/receipt"
	"ponto/internal/attendance/recorder"
	"ponto/internal/attendance/store/clockevent"
	consentstore "ponto/internal/attendance/store/consent"
	"ponto/internal/attendance/store/employee"
	"ponto/internal/attendance/store/unit"
	"ponto/internal/platform/config"
	"ponto/internal/platform/objectstore"
	"ponto/pkg/platform/audit"
	"ponto/pkg/platform/audit/publisher"
	auditmemory "ponto/pkg/platform/audit/store/memory"
	"ponto/pkg/platform/tracer"
	"ponto/pkg/requestcontext"
)

// brt is the organizational zone used throughout: UTC-3, no DST.
var brt = time.FixedZone("BRT", -3*60*60)

const (
	legalID     = "12345678901"
	universal   = "KL-UNIVERSAL"
	unitBadge   = "BADGE-U1"
	centerLat   = -23.5
	centerLng   = -46.6
	fiveHundred = 0.0045
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (n *recordingNotifier) Enqueue(_ context.Context, x notify.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, x)
	return true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

// RecorderSuite wires the recorder to in-memory stores.
type RecorderSuite struct {
	suite.Suite
	employees *employee.InMemoryStore
	units     *unit.InMemoryStore
	consents  *consentstore.InMemoryStore
	events    *clockevent.InMemoryStore
	objects   *objectstore.Bucket
	audits    *auditmemory.InMemoryStore
	notifier  *recordingNotifier
	spans     *tracer.MemoryTracer
	issuer    *receipt.Issuer
	auditor   *publisher.Publisher
	resolver  *identity.Resolver
	rec       *recorder.Recorder
	verifier  *recorder.Verifier
	now       time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	ctx := context.Background()
	s.employees = employee.NewInMemoryStore()
	s.units = unit.NewInMemoryStore()
	s.consents = consentstore.NewInMemoryStore()
	s.events = clockevent.NewInMemoryStore()
	s.objects = objectstore.NewMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.notifier = &recordingNotifier{}
	s.spans = tracer.NewMemory()
	s.now = time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	s.Require().NoError(s.units.SaveUnit(ctx, &models.WorkUnit{
		ID: "U1", Name: "Matriz", Fence: &models.Fence{Lat: centerLat, Lng: centerLng, RadiusMeters: 100},
	}))
	s.Require().NoError(s.units.SaveCredential(ctx, &models.AccessCredential{Code: unitBadge, UnitID: "U1", Active: true}))
	s.Require().NoError(s.employees.Save(ctx, &models.Employee{
		ID: "E1", LegalID: legalID, Name: "Ana", PrimaryUnitID: "U1", GroupID: "G1",
	}))
	s.consent("E1")

	var err error
	s.resolver, err = identity.New(s.employees, s.units, config.DefaultUniversalCodePattern)
	s.Require().NoError(err)
	s.issuer, err = receipt.NewIssuer("test-signing-key")
	s.Require().NoError(err)

	s.auditor = publisher.NewPublisher(s.audits)
	s.rec = s.build(s.objects)
	s.verifier = recorder.NewVerifier(s.events,
		recorder.WithTokenParser(s.issuer),
		recorder.WithVerifierAuditor(s.auditor),
	)
}

// build wires a recorder over the suite's stores with the given object store
// and any extra options.
func (s *RecorderSuite) build(objects objectstore.Store, opts ...recorder.Option) *recorder.Recorder {
	base := []recorder.Option{
		recorder.WithAuditor(s.auditor),
		recorder.WithNotifier(s.notifier),
		recorder.WithReceiptIssuer(s.issuer),
		recorder.WithTracer(s.spans),
	}
	rec, err := recorder.New(
		s.resolver,
		consent.NewGate(s.consents),
		dedup.NewGuard(120*time.Second, brt),
		evidence.New(objects),
		s.events,
		append(base, opts...)...,
	)
	s.Require().NoError(err)
	return rec
}

func (s *RecorderSuite) consent(id models.EmployeeID) {
	_, _, err := s.consents.Save(context.Background(), models.ConsentRecord{EmployeeID: id, AcknowledgedAt: s.now})
	s.Require().NoError(err)
}

func (s *RecorderSuite) ctxAt(t time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), t)
	return requestcontext.WithClientMetadata(ctx, "203.0.113.7", "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36")
}

func jpeg(size int) *models.EvidenceUpload {
	b := make([]byte, size)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return &models.EvidenceUpload{Filename: "selfie.jpg", ContentType: "image/jpeg", Size: int64(size), Data: b}
}

func request(eventType, code, cpf string, lat, lng string) models.ClockInRequest {
	return models.ClockInRequest{
		Type: eventType, Code: code, LegalID: cpf,
		Latitude: lat, Longitude: lng, Accuracy: "12",
		DeviceID: "kiosk-1",
		Evidence: jpeg(50 << 10),
	}
}

func centerRequest(eventType string) models.ClockInRequest {
	return request(eventType, universal, legalID, "-23.5", "-46.6")
}

func (s *RecorderSuite) assertKind(err error, kind models.Kind) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(kind, models.KindOf(err), "got %v", err)
}

func (s *RecorderSuite) auditTrail() []audit.Event {
	events, err := s.audits.ListRecent(context.Background(), 0)
	s.Require().NoError(err)
	return events
}
