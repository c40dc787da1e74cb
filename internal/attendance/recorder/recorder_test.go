package recorder_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ponto/internal/attendance/identity"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/protocol"
	"ponto/internal/attendance/recorder"
	"ponto/internal/platform/objectstore"
	dErrors "ponto/pkg/domain-errors"
	"ponto/pkg/platform/audit"
	"ponto/pkg/platform/tracer"
	"ponto/pkg/testutil"
)

type failingObjects struct{}

func (failingObjects) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingObjects) Get(context.Context, string) (*objectstore.Object, error) {
	return nil, errors.New("bucket unavailable")
}

// stubClaimer answers every claim the same way and counts releases.
type stubClaimer struct {
	ok       bool
	err      error
	mu       sync.Mutex
	claims   int
	releases int
}

func (c *stubClaimer) Claim(context.Context, models.DedupKey, time.Duration) (func(context.Context) error, bool, error) {
	c.mu.Lock()
	c.claims++
	c.mu.Unlock()
	if c.err != nil || !c.ok {
		return nil, c.ok, c.err
	}
	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.releases++
		return nil
	}, true, nil
}

func detailsOf(err error) map[string]any {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}

func (s *RecorderSuite) TestRecordsUniversalSubmission() {
	ctx := s.ctxAt(s.now)

	rcpt, err := s.rec.Record(ctx, centerRequest("ENTRADA"))
	s.Require().NoError(err)

	s.Regexp(protocol.CodePattern, rcpt.ProtocolCode)
	s.Equal("Matriz", rcpt.UnitName)
	s.Require().NotNil(rcpt.EmployeeName)
	s.Equal("Ana", *rcpt.EmployeeName)
	s.NotEmpty(rcpt.ReceiptToken)

	stored, err := s.events.FindByID(ctx, rcpt.EventID)
	s.Require().NoError(err)
	s.Equal(models.EmployeeID("E1"), stored.EmployeeID)
	s.Equal(models.UnitID("U1"), stored.UnitID)
	s.Equal(models.EventClockIn, stored.Type)
	s.Equal(s.now, stored.Timestamp)
	s.Equal("2025-03-10", stored.LocalDay)
	s.Equal(models.CredentialUniversal, stored.CredentialRef)
	s.Equal(legalID, stored.LegalIDSnapshot)
	s.Equal("kiosk-1", stored.Device.DeviceID)
	s.Equal("203.0.113.7", stored.Device.IP)
	s.Len(stored.Device.Fingerprint, 64)
	s.True(protocol.Verify(stored))
	s.Equal(1, s.objects.Len())

	claims, err := s.issuer.Parse(rcpt.ReceiptToken)
	s.Require().NoError(err)
	s.Equal(rcpt.EventID, claims.EventID())
	s.Equal(rcpt.ProtocolCode, claims.ProtocolCode)

	s.Equal(1, s.notifier.count())
	n := s.notifier.got[0]
	s.Equal(rcpt.EventID, n.EventID)
	s.Equal("G1", n.GroupID)
	s.Equal("Matriz", n.UnitName)
	s.Equal(rcpt.ProtocolCode, n.ProtocolCode)

	trail := s.auditTrail()
	s.Require().Len(trail, 1)
	s.Equal(string(audit.ActionClockEventRecorded), trail[0].Action)
	s.Equal(string(rcpt.EventID), trail[0].ResourceID)
	s.Equal(rcpt.ProtocolCode, trail[0].Metadata["protocolCode"])
	s.Equal("U1", trail[0].Metadata["unitId"])
	s.Equal(stored.Device.Fingerprint, trail[0].Metadata["deviceFingerprint"])
}

func (s *RecorderSuite) TestRejectsOutsideFenceBeforeEvidence() {
	req := request("ENTRADA", unitBadge, legalID,
		fmt.Sprintf("%f", centerLat+fiveHundred), fmt.Sprintf("%f", centerLng))

	_, err := s.rec.Record(s.ctxAt(s.now), req)

	s.assertKind(err, models.KindOutsideFence)
	details := detailsOf(err)
	s.InDelta(500, details["distanceMeters"], 5)
	s.Equal(100.0, details["allowedRadius"])
	s.Equal(0, s.objects.Len())
	s.Equal(0, s.events.Count())
	s.Equal(0, s.notifier.count())

	trail := s.auditTrail()
	s.Require().Len(trail, 1)
	s.Equal(string(audit.ActionClockEventRejected), trail[0].Action)
	s.Equal(string(models.KindOutsideFence), trail[0].Reason)
	s.Equal("E1", trail[0].ResourceID)
}

func (s *RecorderSuite) TestStagesRunInPipelineOrder() {
	_, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.Require().NoError(err)

	s.Equal([]string{
		tracer.SpanResolveIdentity,
		tracer.SpanResolveFence,
		tracer.SpanCheckConsent,
		tracer.SpanCheckDuplicate,
		tracer.SpanCaptureEvidence,
		tracer.SpanCommit,
		tracer.SpanRecord,
	}, s.spans.Names())

	root, ok := s.spans.Find(tracer.SpanRecord)
	s.Require().True(ok)
	s.Equal("ENTRADA", root.Attrs[tracer.AttrEventType])
	s.Equal("U1", root.Attrs[tracer.AttrUnitID])
	s.Contains(root.Events, tracer.EventNotificationQueued)
}

func (s *RecorderSuite) TestRejectionStopsThePipeline() {
	req := request("ENTRADA", universal, legalID,
		fmt.Sprintf("%f", centerLat+fiveHundred), fmt.Sprintf("%f", centerLng))

	_, err := s.rec.Record(s.ctxAt(s.now), req)
	s.Require().Error(err)

	s.Equal([]string{tracer.SpanResolveIdentity, tracer.SpanResolveFence, tracer.SpanRecord}, s.spans.Names())
	fence, ok := s.spans.Find(tracer.SpanResolveFence)
	s.Require().True(ok)
	s.Equal(string(models.KindNoUnitInRange), fence.RejectReason())
}

func (s *RecorderSuite) TestStoreFailureIsNotARejection() {
	_, err := s.build(failingObjects{}).Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.assertKind(err, models.KindEvidenceStoreFailed)

	capture, ok := s.spans.Find(tracer.SpanCaptureEvidence)
	s.Require().True(ok)
	s.Empty(capture.RejectReason())
	s.Equal(string(models.KindEvidenceStoreFailed), capture.Attrs[tracer.AttrFailureKind])
	_, committed := s.spans.Find(tracer.SpanCommit)
	s.False(committed)
}

func (s *RecorderSuite) TestRequiresConsentForEveryType() {
	s.Require().NoError(s.employees.Save(context.Background(), &models.Employee{
		ID: "E2", LegalID: "98765432100", Name: "Bruno", PrimaryUnitID: "U1",
	}))

	for _, t := range models.AllEventTypes() {
		s.Run(string(t), func() {
			_, err := s.rec.Record(s.ctxAt(s.now), request(string(t), universal, "98765432100", "-23.5", "-46.6"))
			s.assertKind(err, models.KindConsentRequired)
			s.Equal("E2", detailsOf(err)["employeeId"])
		})
	}
	s.Equal(0, s.events.Count())
	s.Equal(0, s.objects.Len())
}

func (s *RecorderSuite) TestReplayInsideWindowIsDuplicate() {
	_, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.Require().NoError(err)

	_, err = s.rec.Record(s.ctxAt(s.now.Add(30*time.Second)), centerRequest("ENTRADA"))

	s.assertKind(err, models.KindDuplicateSubmission)
	s.Equal(90, detailsOf(err)["retryAfterSeconds"])
	s.Equal(1, s.events.Count())
	s.Len(s.auditTrail(), 2)
}

func (s *RecorderSuite) TestSameTypeLaterSameDayIsAlreadyRecorded() {
	_, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.Require().NoError(err)

	_, err = s.rec.Record(s.ctxAt(s.now.Add(3*time.Hour)), centerRequest("ENTRADA"))

	s.assertKind(err, models.KindAlreadyRecordedToday)
	s.Equal("2025-03-10", detailsOf(err)["localDay"])
	s.Equal(1, s.events.Count())
}

func (s *RecorderSuite) TestDifferentTypesSameDayAreIndependent() {
	for i, t := range models.AllEventTypes() {
		_, err := s.rec.Record(s.ctxAt(s.now.Add(time.Duration(i)*time.Minute)), centerRequest(string(t)))
		s.Require().NoError(err, t)
	}
	s.Equal(len(models.AllEventTypes()), s.events.Count())
}

// The day boundary is the organization's midnight, not UTC's.
func (s *RecorderSuite) TestLocalMidnightStartsNewDay() {
	before := time.Date(2025, 3, 10, 23, 58, 0, 0, brt)
	after := time.Date(2025, 3, 11, 0, 1, 0, 0, brt)

	first, err := s.rec.Record(s.ctxAt(before), centerRequest("SAIDA"))
	s.Require().NoError(err)
	second, err := s.rec.Record(s.ctxAt(after), centerRequest("SAIDA"))
	s.Require().NoError(err)

	s.Equal(2, s.events.Count())
	a, _ := s.events.FindByID(context.Background(), first.EventID)
	b, _ := s.events.FindByID(context.Background(), second.EventID)
	s.Equal("2025-03-10", a.LocalDay)
	s.Equal("2025-03-11", b.LocalDay)
	s.Contains(a.ProtocolCode, "20250310")
	s.Contains(b.ProtocolCode, "20250311")
}

func (s *RecorderSuite) TestUniversalPicksContainingUnit() {
	ctx := context.Background()
	s.Require().NoError(s.units.SaveUnit(ctx, &models.WorkUnit{
		ID: "UA", Name: "Filial A", Fence: &models.Fence{Lat: -23.55, Lng: -46.63, RadiusMeters: 150},
	}))
	s.Require().NoError(s.units.SaveUnit(ctx, &models.WorkUnit{
		ID: "UB", Name: "Filial B", Fence: &models.Fence{Lat: -23.60, Lng: -46.70, RadiusMeters: 150},
	}))
	s.Require().NoError(s.employees.Save(ctx, &models.Employee{
		ID: "E3", LegalID: "11122233344", Name: "Carla", PrimaryUnitID: "UA",
		PermittedUnitIDs: []models.UnitID{"UA", "UB"},
	}))
	s.consent("E3")

	rcpt, err := s.rec.Record(s.ctxAt(s.now), request("ENTRADA", universal, "111.222.333-44", "-23.6001", "-46.7001"))
	s.Require().NoError(err)

	s.Equal("Filial B", rcpt.UnitName)
	ev, err := s.events.FindByID(ctx, rcpt.EventID)
	s.Require().NoError(err)
	s.Equal(models.UnitID("UB"), ev.UnitID)
}

func (s *RecorderSuite) TestUniversalOutsideAllUnits() {
	_, err := s.rec.Record(s.ctxAt(s.now), request("ENTRADA", universal, legalID, "-22.9", "-43.2"))

	s.assertKind(err, models.KindNoUnitInRange)
	s.Equal([]string{"Matriz"}, detailsOf(err)["permittedUnits"])
}

func (s *RecorderSuite) TestUnitBoundBadge() {
	rcpt, err := s.rec.Record(s.ctxAt(s.now), request("ENTRADA", unitBadge, legalID, "-23.5", "-46.6"))
	s.Require().NoError(err)

	ev, err := s.events.FindByID(context.Background(), rcpt.EventID)
	s.Require().NoError(err)
	s.Equal(unitBadge, ev.CredentialRef)
	s.Equal(models.UnitID("U1"), ev.UnitID)
	s.Equal(string(identity.ModeUnitBound), s.auditTrail()[0].Metadata["mode"])
}

func (s *RecorderSuite) TestUnknownBadge() {
	_, err := s.rec.Record(s.ctxAt(s.now), request("ENTRADA", "BADGE-NOPE", legalID, "-23.5", "-46.6"))
	s.assertKind(err, models.KindInvalidCredential)
}

func (s *RecorderSuite) TestRequestRejections() {
	cases := []struct {
		name string
		mut  func(*models.ClockInRequest)
		kind models.Kind
	}{
		{"unknown type", func(r *models.ClockInRequest) { r.Type = "ALMOCO" }, models.KindMalformedRequest},
		{"missing code", func(r *models.ClockInRequest) { r.Code = "" }, models.KindMalformedRequest},
		{"missing cpf", func(r *models.ClockInRequest) { r.LegalID = "" }, models.KindMissingIdentity},
		{"short cpf", func(r *models.ClockInRequest) { r.LegalID = "1234" }, models.KindInvalidIdentity},
		{"unknown cpf", func(r *models.ClockInRequest) { r.LegalID = "00000000000" }, models.KindIdentityNotFound},
		{"no photo", func(r *models.ClockInRequest) { r.Evidence = nil }, models.KindEvidenceRequired},
		{"not an image", func(r *models.ClockInRequest) {
			r.Evidence = &models.EvidenceUpload{ContentType: "application/pdf", Size: 4, Data: []byte("%PDF")}
		}, models.KindEvidenceInvalidType},
		{"photo too large", func(r *models.ClockInRequest) { r.Evidence = jpeg(3 << 20) }, models.KindEvidenceTooLarge},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := centerRequest("ENTRADA")
			tc.mut(&req)
			_, err := s.rec.Record(s.ctxAt(s.now), req)
			s.assertKind(err, tc.kind)
		})
	}
	s.Equal(0, s.events.Count())
	s.Len(s.auditTrail(), len(cases))
}

func (s *RecorderSuite) TestRejectAuditsUndecodedSubmission() {
	s.rec.Reject(s.ctxAt(s.now), models.Reject(models.KindMalformedRequest, "expected a multipart form", nil))

	trail := s.auditTrail()
	s.Require().Len(trail, 1)
	s.False(trail[0].Success)
	s.Equal(string(audit.ActionClockEventRejected), trail[0].Action)
	s.Equal(string(models.KindMalformedRequest), trail[0].Reason)
	s.Equal("203.0.113.7", trail[0].ActorIP)
	s.Empty(trail[0].ActorID)
	s.Equal(0, s.events.Count())
}

func (s *RecorderSuite) TestEvidenceStoreFailureReleasesClaim() {
	claimer := &stubClaimer{ok: true}
	rec := s.build(failingObjects{}, recorder.WithClaimer(claimer))

	_, err := rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))

	s.assertKind(err, models.KindEvidenceStoreFailed)
	s.Equal(0, s.events.Count())
	s.Equal(1, claimer.releases)

	// The released window lets the retry through.
	_, err = s.build(s.objects, recorder.WithClaimer(claimer)).Record(s.ctxAt(s.now.Add(time.Second)), centerRequest("ENTRADA"))
	s.Require().NoError(err)
	s.Equal(1, s.events.Count())
}

func (s *RecorderSuite) TestHeldClaimIsDuplicate() {
	rec := s.build(s.objects, recorder.WithClaimer(&stubClaimer{ok: false}))

	_, err := rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))

	s.assertKind(err, models.KindDuplicateSubmission)
	s.Equal(120, detailsOf(err)["retryAfterSeconds"])
	s.Equal(0, s.objects.Len())
}

func (s *RecorderSuite) TestClaimStoreOutageIsSkipped() {
	claimer := &stubClaimer{err: errors.New("redis: connection refused")}
	rec := s.build(s.objects, recorder.WithClaimer(claimer))

	_, err := rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))

	s.Require().NoError(err)
	s.Equal(1, claimer.claims)
	s.Equal(1, s.events.Count())
}

func (s *RecorderSuite) TestConcurrentSubmissionsCommitOnce() {
	result := testutil.RunConcurrent(16, func(int) error {
		_, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(15), result.Conflicts)
	s.Equal(1, s.events.Count())
	s.Len(s.auditTrail(), 16)
}

func (s *RecorderSuite) TestRepairsLegacyLegalID() {
	ctx := context.Background()
	s.Require().NoError(s.employees.Save(ctx, &models.Employee{
		ID: "E4", LegalID: "555.666.777-88", Name: "Davi", PrimaryUnitID: "U1",
	}))
	s.consent("E4")

	_, err := s.rec.Record(s.ctxAt(s.now), request("ENTRADA", universal, "55566677788", "-23.5", "-46.6"))
	s.Require().NoError(err)

	emp, err := s.employees.FindByLegalID(ctx, "55566677788")
	s.Require().NoError(err)
	s.Equal(models.EmployeeID("E4"), emp.ID)
	s.Equal("55566677788", emp.LegalID)
}

func (s *RecorderSuite) TestVerifyByProtocolCode() {
	rcpt, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.Require().NoError(err)

	res, err := s.verifier.Verify(context.Background(), recorder.VerifyRequest{ProtocolCode: " " + rcpt.ProtocolCode + " "})
	s.Require().NoError(err)

	s.True(res.Valid)
	s.Require().Len(res.Events, 1)
	s.Equal(rcpt.EventID, res.Events[0].EventID)
	s.Equal(string(audit.ActionReceiptVerified), s.auditTrail()[0].Action)
}

func (s *RecorderSuite) TestVerifyByToken() {
	rcpt, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.Require().NoError(err)

	res, err := s.verifier.Verify(context.Background(), recorder.VerifyRequest{ReceiptToken: rcpt.ReceiptToken})
	s.Require().NoError(err)
	s.True(res.Valid)

	_, err = s.verifier.Verify(context.Background(), recorder.VerifyRequest{ReceiptToken: rcpt.ReceiptToken + "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *RecorderSuite) TestVerifyUnknownCode() {
	_, err := s.verifier.Verify(context.Background(), recorder.VerifyRequest{ProtocolCode: "KL-20250310-ABCDEF12"})
	s.True(dErrors.HasReason(err, recorder.ReasonReceiptNotFound))

	_, err = s.verifier.Verify(context.Background(), recorder.VerifyRequest{ProtocolCode: "nonsense"})
	s.assertKind(err, models.KindMalformedRequest)
}

// tamperedReader serves events with a field changed after sealing.
type tamperedReader struct {
	recorder.EventReader
}

func (t tamperedReader) FindByProtocolCode(ctx context.Context, code string) ([]*models.ClockEvent, error) {
	evs, err := t.EventReader.FindByProtocolCode(ctx, code)
	for _, ev := range evs {
		ev.Timestamp = ev.Timestamp.Add(-time.Hour)
	}
	return evs, err
}

func (s *RecorderSuite) TestVerifyDetectsTampering() {
	rcpt, err := s.rec.Record(s.ctxAt(s.now), centerRequest("ENTRADA"))
	s.Require().NoError(err)

	res, err := recorder.NewVerifier(tamperedReader{s.events}).
		Verify(context.Background(), recorder.VerifyRequest{ProtocolCode: rcpt.ProtocolCode})
	s.Require().NoError(err)

	s.False(res.Valid)
	s.False(res.Events[0].Valid)
}
