package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/models"
	"ponto/internal/attendance/recorder"
	"ponto/pkg/platform/middleware/request"
)

type fakeRecorder struct {
	got      *models.ClockInRequest
	rcpt     *models.Receipt
	err      error
	rejected []error
}

func (f *fakeRecorder) Record(_ context.Context, req models.ClockInRequest) (*models.Receipt, error) {
	f.got = &req
	return f.rcpt, f.err
}

func (f *fakeRecorder) Reject(_ context.Context, err error) {
	f.rejected = append(f.rejected, err)
}

type fakeConsent struct {
	got string
	res *consent.Result
	err error
}

func (f *fakeConsent) Acknowledge(_ context.Context, rawLegalID string) (*consent.Result, error) {
	f.got = rawLegalID
	return f.res, f.err
}

type fakeVerifier struct {
	res *recorder.Verification
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, req recorder.VerifyRequest) (*recorder.Verification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.res, f.err
}

type HandlerSuite struct {
	suite.Suite
	recorder *fakeRecorder
	consent  *fakeConsent
	verifier *fakeVerifier
	router   chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.recorder = &fakeRecorder{}
	s.consent = &fakeConsent{}
	s.verifier = &fakeVerifier{}
	s.router = chi.NewRouter()
	s.router.Use(request.BodyLimit(1 << 20))
	New(s.recorder, s.consent, s.verifier, nil, 512<<10).Register(s.router)
}

func (s *HandlerSuite) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

// clockInForm builds a multipart body; photo nil omits the file part.
func clockInForm(t testing.TB, fields map[string]string, photo []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="foto"; filename="selfie.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/attendance/clock-events", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *HandlerSuite) TestClockEventSuccess() {
	name := "Ana"
	s.recorder.rcpt = &models.Receipt{
		EventID:      "ev-1",
		UnitName:     "Matriz",
		EmployeeName: &name,
		ProtocolCode: "KL-20250310-1A2B3C4D",
		ReceiptToken: "tok",
		Timestamp:    time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
	}
	photo := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}

	w, body := s.serve(clockInForm(s.T(), map[string]string{
		"type": "ENTRADA", "qrCode": "KL-UNIVERSAL", "cpf": "123.456.789-01",
		"latitude": "-23.5", "longitude": "-46.6", "accuracy": "8", "deviceId": "kiosk-1",
	}, photo))

	s.Equal(http.StatusCreated, w.Code)
	s.Empty(s.recorder.rejected)
	s.Equal(true, body["ok"])
	s.Equal("ev-1", body["eventId"])
	s.Equal("Matriz", body["unitName"])
	s.Equal("Ana", body["employeeName"])
	s.Equal("KL-20250310-1A2B3C4D", body["protocolCode"])
	s.Equal("tok", body["receiptToken"])

	got := s.recorder.got
	s.Require().NotNil(got)
	s.Equal("ENTRADA", got.Type)
	s.Equal("KL-UNIVERSAL", got.Code)
	s.Equal("123.456.789-01", got.LegalID)
	s.Equal("-23.5", got.Latitude)
	s.Equal("-46.6", got.Longitude)
	s.Equal("8", got.Accuracy)
	s.Equal("kiosk-1", got.DeviceID)
	s.Require().NotNil(got.Evidence)
	s.Equal("image/jpeg", got.Evidence.ContentType)
	s.Equal(int64(len(photo)), got.Evidence.Size)
	s.Equal(photo, got.Evidence.Data)
}

func (s *HandlerSuite) TestClockEventWithoutPhotoReachesRecorder() {
	s.recorder.err = models.Reject(models.KindEvidenceRequired, "a photo is required", nil)

	w, body := s.serve(clockInForm(s.T(), map[string]string{"type": "ENTRADA"}, nil))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("evidence_required", body["code"])
	s.Nil(s.recorder.got.Evidence)
}

func (s *HandlerSuite) TestClockEventRejectionCarriesDetails() {
	s.recorder.err = models.Reject(models.KindOutsideFence, "you are 500 m from Matriz",
		map[string]any{"distanceMeters": 500.0, "allowedRadius": 100.0})

	w, body := s.serve(clockInForm(s.T(), map[string]string{"type": "ENTRADA"}, []byte{0xFF}))

	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("outside_fence", body["code"])
	s.Equal("you are 500 m from Matriz", body["error"])
	s.Equal(500.0, body["distanceMeters"])
	s.Equal(100.0, body["allowedRadius"])
}

func (s *HandlerSuite) TestClockEventStatusMapping() {
	cases := []struct {
		kind   models.Kind
		status int
	}{
		{models.KindConsentRequired, http.StatusForbidden},
		{models.KindIdentityNotFound, http.StatusNotFound},
		{models.KindDuplicateSubmission, http.StatusConflict},
		{models.KindAlreadyRecordedToday, http.StatusConflict},
		{models.KindGeoRequired, http.StatusBadRequest},
	}
	for _, tc := range cases {
		s.Run(string(tc.kind), func() {
			s.recorder.err = models.Reject(tc.kind, "rejected", nil)
			w, body := s.serve(clockInForm(s.T(), map[string]string{"type": "ENTRADA"}, nil))
			s.Equal(tc.status, w.Code)
			s.Equal(string(tc.kind), body["code"])
		})
	}
}

func (s *HandlerSuite) TestClockEventNotMultipart() {
	req := httptest.NewRequest(http.MethodPost, "/v1/attendance/clock-events", strings.NewReader(`{"type":"ENTRADA"}`))
	req.Header.Set("Content-Type", "application/json")

	w, body := s.serve(req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("malformed_request", body["code"])
	s.Nil(s.recorder.got)
	s.Require().Len(s.recorder.rejected, 1)
	s.Equal(models.KindMalformedRequest, models.KindOf(s.recorder.rejected[0]))
}

func (s *HandlerSuite) TestClockEventBodyOverLimit() {
	w, body := s.serve(clockInForm(s.T(), map[string]string{"type": "ENTRADA"}, make([]byte, 2<<20)))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("evidence_too_large", body["code"])
	s.Equal(float64(512<<10), body["maxBytes"], "reports the photo limit, not the body limit")
	s.Nil(s.recorder.got)
	s.Require().Len(s.recorder.rejected, 1)
	s.Equal(models.KindEvidenceTooLarge, models.KindOf(s.recorder.rejected[0]))
}

func (s *HandlerSuite) TestConsent() {
	rec := &models.ConsentRecord{EmployeeID: "E1", AcknowledgedAt: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)}

	s.Run("first acknowledgement is created", func() {
		s.consent.res = &consent.Result{Record: rec, Created: true}
		req := httptest.NewRequest(http.MethodPost, "/v1/attendance/consents", strings.NewReader(`{"cpf":" 12345678901 "}`))

		w, body := s.serve(req)

		s.Equal(http.StatusCreated, w.Code)
		s.Equal("12345678901", s.consent.got)
		s.Equal("E1", body["employeeId"])
		s.Equal(true, body["created"])
	})

	s.Run("repeat acknowledgement is ok", func() {
		s.consent.res = &consent.Result{Record: rec}
		req := httptest.NewRequest(http.MethodPost, "/v1/attendance/consents", strings.NewReader(`{"cpf":"12345678901"}`))

		w, body := s.serve(req)

		s.Equal(http.StatusOK, w.Code)
		s.Equal(false, body["created"])
	})

	s.Run("unknown employee", func() {
		s.consent.err = models.Reject(models.KindIdentityNotFound, "no employee found for this CPF", nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/attendance/consents", strings.NewReader(`{"cpf":"00000000000"}`))

		w, body := s.serve(req)

		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("identity_not_found", body["code"])
	})

	s.Run("invalid json", func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/attendance/consents", strings.NewReader(`{`))
		w, _ := s.serve(req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestVerify() {
	s.Run("valid code", func() {
		s.verifier.res = &recorder.Verification{Valid: true, Events: []recorder.VerifiedEvent{{EventID: "ev-1", Valid: true}}}
		req := httptest.NewRequest(http.MethodPost, "/v1/attendance/receipts/verify",
			strings.NewReader(`{"protocolCode":"kl-20250310-1a2b3c4d"}`))

		w, body := s.serve(req)

		s.Equal(http.StatusOK, w.Code)
		s.Equal(true, body["valid"])
		s.Len(body["events"], 1)
	})

	s.Run("neither code nor token", func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/attendance/receipts/verify", strings.NewReader(`{}`))

		w, body := s.serve(req)

		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("malformed_request", body["code"])
	})
}
