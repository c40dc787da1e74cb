package receipt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ponto/internal/attendance/models"
	dErrors "ponto/pkg/domain-errors"
)

func sealed() *models.ClockEvent {
	return &models.ClockEvent{
		ID:           "7d0c1f7a-0000-4000-8000-000000000001",
		Timestamp:    time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
		Digest:       "ab12",
		ProtocolCode: "KL-20250310-AB12CD34",
	}
}

func TestIssueAndParse(t *testing.T) {
	issuer, err := NewIssuer("test-secret")
	require.NoError(t, err)

	token, err := issuer.Issue(sealed())
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.EventID("7d0c1f7a-0000-4000-8000-000000000001"), claims.EventID())
	assert.Equal(t, "KL-20250310-AB12CD34", claims.ProtocolCode)
	assert.Equal(t, "ab12", claims.Digest)
}

func TestParseRejects(t *testing.T) {
	iss, err := NewIssuer("test-secret")
	require.NoError(t, err)
	other, err := NewIssuer("other-secret")
	require.NoError(t, err)

	foreign, err := other.Issue(sealed())
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		ProtocolCode:     "KL-20250310-AB12CD34",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", Issuer: issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key":    foreign,
		"alg none":     none,
		"garbage":      "not-a-token",
		"empty string": "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(token)
			require.Error(t, err)
			assert.True(t, dErrors.HasReason(err, ReasonInvalidReceipt))
		})
	}
}

func TestIssueRequiresSeal(t *testing.T) {
	issuer, err := NewIssuer("k")
	require.NoError(t, err)
	_, err = issuer.Issue(&models.ClockEvent{ID: "x"})
	assert.Error(t, err)

	_, err = NewIssuer("")
	assert.Error(t, err)
}
