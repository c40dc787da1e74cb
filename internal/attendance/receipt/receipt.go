// Package receipt issues and checks signed receipt tokens for committed clock
// events.
package receipt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"ponto/internal/attendance/models"
	dErrors "ponto/pkg/domain-errors"
)

const issuer = "ponto/attendance"

// ReasonInvalidReceipt is the rejection reason for unverifiable tokens.
const ReasonInvalidReceipt = "invalid_receipt"

// Claims binds a receipt to one sealed event. Receipts never expire: they
// prove an attendance record that is itself permanent.
type Claims struct {
	ProtocolCode string `json:"pc"`
	Digest       string `json:"dig"`
	jwt.RegisteredClaims
}

// Issuer signs receipts with HS256.
type Issuer struct {
	signingKey []byte
}

func NewIssuer(signingKey string) (*Issuer, error) {
	if signingKey == "" {
		return nil, errors.New("receipt: signing key is required")
	}
	return &Issuer{signingKey: []byte(signingKey)}, nil
}

// Issue signs a receipt for a sealed event.
func (i *Issuer) Issue(ev *models.ClockEvent) (string, error) {
	if ev.Digest == "" || ev.ProtocolCode == "" {
		return "", errors.New("receipt: event is not sealed")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ProtocolCode: ev.ProtocolCode,
		Digest:       ev.Digest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  ev.ID.String(),
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(ev.Timestamp),
		},
	})
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign receipt: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and returns the claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, dErrors.WrapWithReason(err, dErrors.CodeBadRequest, ReasonInvalidReceipt, "receipt token is invalid")
	}
	if claims.Subject == "" || claims.ProtocolCode == "" {
		return nil, dErrors.NewWithReason(dErrors.CodeBadRequest, ReasonInvalidReceipt, "receipt token is incomplete", nil)
	}
	return claims, nil
}

// EventID is the event the receipt was issued for.
func (c *Claims) EventID() models.EventID {
	return models.EventID(c.Subject)
}
