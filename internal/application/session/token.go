package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bryanwahyu/trustlayer/internal/application"
	domsession "github.com/bryanwahyu/trustlayer/internal/domain/session"
)

const (
	tokenIssuer   = "trustlayer"
	tokenAudience = "trustlayer-device"
)

// Tokens signs and verifies HS256 device tokens. The subject is the device id
// and the expiry is the session expiry.
type Tokens struct {
	secret []byte
	clock  application.Clock
}

func NewTokens(secret string, clock application.Clock) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("session signing key must be at least 16 bytes")
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Tokens{secret: []byte(secret), clock: clock}, nil
}

func (t *Tokens) Issue(deviceID string, expiresAt time.Time) (string, error) {
	now := t.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   deviceID,
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return signed, nil
}

// Verify returns the device id of a valid, unexpired token.
func (t *Tokens) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return "", domsession.ErrUnauthenticated
	}
	if claims.Subject == "" {
		return "", domsession.ErrUnauthenticated
	}
	return claims.Subject, nil
}
