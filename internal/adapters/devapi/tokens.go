package devapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
)

var ErrUnauthorized = errors.New("unauthorized")

// Issuer mints and verifies the HS256 session tokens handed out by the dev API.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(secret []byte, issuer string, ttl time.Duration, clk clock.Clock) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl, clock: clk}
}

func (i *Issuer) Mint(subject string) (string, error) {
	now := i.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Verify checks signature, issuer and expiry and returns the subject.
func (i *Issuer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
