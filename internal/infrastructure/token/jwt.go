package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/ava/domain"
)

// Config holds JWT signing settings.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the access token payload. sid points at the Redis session so
// revoking the session revokes the token.
type Claims struct {
	UserID  string `json:"user_id"`
	Sid     string `json:"sid"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Issuer{cfg: cfg}
}

// Issue signs a token for the session. The token never outlives the session.
func (i *Issuer) Issue(session *domain.Session) (string, error) {
	if session == nil || session.ID == "" || session.UserID == "" {
		return "", domain.ErrInvalidPayload
	}

	now := time.Now()
	expires := now.Add(i.cfg.TTL)
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(expires) {
		expires = session.ExpiresAt
	}

	claims := Claims{
		UserID:  session.UserID,
		Sid:     session.ID,
		Email:   session.Email,
		IsAdmin: session.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
}

// Parse verifies the signature and expiry and returns the claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(i.cfg.Secret), nil
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}
	if claims.UserID == "" || claims.Sid == "" {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", errors.New("missing user_id or sid"))
	}
	if i.cfg.Issuer != "" && claims.Issuer != i.cfg.Issuer {
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", errors.New("issuer mismatch"))
	}
	return claims, nil
}
