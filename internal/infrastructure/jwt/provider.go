package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/cliptube/identity-api/internal/config"
	"github.com/cliptube/identity-api/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Typed verification failures. Verify never returns a raw library error.
var (
	ErrExpired          = errors.New("token expired")
	ErrMalformed        = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs. Access and refresh tokens use
// independent secrets and TTLs so that compromising one class cannot forge
// the other.
type Provider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, errors.New("access and refresh token secrets are required")
	}
	return &Provider{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}, nil
}

// SignAccess issues a short-lived access token for userID.
func (p *Provider) SignAccess(userID string) (string, error) {
	return sign(userID, p.accessSecret, p.accessTTL)
}

// SignRefresh issues a long-lived refresh token for userID.
func (p *Provider) SignRefresh(userID string) (string, error) {
	return sign(userID, p.refreshSecret, p.refreshTTL)
}

// VerifyAccess verifies signature and expiry of an access token.
func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	return verify(tokenStr, p.accessSecret)
}

// VerifyRefresh verifies signature and expiry of a refresh token.
// A valid signature alone does not make the token current: callers must
// also compare it against the value stored on the user record.
func (p *Provider) VerifyRefresh(tokenStr string) (*Claims, error) {
	return verify(tokenStr, p.refreshSecret)
}

func sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			// Unique jti: two tokens for the same subject issued within the
			// same second must still differ, or rotation could hand back the
			// token it was meant to supersede.
			ID: id.New(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(tokenStr string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrSignatureInvalid
	default:
		return nil, ErrMalformed
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}
