package jwtinfra

import (
	"testing"
	"time"

	"github.com/cliptube/identity-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(&config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_MissingSecrets(t *testing.T) {
	_, err := NewProvider(&config.Config{AccessTokenSecret: "only-one"})
	require.Error(t, err)
}

func TestSignAndVerifyAccess(t *testing.T) {
	p := newTestProvider(t)

	token, err := p.SignAccess("u1")
	require.NoError(t, err)

	claims, err := p.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestVerify_SecretsAreIndependent(t *testing.T) {
	p := newTestProvider(t)

	access, err := p.SignAccess("u1")
	require.NoError(t, err)
	refresh, err := p.SignRefresh("u1")
	require.NoError(t, err)

	// A token of one class never verifies under the other class's secret.
	_, err = p.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	_, err = p.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_Expired(t *testing.T) {
	p, err := NewProvider(&config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     -time.Minute, // already expired on issue
		RefreshTokenTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	token, err := p.SignAccess("u1")
	require.NoError(t, err)

	_, err = p.VerifyAccess(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.VerifyAccess("definitely.not.a.jwt")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_TamperedSignature(t *testing.T) {
	p := newTestProvider(t)

	token, err := p.SignAccess("u1")
	require.NoError(t, err)

	flip := byte('A')
	if token[len(token)-1] == 'A' {
		flip = 'B'
	}
	tampered := token[:len(token)-1] + string(flip)
	_, err = p.VerifyAccess(tampered)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}
