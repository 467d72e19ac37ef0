package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/config"
)

func newTokenService() *auth.TokenService {
	return auth.NewTokenService(&config.AuthConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15,
		RefreshTTL:    7 * 24 * 60,
	})
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTokenService()
	userID := uuid.New()

	pair, err := svc.IssuePair(userID)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, pair.ExpiresIn)

	got, err := svc.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	got, err = svc.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenService_RejectsWrongTokenType(t *testing.T) {
	svc := newTokenService()
	pair, err := svc.IssuePair(uuid.New())
	require.NoError(t, err)

	_, err = svc.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	svc := newTokenService().WithClock(func() time.Time { return issuedAt })
	pair, err := svc.IssuePair(uuid.New())
	require.NoError(t, err)

	svc.WithClock(time.Now)
	_, err = svc.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)

	// refresh token lives for a week
	_, err = svc.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	svc := newTokenService()
	claims := auth.Claims{
		UserID: uuid.New(),
		Type:   auth.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("someone-else"))
	require.NoError(t, err)

	_, err = svc.ParseAccess(forged)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_Malformed(t *testing.T) {
	_, err := newTokenService().ParseAccess("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := auth.HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, auth.CheckPassword(hash, "secret1"))
	assert.False(t, auth.CheckPassword(hash, "secret2"))
}
