package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	s, err := NewTokenService(TokenConfig{
		Secret:     "test-secret",
		Issuer:     "blogapi",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return s
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService(TokenConfig{AccessTTL: time.Hour, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "s", RefreshTTL: time.Hour})
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	s := newTestService(t)

	token, err := s.Sign("665f1c2b9d3e4a0012345678", AccessToken)
	require.NoError(t, err)

	claims, err := s.Verify(token, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "665f1c2b9d3e4a0012345678", claims.UserID)
	assert.Equal(t, AccessToken, claims.Kind)
	assert.Equal(t, "blogapi", claims.Issuer)
}

func TestTokenService_Expired(t *testing.T) {
	s := newTestService(t)
	issued := time.Now().Add(-2 * time.Hour)
	s.now = func() time.Time { return issued }

	token, err := s.Sign("user-1", AccessToken)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(token, AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RefreshStillValid(t *testing.T) {
	s := newTestService(t)
	issued := time.Now().Add(-2 * time.Hour)
	s.now = func() time.Time { return issued }

	token, err := s.Sign("user-1", RefreshToken)
	require.NoError(t, err)

	s.now = time.Now
	claims, err := s.Verify(token, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.Kind)
}

func TestTokenService_Invalid(t *testing.T) {
	s := newTestService(t)
	access, err := s.Sign("user-1", AccessToken)
	require.NoError(t, err)

	other, err := NewTokenService(TokenConfig{Secret: "other", Issuer: "blogapi", AccessTTL: time.Hour, RefreshTTL: time.Hour})
	require.NoError(t, err)
	foreign, err := other.Sign("user-1", AccessToken)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenService(TokenConfig{Secret: "test-secret", Issuer: "someone-else", AccessTTL: time.Hour, RefreshTTL: time.Hour})
	require.NoError(t, err)
	misissued, err := wrongIssuer.Sign("user-1", AccessToken)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "user-1",
		Kind:   AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		kind  TokenKind
	}{
		{"garbage", "not.a.token", AccessToken},
		{"empty", "", AccessToken},
		{"tampered", access[:len(access)-2] + "xx", AccessToken},
		{"foreign secret", foreign, AccessToken},
		{"wrong issuer", misissued, AccessToken},
		{"alg none", unsigned, AccessToken},
		{"access used as refresh", access, RefreshToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token, tt.kind)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenService_UnknownKind(t *testing.T) {
	s := newTestService(t)
	_, err := s.Sign("user-1", TokenKind("bogus"))
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))

	assert.True(t, ComparePassword(hash, "s3cret!"))
	assert.False(t, ComparePassword(hash, "wrong"))
	assert.False(t, ComparePassword("not-a-hash", "s3cret!"))

	again, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}
