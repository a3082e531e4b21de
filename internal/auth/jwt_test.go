package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/dealroom/internal/domain"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier(testSecret)
	userID := uuid.New()

	token, err := v.Sign(userID, "a@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerifier_Expired(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := v.Sign(uuid.New(), "", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifier_WrongSecret(t *testing.T) {
	token, err := NewVerifier("another-secret-another-secret-another").Sign(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier(testSecret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func sign(t *testing.T, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestVerifier_RejectsWrongAudience(t *testing.T) {
	token := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Audience:  jwt.ClaimStrings{"anon"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	_, err := NewVerifier(testSecret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsNonUUIDSubject(t *testing.T) {
	token := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Audience:  jwt.ClaimStrings{SupabaseAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	_, err := NewVerifier(testSecret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RequiresExpiry(t *testing.T) {
	token := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  uuid.NewString(),
		Audience: jwt.ClaimStrings{SupabaseAudience},
	}})

	_, err := NewVerifier(testSecret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	_, err := NewVerifier(testSecret).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestViewerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetViewer(ctx))
	assert.Nil(t, GetProfile(ctx))
	assert.False(t, SignedIn(ctx))

	p := domain.FreeProfile(uuid.New())
	ctx = SetViewer(ctx, &Viewer{UserID: p.UserID, Profile: p})
	assert.True(t, SignedIn(ctx))
	assert.Same(t, p, GetProfile(ctx))
}
