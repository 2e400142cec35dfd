package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/fitcoach-api/internal/models"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "fitcoach-test",
	})
}

func TestAuthService_IssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	token, expiresAt, err := svc.IssueToken(TokenSubject{UserID: "user-1", Role: models.RoleStaff, GymID: "gym-1", Email: "desk@example.com"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, "gym-1", claims.GymID)
}

func TestAuthService_IssueTokenValidatesSubject(t *testing.T) {
	svc := newTestAuthService()

	_, _, err := svc.IssueToken(TokenSubject{UserID: "user-1", Role: "janitor"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthService_ValidateTokenRejects(t *testing.T) {
	svc := newTestAuthService()

	token, _, err := svc.IssueToken(TokenSubject{UserID: "user-1", Role: models.RoleCoach})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.ValidateToken(token)
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "fitcoach-test"})
		_, err := other.ValidateToken(token)
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "user-1"})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(raw)
		assert.Error(t, err)
	})
}
