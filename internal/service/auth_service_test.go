package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "rvm-test"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	token, expiresAt, err := svc.IssueToken("user-1", "Ana Approver", models.RoleApprover)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleApprover, claims.Role)
	assert.Equal(t, "Ana Approver", claims.FullName)
}

func TestAuthServiceRejectsUnknownRole(t *testing.T) {
	_, _, err := newTestAuthService().IssueToken("user-1", "", models.UserRole("OWNER"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := newTestAuthService()

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		token, _, err := svc.IssueToken("user-1", "", models.RoleViewer)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "rvm-test"})
		token, _, err := other.IssueToken("user-1", "", models.RoleAdmin)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
		token, _, err := other.IssueToken("user-1", "", models.RoleAdmin)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	})

	t.Run("unsigned", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(raw)
		assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
	})
}
