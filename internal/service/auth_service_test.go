package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"farm-market/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(ttl time.Duration) *AuthService {
	return NewAuthService(nil, "test-secret", ttl)
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := newTestAuthService(30 * time.Minute)

	user := &models.User{ID: 42, Role: models.RoleFarmer}
	token, err := svc.issueToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, strconv.FormatInt(user.ID, 10), claims.Subject)
	assert.Equal(t, models.RoleFarmer, claims.Role)
	assert.Equal(t, "farm-market", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := newTestAuthService(30 * time.Minute)
	token, err := issuer.issueToken(&models.User{ID: 1, Role: models.RoleConsumer})
	require.NoError(t, err)

	verifier := NewAuthService(nil, "a-different-secret", 30*time.Minute)
	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestAuthService(-time.Minute)
	token, err := svc.issueToken(&models.User{ID: 1, Role: models.RoleConsumer})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateTokenRejectsNonHMAC(t *testing.T) {
	svc := newTestAuthService(30 * time.Minute)

	// alg=none tokens must never validate.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{Role: models.RoleFarmer})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(raw)
	assert.Error(t, err)
}

func TestSignupRejectsUnknownRole(t *testing.T) {
	svc := newTestAuthService(30 * time.Minute)

	_, err := svc.Signup(context.Background(), "Ann", "ann@example.com", "hunter22", "admin")
	assert.Error(t, err)
}

// Integration tests below require a running PostgreSQL instance.

func TestSignupAndLoginIntegration(t *testing.T) {
	t.Skip("Integration test - requires database")
}

func TestSignupDuplicateEmailIntegration(t *testing.T) {
	t.Skip("Integration test - requires database")
}
