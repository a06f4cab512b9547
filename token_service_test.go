package auth_test

import (
	"testing"
	"time"

	auth "github.com/good-food-maalsi/auth-service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_AccessRoundtrip(t *testing.T) {
	cfg := newTestConfig()
	service := auth.NewTokenService(cfg, noopLogger{})

	userID := uuid.New()
	franchiseID := uuid.New()
	roles := []string{auth.RoleFranchiseOwner, auth.RoleStaff}

	token, expiresAt, err := service.IssueAccess(userID, roles, &franchiseID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.WithinDuration(t, time.Now().Add(cfg.GetAccessTokenTTL()), expiresAt, 5*time.Second)

	claims, err := service.Validate(token, auth.TokenKindAccess)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.Subject())
	assert.Equal(t, roles, claims.RoleNames())
	assert.Equal(t, string(auth.TokenKindAccess), claims.TokenKind())
	assert.True(t, claims.HasRole(auth.RoleStaff))
	assert.False(t, claims.HasRole(auth.RoleAdmin))

	franchise, ok := claims.FranchiseRef()
	require.True(t, ok)
	assert.Equal(t, franchiseID.String(), franchise)
}

func TestTokenService_AccessWithoutFranchise(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	token, _, err := service.IssueAccess(uuid.New(), []string{auth.RoleCustomer}, nil)
	require.NoError(t, err)

	claims, err := service.Validate(token, auth.TokenKindAccess)
	require.NoError(t, err)

	_, ok := claims.FranchiseRef()
	assert.False(t, ok, "no tenant claim expected for unscoped users")
}

func TestTokenService_RefreshCarriesNoRoles(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	userID := uuid.New()
	token, _, err := service.IssueRefresh(userID)
	require.NoError(t, err)

	claims, err := service.Validate(token, auth.TokenKindRefresh)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.Subject())
	assert.Empty(t, claims.RoleNames())
}

func TestTokenService_MagicToken(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	token, _, err := service.IssueMagic("Tony@Example.COM ", "tony")
	require.NoError(t, err)

	claims, err := service.Validate(token, auth.TokenKindMagic)
	require.NoError(t, err)

	assert.Equal(t, "tony@example.com", claims.Subject())
	assert.Equal(t, "tony@example.com", claims.Email)
	assert.Equal(t, "tony", claims.Username)
}

func TestTokenService_KindMismatch(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	t.Run("refresh token rejected as access", func(t *testing.T) {
		refresh, _, err := service.IssueRefresh(uuid.New())
		require.NoError(t, err)

		_, err = service.Validate(refresh, auth.TokenKindAccess)
		require.Error(t, err)
		assert.True(t, auth.IsAuthError(err))
	})

	t.Run("magic token rejected as refresh", func(t *testing.T) {
		magic, _, err := service.IssueMagic("user@example.com", "user")
		require.NoError(t, err)

		_, err = service.Validate(magic, auth.TokenKindRefresh)
		require.Error(t, err)
	})
}

func TestTokenService_Expired(t *testing.T) {
	cfg := newTestConfig()
	cfg.accessTTL = -time.Minute
	service := auth.NewTokenService(cfg, noopLogger{})

	token, _, err := service.IssueAccess(uuid.New(), nil, nil)
	require.NoError(t, err)

	_, err = service.Validate(token, auth.TokenKindAccess)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenService_WrongKey(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	other := newTestConfig()
	other.signingKey = "a-completely-different-signing-key"
	otherService := auth.NewTokenService(other, noopLogger{})

	token, _, err := service.IssueAccess(uuid.New(), nil, nil)
	require.NoError(t, err)

	_, err = otherService.Validate(token, auth.TokenKindAccess)
	require.Error(t, err)
	assert.False(t, auth.IsTokenExpiredError(err))
	assert.True(t, auth.IsAuthError(err))
}

func TestTokenService_Garbage(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})

	_, err := service.Validate("not.a.token", auth.TokenKindAccess)
	assert.Error(t, err)

	_, err = service.Validate("", auth.TokenKindAccess)
	assert.Error(t, err)
}

func TestTokenService_DecodeUnverified(t *testing.T) {
	cfg := newTestConfig()
	cfg.accessTTL = -time.Minute
	service := auth.NewTokenService(cfg, noopLogger{})

	userID := uuid.New()
	token, _, err := service.IssueAccess(userID, []string{auth.RoleCustomer}, nil)
	require.NoError(t, err)

	// expired tokens still decode for diagnostics
	claims, err := service.DecodeUnverified(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject())
}

func TestAccessValidator(t *testing.T) {
	service := auth.NewTokenService(newTestConfig(), noopLogger{})
	validator := auth.AccessValidator(service)

	access, _, err := service.IssueAccess(uuid.New(), []string{auth.RoleAdmin}, nil)
	require.NoError(t, err)

	claims, err := validator.Validate(access)
	require.NoError(t, err)
	assert.True(t, claims.HasRole(auth.RoleAdmin))

	refresh, _, err := service.IssueRefresh(uuid.New())
	require.NoError(t, err)

	_, err = validator.Validate(refresh)
	assert.Error(t, err, "refresh tokens never pass the access validator")
}
