package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/good-food-maalsi/auth-service"
	"github.com/stretchr/testify/assert"
)

func TestJWTClaims_Accessors(t *testing.T) {
	now := time.Now()
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
		Kind:   auth.TokenKindAccess,
		Roles:  []string{auth.RoleStaff},
		Tenant: "franchise-1",
	}

	assert.Equal(t, "user-123", claims.Subject())
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, []string{auth.RoleStaff}, claims.RoleNames())
	assert.Equal(t, string(auth.TokenKindAccess), claims.TokenKind())
	assert.WithinDuration(t, now.Add(5*time.Minute), claims.Expires(), time.Second)
	assert.WithinDuration(t, now, claims.IssuedAt(), time.Second)

	franchise, ok := claims.FranchiseRef()
	assert.True(t, ok)
	assert.Equal(t, "franchise-1", franchise)
}

func TestJWTClaims_RoleChecks(t *testing.T) {
	claims := &auth.JWTClaims{Roles: []string{auth.RoleStaff, auth.RoleCustomer}}

	assert.True(t, claims.HasRole(auth.RoleStaff))
	assert.False(t, claims.HasRole(auth.RoleAdmin))
	assert.True(t, claims.HasAnyRole(auth.RoleAdmin, auth.RoleCustomer))
	assert.False(t, claims.HasAnyRole(auth.RoleAdmin, auth.RoleFranchiseOwner))
	assert.True(t, claims.HasAnyRole(), "empty requirement always passes")
}

func TestJWTClaims_ZeroValues(t *testing.T) {
	claims := &auth.JWTClaims{}

	assert.Empty(t, claims.Subject())
	assert.Empty(t, claims.RoleNames())
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())

	_, ok := claims.FranchiseRef()
	assert.False(t, ok)
}
