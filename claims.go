package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind discriminates the token families minted by the service. The kind
// travels inside the signed payload so a refresh token can never pass an
// access check.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
	TokenKindMagic   TokenKind = "magic"
)

// AuthClaims is the read side of a verified token
type AuthClaims interface {
	Subject() string
	UserID() string
	RoleNames() []string
	HasRole(role string) bool
	HasAnyRole(roles ...string) bool
	FranchiseRef() (string, bool)
	TokenKind() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	Kind     TokenKind      `json:"kind,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	Tenant   string         `json:"tenantId,omitempty"`
	Email    string         `json:"email,omitempty"`
	Username string         `json:"username,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	return c.Subject()
}

// RoleNames returns the role names carried by the token. Callers get the
// slice as issued; treat it as read only.
func (c *JWTClaims) RoleNames() []string {
	return c.Roles
}

// HasRole checks if the token carries the named role.
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the token carries at least one of the named roles.
func (c *JWTClaims) HasAnyRole(roles ...string) bool {
	return HasAnyRole(c.Roles, roles...)
}

// FranchiseRef returns the tenant claim and whether it is present.
func (c *JWTClaims) FranchiseRef() (string, bool) {
	return c.Tenant, c.Tenant != ""
}

// TokenKind returns the kind discriminator as a string.
func (c *JWTClaims) TokenKind() string {
	return string(c.Kind)
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
