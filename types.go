package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenPair bundles the bearer credentials issued on login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, *User, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	VerifyMagicToken(ctx context.Context, token string) (string, error)
	Unsubscribe(ctx context.Context, userID uuid.UUID) error
}

// TokenService issues and verifies the three token kinds used by the service.
// Validate is the only method that may gate access. DecodeUnverified reads
// claims without a signature check and must never feed an authorization
// decision.
type TokenService interface {
	IssueAccess(userID uuid.UUID, roles []string, franchiseID *uuid.UUID) (string, time.Time, error)
	IssueRefresh(userID uuid.UUID) (string, time.Time, error)
	IssueMagic(email, username string) (string, time.Time, error)
	Validate(tokenString string, kind TokenKind) (*JWTClaims, error)
	DecodeUnverified(tokenString string) (*JWTClaims, error)
}

// TokenValidator validates access tokens without tying callers to a concrete
// signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetMagicTokenTTL() time.Duration
	IsProduction() bool
}

// DefaultNotificationQueue is where registration magic links get published
// when no queue name is configured.
const DefaultNotificationQueue = "notifications"

// Notifier is the queue collaborator. Send is fire and forget: it reports
// enqueue success but implementations never surface transport errors to the
// caller, so a broker outage cannot fail the surrounding operation.
type Notifier interface {
	Send(ctx context.Context, queueName string, payload any) bool
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, queueName string, payload any) bool

func (f NotifierFunc) Send(ctx context.Context, queueName string, payload any) bool {
	if f == nil {
		return false
	}
	return f(ctx, queueName, payload)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
