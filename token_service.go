package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	magicTTL   time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		magicTTL:   cfg.GetMagicTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
		now:        time.Now,
	}
}

// IssueAccess creates an access token carrying roles and, when the user is
// franchise scoped, the tenant claim.
func (ts *TokenServiceImpl) IssueAccess(userID uuid.UUID, roles []string, franchiseID *uuid.UUID) (string, time.Time, error) {
	claims := ts.baseClaims(userID.String(), TokenKindAccess, ts.accessTTL)
	claims.Roles = append([]string{}, roles...)
	if franchiseID != nil {
		claims.Tenant = franchiseID.String()
	}
	return ts.signClaims(claims)
}

// IssueRefresh creates a refresh token. It carries only the subject and the
// kind discriminator; roles are re-read from persistence at refresh time so
// a grant or revocation takes effect on the next rotation.
func (ts *TokenServiceImpl) IssueRefresh(userID uuid.UUID) (string, time.Time, error) {
	return ts.signClaims(ts.baseClaims(userID.String(), TokenKindRefresh, ts.refreshTTL))
}

// IssueMagic creates a short lived email verification token.
func (ts *TokenServiceImpl) IssueMagic(email, username string) (string, time.Time, error) {
	claims := ts.baseClaims(NormalizeEmail(email), TokenKindMagic, ts.magicTTL)
	claims.Email = NormalizeEmail(email)
	claims.Username = username
	return ts.signClaims(claims)
}

func (ts *TokenServiceImpl) baseClaims(subject string, kind TokenKind, ttl time.Duration) *JWTClaims {
	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	ensureTokenID(&claims.RegisteredClaims)
	return claims
}

func (ts *TokenServiceImpl) signClaims(claims *JWTClaims) (string, time.Time, error) {
	if claims == nil {
		return "", time.Time{}, errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, claims.ExpiresAt.Time, nil
}

// Validate parses and verifies a token string, returning structured claims.
// The kind check runs after signature and time checks so expiry reporting
// stays accurate regardless of which kind was presented.
func (ts *TokenServiceImpl) Validate(tokenString string, kind TokenKind) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	if claims.Kind != kind {
		return nil, ErrTokenKindMismatch.Clone().WithMetadata(map[string]any{
			"expected": string(kind),
			"got":      string(claims.Kind),
		})
	}

	return claims, nil
}

// DecodeUnverified parses claims without checking the signature or expiry.
// Diagnostics only, never use the result to authorize anything.
func (ts *TokenServiceImpl) DecodeUnverified(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}
	return claims, nil
}

// AccessValidator adapts the token service into the TokenValidator shape the
// HTTP guard consumes. Only access tokens pass.
func AccessValidator(ts TokenService) TokenValidator {
	return TokenValidatorFunc(func(tokenString string) (AuthClaims, error) {
		return ts.Validate(tokenString, TokenKindAccess)
	})
}
