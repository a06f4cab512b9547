package auth

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/good-food-maalsi/auth-service/middleware/jwtware"
)

const (
	// AccessTokenCookie carries the short lived access token.
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie carries the long lived refresh token.
	RefreshTokenCookie = "refreshToken"
)

// RoutePolicies is the authorization table for protected routes, keyed by
// route name. Adding a protected route means adding a row here; there is no
// implicit policy.
var RoutePolicies = map[string]jwtware.Policy{
	"auth.profile.get": {},
	"auth.unsubscribe.delete": {},
	"admin.create-user.post": {
		RequiredRoles: []string{RoleAdmin, RoleFranchiseOwner},
	},
	"admin.franchise-users.get": {
		RequiredRoles:  []string{RoleAdmin, RoleFranchiseOwner},
		FranchiseParam: "franchiseId",
		BypassRole:     RoleAdmin,
	},
}

// PolicyFor returns the policy registered for a route name. Unknown names
// get the zero policy, which still requires a valid access token.
func PolicyFor(name string) jwtware.Policy {
	return RoutePolicies[name]
}

// RouteAuthenticator owns the HTTP side of authentication: credential
// cookies, the protected route middleware and the JSON error envelope.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	validator    TokenValidator
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, validator TokenValidator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("HTTP authenticator requires an Authenticator", errors.CategoryBadInput)
	}

	if validator == nil {
		return nil, errors.New("HTTP authenticator requires a TokenValidator", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		cfg:       cfg,
		auth:      auther,
		validator: validator,
		Logger:    defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute builds the guard middleware for one route policy.
func (a *RouteAuthenticator) ProtectedRoute(policy jwtware.Policy) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: a.guardErrorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(a.cfg.GetSigningKey()),
			JWTAlg: a.cfg.GetSigningMethod(),
		},
		AuthScheme:     a.cfg.GetAuthScheme(),
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		TokenValidator: validatorAdapter{a.validator},
		Policy:         policy,
	})
}

// validatorAdapter bridges the package TokenValidator into the jwtware
// mirror interface.
type validatorAdapter struct {
	validator TokenValidator
}

func (v validatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SetTokenCookies writes both credential cookies with expiries matching the
// tokens they carry.
func (a *RouteAuthenticator) SetTokenCookies(c router.Context, pair *TokenPair) {
	a.setCookie(c, AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt)
	a.setCookie(c, RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt)
}

// ClearTokenCookies expires both credential cookies.
func (a *RouteAuthenticator) ClearTokenCookies(c router.Context) {
	a.cookieDel(c, AccessTokenCookie)
	a.cookieDel(c, RefreshTokenCookie)
}

func (a *RouteAuthenticator) setCookie(c router.Context, name, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) guardErrorHandler(c router.Context, err error) error {
	switch err {
	case jwtware.ErrJWTMissingOrMalformed:
		return a.ErrorHandler(c, errors.Wrap(err, errors.CategoryAuth, "Authentication required").
			WithTextCode(TextCodeTokenMalformed).
			WithCode(errors.CodeUnauthorized))
	case jwtware.ErrMissingFranchiseID:
		return a.ErrorHandler(c, errors.Wrap(err, errors.CategoryBadInput, err.Error()).
			WithCode(errors.CodeBadRequest))
	case jwtware.ErrFranchiseScope:
		return a.ErrorHandler(c, ErrFranchiseMismatch)
	default:
		if IsTokenExpiredError(err) {
			return a.ErrorHandler(c, ErrTokenExpired)
		}
		if errors.Is(err, jwtware.ErrInsufficientRole) {
			return a.ErrorHandler(c, ErrForbidden)
		}
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return a.ErrorHandler(c, richErr)
		}
		return a.ErrorHandler(c, errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized))
	}
}

// errorEnvelope is the JSON error body every failed request gets.
type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message"`
	Path       string `json:"path"`
	TextCode   string `json:"textCode,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Request error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = categoryStatus(richErr.Category)
	}

	envelope := errorEnvelope{
		StatusCode: code,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Message:    richErr.Message,
		Path:       c.OriginalURL(),
		TextCode:   richErr.TextCode,
	}

	if !a.cfg.IsProduction() && richErr.Source != nil {
		envelope.Stacktrace = richErr.Source.Error()
	}

	return c.JSON(code, envelope)
}

func categoryStatus(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return router.StatusUnauthorized
	case errors.CategoryAuthz:
		return router.StatusForbidden
	case errors.CategoryNotFound:
		return router.StatusNotFound
	case errors.CategoryConflict:
		return router.StatusConflict
	case errors.CategoryBadInput, errors.CategoryValidation:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}
