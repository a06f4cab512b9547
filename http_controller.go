package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes wires the auth endpoints into the router. Protected
// routes pull their policy from the RoutePolicies table.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh.post")

	app.Get(controller.Routes.Logout, controller.Logout).
		SetName("auth.logout.get")
	app.Post(controller.Routes.Logout, controller.Logout).
		SetName("auth.logout.post")

	app.Get(controller.Routes.Verify, controller.Verify).
		SetName("auth.verify.get")

	app.Delete(controller.Routes.Unsubscribe,
		controller.guard("auth.unsubscribe.delete")(controller.Unsubscribe)).
		SetName("auth.unsubscribe.delete")

	app.Get(controller.Routes.Profile,
		controller.guard("auth.profile.get")(controller.Profile)).
		SetName("auth.profile.get")
}

type AuthControllerRoutes struct {
	Register    string
	Login       string
	Refresh     string
	Logout      string
	Verify      string
	Unsubscribe string
	Profile     string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       Authenticator
	HTTP         *RouteAuthenticator
	Register     *RegisterUserHandler
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register:    "/auth/register",
			Login:       "/auth/login",
			Refresh:     "/auth/refresh",
			Logout:      "/auth/logout",
			Verify:      "/auth/verify",
			Unsubscribe: "/auth/unsubscribe",
			Profile:     "/auth/profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.HTTP == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Register == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.HTTP.ErrorHandler
	}

	return c
}

func WithAuthRepository(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithRouteAuthenticator(http *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.HTTP = http
		return c
	}
}

func WithRegisterHandler(handler *RegisterUserHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = handler
		return c
	}
}

func WithAuthLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func (a *AuthController) guard(routeName string) router.MiddlewareFunc {
	return a.HTTP.ProtectedRoute(PolicyFor(routeName))
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("LoginPost bind error", "error", err)
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	pair, user, err := a.Auther.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.HTTP.SetTokenCookies(ctx, pair)

	summary := summarize(user)
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    summary,
		"tokens":  pair,
	})
}

// RegisterRequest is the self service registration payload
type RegisterRequest struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	Phone           string `form:"phone" json:"phone"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("RegisterPost bind error", "error", err)
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("RegisterPost validation error", "error", err)
		return a.ErrorHandler(ctx, validationError(err))
	}

	user, err := a.Register.Execute(ctx.Context(), RegisterUserMessage{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Phone:    payload.Phone,
	})
	if err != nil {
		a.Logger.Error("RegisterPost execute error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	summary := summarize(user)
	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "User registered successfully, confirm your email before logging",
		"user":    summary,
	})
}

// RefreshRequest carries a refresh token for clients that do not use cookies.
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	token := ctx.Cookies(RefreshTokenCookie, "")

	if token == "" {
		payload := new(RefreshRequest)
		if err := ctx.Bind(payload); err == nil {
			token = payload.RefreshToken
		}
	}

	if token == "" {
		return a.ErrorHandler(ctx, goerrors.New("refresh token not found", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden))
	}

	pair, err := a.Auther.Refresh(ctx.Context(), token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.HTTP.SetTokenCookies(ctx, pair)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Tokens refreshed",
		"tokens":  pair,
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	a.HTTP.ClearTokenCookies(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Logged out",
	})
}

func (a *AuthController) Verify(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return a.ErrorHandler(ctx, goerrors.New("token is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	email, err := a.Auther.VerifyMagicToken(ctx.Context(), token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"email":   email,
	})
}

func (a *AuthController) Unsubscribe(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.HTTP.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	userID, err := ParseUserID(claims.Subject())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auther.Unsubscribe(ctx.Context(), userID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.HTTP.ClearTokenCookies(ctx)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Unsubscribed successfully",
	})
}

func (a *AuthController) Profile(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.HTTP.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	userID, err := ParseUserID(claims.Subject())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetWithRoles(ctx.Context(), userID)
	if err != nil {
		return a.ErrorHandler(ctx, ErrIdentityNotFound)
	}

	summary := summarize(user)
	return ctx.JSON(router.StatusOK, map[string]any{
		"user": summary,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func bindError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithCode(goerrors.CodeBadRequest)
}
