package auth

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-router"
)

// RegisterAdminRoutes wires the franchise management endpoints. Both routes
// are protected by the RoutePolicies table.
func RegisterAdminRoutes[T any](app router.Router[T], controller *AdminController) {
	app.Post(controller.Routes.CreateUser,
		controller.guard("admin.create-user.post")(controller.CreateUser)).
		SetName("admin.create-user.post")

	app.Get(controller.Routes.FranchiseUsers,
		controller.guard("admin.franchise-users.get")(controller.ListFranchiseUsers)).
		SetName("admin.franchise-users.get")
}

type AdminControllerRoutes struct {
	CreateUser     string
	FranchiseUsers string
}

type AdminController struct {
	Logger       Logger
	Admin        *Admin
	HTTP         *RouteAuthenticator
	Routes       *AdminControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AdminControllerOption func(*AdminController) *AdminController

func NewAdminController(opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger: defLogger{},
		Routes: &AdminControllerRoutes{
			CreateUser:     "/admin/create-user",
			FranchiseUsers: "/admin/users/franchise/:franchiseId",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Admin == nil {
		panic("Missing Admin in admin controller...")
	}

	if c.HTTP == nil {
		panic("Missing RouteAuthenticator in admin controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.HTTP.ErrorHandler
	}

	return c
}

func WithAdmin(admin *Admin) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Admin = admin
		return c
	}
}

func WithAdminRouteAuthenticator(http *RouteAuthenticator) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.HTTP = http
		return c
	}
}

func WithAdminLogger(logger Logger) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func (a *AdminController) guard(routeName string) router.MiddlewareFunc {
	return a.HTTP.ProtectedRoute(PolicyFor(routeName))
}

// CreateUserRequest is the admin create-user payload
type CreateUserRequest struct {
	Username    string `form:"username" json:"username"`
	Email       string `form:"email" json:"email"`
	Password    string `form:"password" json:"password"`
	Role        string `form:"role" json:"role"`
	FranchiseID string `form:"franchise_id" json:"franchise_id"`
	Phone       string `form:"phone" json:"phone"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.Required, validation.In(RoleStaff, RoleFranchiseOwner)),
		validation.Field(&r.FranchiseID, validation.Required, is.UUIDv4),
	)
}

func (a *AdminController) CreateUser(ctx router.Context) error {
	payload := new(CreateUserRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("CreateUser bind error", "error", err)
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	actor, ok := ActorFromRouter(ctx, a.HTTP.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	summary, err := a.Admin.CreatePrivilegedUser(ctx.Context(), actor, CreatePrivilegedUserMessage{
		Username:    payload.Username,
		Email:       payload.Email,
		Password:    payload.Password,
		Role:        payload.Role,
		FranchiseID: payload.FranchiseID,
		Phone:       payload.Phone,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    summary,
	})
}

func (a *AdminController) ListFranchiseUsers(ctx router.Context) error {
	franchiseID := ctx.Param("franchiseId")

	actor, ok := ActorFromRouter(ctx, a.HTTP.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	users, err := a.Admin.ListUsersByFranchise(ctx.Context(), actor, franchiseID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": users,
	})
}
