package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Actor identifies the caller of a privileged operation, as established by
// the guard chain from verified claims.
type Actor struct {
	UserID      uuid.UUID
	Roles       []string
	FranchiseID *string
}

// ActorFromClaims builds an Actor from verified access claims.
func ActorFromClaims(claims AuthClaims) (Actor, error) {
	id, err := ParseUserID(claims.Subject())
	if err != nil {
		return Actor{}, err
	}

	actor := Actor{
		UserID: id,
		Roles:  append([]string{}, claims.RoleNames()...),
	}

	if franchise, ok := claims.FranchiseRef(); ok {
		actor.FranchiseID = &franchise
	}

	return actor, nil
}

// CreatePrivilegedUserMessage is the admin create-user input.
type CreatePrivilegedUserMessage struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	FranchiseID string `json:"franchise_id"`
	Phone       string `json:"phone,omitempty"`
	PhoneRegion string `json:"phone_region,omitempty"`
}

func (e CreatePrivilegedUserMessage) Type() string { return "admin.create_user" }

// UserSummary is the admin facing projection of a user. It never carries the
// password digest.
type UserSummary struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Roles       []string   `json:"roles,omitempty"`
	FranchiseID *uuid.UUID `json:"franchise_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func summarize(user *User) UserSummary {
	return UserSummary{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       user.RoleNames(),
		FranchiseID: user.FranchiseID,
		CreatedAt:   user.CreatedAt,
	}
}

// Admin coordinates franchise scoped user management.
type Admin struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	logger Logger
}

func NewAdmin(repo RepositoryManager) *Admin {
	return &Admin{
		repo:   repo,
		hasher: NewArgon2Hasher(),
		logger: defLogger{},
	}
}

func (a *Admin) WithLogger(logger Logger) *Admin {
	a.logger = logger
	return a
}

func (a *Admin) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Admin {
	if hasher != nil {
		a.hasher = hasher
	}
	return a
}

// CreatePrivilegedUser creates a STAFF or FRANCHISE_OWNER account inside the
// actor's franchise. Admin actors may target any franchise.
func (a *Admin) CreatePrivilegedUser(ctx context.Context, actor Actor, input CreatePrivilegedUserMessage) (*UserSummary, error) {
	if input.Role != RoleStaff && input.Role != RoleFranchiseOwner {
		return nil, goerrors.New("role must be STAFF or FRANCHISE_OWNER", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": input.Role})
	}

	if input.FranchiseID == "" {
		return nil, goerrors.New("franchise id is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	franchiseID, err := uuid.Parse(input.FranchiseID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid franchise id").
			WithCode(goerrors.CodeBadRequest)
	}

	if !CanManageFranchise(actor.Roles, actor.FranchiseID, input.FranchiseID) {
		a.logger.Warn("CreatePrivilegedUser scope rejected",
			"actor", actor.UserID, "target_franchise", input.FranchiseID)
		return nil, ErrFranchiseMismatch
	}

	if input.Phone != "" {
		if err := validatePhone(input.Phone, input.PhoneRegion); err != nil {
			return nil, err
		}
	}

	user := &User{}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := NormalizeEmail(input.Email)

		if _, err := a.repo.Users().GetByIdentifierTx(ctx, tx, email); err == nil {
			return ErrEmailAlreadyExists.Clone().WithMetadata(map[string]any{
				"email": email,
			})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing email")
		}

		hash, err := a.hasher.HashPassword(input.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = email
		user.Username = getUsername(input.Username, email)
		user.PasswordHash = hash
		user.FranchiseID = &franchiseID

		if user, err = a.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsUniqueViolation(err) {
				return ErrEmailAlreadyExists.Clone().WithMetadata(map[string]any{
					"email": email,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		role, err := a.repo.Roles().GetByNameTx(ctx, tx, input.Role)
		if err != nil {
			return err
		}

		if err := a.repo.Users().AssignRoleTx(ctx, tx, user.ID, role.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not assign role")
		}

		user.Roles = append(user.Roles, role)

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create user transaction failed")
	}

	a.logger.Info("CreatePrivilegedUser",
		"actor", actor.UserID, "user_id", user.ID, "role", input.Role, "franchise", franchiseID)

	summary := summarize(user)
	return &summary, nil
}

// ListUsersByFranchise returns the users attached to a franchise. Admins see
// any franchise, franchise owners only their own.
func (a *Admin) ListUsersByFranchise(ctx context.Context, actor Actor, franchiseID string) ([]UserSummary, error) {
	id, err := uuid.Parse(franchiseID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid franchise id").
			WithCode(goerrors.CodeBadRequest)
	}

	if !CanManageFranchise(actor.Roles, actor.FranchiseID, franchiseID) {
		a.logger.Warn("ListUsersByFranchise scope rejected",
			"actor", actor.UserID, "target_franchise", franchiseID)
		return nil, ErrFranchiseMismatch
	}

	users, err := a.repo.Users().ListByFranchise(ctx, id)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list franchise users")
	}

	out := make([]UserSummary, 0, len(users))
	for _, user := range users {
		out = append(out, summarize(user))
	}

	return out, nil
}
