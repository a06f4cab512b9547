package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone,omitempty"`
	PhoneRegion string `json:"phone_region,omitempty"`
	FranchiseID string `json:"franchise_id,omitempty"`
	Role        string `json:"role,omitempty"`
	UseHashid   bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// MagicLinkNotification is the payload pushed to the queue after a
// successful registration. A consumer turns it into the verification email.
type MagicLinkNotification struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	MagicToken string `json:"magicToken"`
}

// RegisterUserHandler creates a user with the CUSTOMER role and queues the
// email verification notification.
type RegisterUserHandler struct {
	repo         RepositoryManager
	tokenService TokenService
	notifier     Notifier
	queueName    string
	logger       Logger
}

func NewRegisterUserHandler(repo RepositoryManager, ts TokenService, notifier Notifier, queueName string, logger Logger) *RegisterUserHandler {
	if logger == nil {
		logger = defLogger{}
	}
	if queueName == "" {
		queueName = DefaultNotificationQueue
	}
	return &RegisterUserHandler{
		repo:         repo,
		tokenService: ts,
		notifier:     notifier,
		queueName:    queueName,
		logger:       logger,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role := event.Role
	if role == "" {
		role = RoleCustomer
	}
	if !IsValidRole(role) {
		return nil, goerrors.New("unknown role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": role})
	}

	if event.Phone != "" {
		if err := validatePhone(event.Phone, event.PhoneRegion); err != nil {
			return nil, err
		}
	}

	var franchiseID *uuid.UUID
	if event.FranchiseID != "" {
		id, err := uuid.Parse(event.FranchiseID)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid franchise id").
				WithCode(goerrors.CodeBadRequest)
		}
		franchiseID = &id
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := NormalizeEmail(event.Email)

		if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, email); err == nil {
			return ErrEmailAlreadyExists.Clone().WithMetadata(map[string]any{
				"email": email,
			})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing email")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = email
		user.Username = getUsername(event.Username, email)
		user.FranchiseID = franchiseID
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsUniqueViolation(err) {
				return ErrEmailAlreadyExists.Clone().WithMetadata(map[string]any{
					"email": email,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		roleRecord, err := h.repo.Roles().GetByNameTx(ctx, tx, role)
		if err != nil {
			return err
		}

		if err := h.repo.Users().AssignRoleTx(ctx, tx, user.ID, roleRecord.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not assign role")
		}

		user.Roles = append(user.Roles, roleRecord)

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.notifyRegistered(ctx, user)

	return user, nil
}

// notifyRegistered queues the verification email. Delivery problems are
// logged and swallowed: the account exists either way and the user can
// request a new magic link.
func (h *RegisterUserHandler) notifyRegistered(ctx context.Context, user *User) {
	if h.notifier == nil || h.tokenService == nil {
		return
	}

	magicToken, _, err := h.tokenService.IssueMagic(user.Email, user.Username)
	if err != nil {
		h.logger.Error("RegisterUser magic token error", "error", err, "user_id", user.ID)
		return
	}

	ok := h.notifier.Send(ctx, h.queueName, MagicLinkNotification{
		Username:   user.Username,
		Email:      user.Email,
		MagicToken: magicToken,
	})

	if !ok {
		h.logger.Warn("RegisterUser notification not queued", "user_id", user.ID, "queue", h.queueName)
	}
}

func validatePhone(phone, region string) error {
	if region == "" {
		region = "FR"
	}

	parsed, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
