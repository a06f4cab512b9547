package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type Auther struct {
	repo         RepositoryManager
	hasher       PasswordAuthenticator
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	return &Auther{
		repo:         repo,
		hasher:       NewArgon2Hasher(),
		tokenService: NewTokenService(cfg, defLogger{}),
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

func (s *Auther) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credential pair and mints an access and refresh token
// pair. Lookup misses and password mismatches both come back as
// ErrInvalidCredentials so callers cannot probe for registered emails.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, *User, error) {
	user, err := s.repo.Users().GetByEmailWithRoles(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("Login unknown identifier", "identifier", identifier)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("Login user lookup error", "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("Login password mismatch", "user_id", user.ID)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("Login password compare error", "error", err)
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to verify password")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Login success", "user_id", user.ID)

	return pair, user, nil
}

// Refresh validates a refresh token and mints a fresh pair. Roles and
// franchise scope are re-read from persistence, not copied from the old
// token, so changes made since the last login take effect here.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.Validate(refreshToken, TokenKindRefresh)
	if err != nil {
		s.logger.Warn("Refresh token rejected", "error", err)
		return nil, err
	}

	userID, err := ParseUserID(claims.Subject())
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetWithRoles(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("Refresh subject no longer exists", "user_id", userID)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Refresh user lookup error", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Refresh success", "user_id", user.ID)

	return pair, nil
}

// VerifyMagicToken checks an email verification token, flags the account as
// verified and returns the address the token was minted for.
func (s *Auther) VerifyMagicToken(ctx context.Context, token string) (string, error) {
	claims, err := s.tokenService.Validate(token, TokenKindMagic)
	if err != nil {
		s.logger.Warn("VerifyMagicToken rejected", "error", err)
		return "", err
	}

	email := claims.Email
	if email == "" {
		email = claims.Subject()
	}
	email = NormalizeEmail(email)

	if err := s.repo.Users().MarkEmailVerified(ctx, email); err != nil {
		if !repository.IsRecordNotFound(err) {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to flag email verified")
		}
		// account deleted between registration and verification, the token
		// itself is still good
		s.logger.Warn("VerifyMagicToken no live account", "email", email)
	}

	return email, nil
}

// Unsubscribe removes the caller's own account. A second call for the same
// account reports not found.
func (s *Auther) Unsubscribe(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Users().SoftDelete(ctx, userID); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound.Clone().WithMetadata(map[string]any{
				"id": userID.String(),
			})
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete account")
	}

	s.logger.Info("Unsubscribe", "user_id", userID)

	return nil
}

func (s *Auther) issuePair(user *User) (*TokenPair, error) {
	access, accessExp, err := s.tokenService.IssueAccess(user.ID, user.RoleNames(), user.FranchiseID)
	if err != nil {
		s.logger.Error("issuePair access token error", "error", err)
		return nil, err
	}

	refresh, refreshExp, err := s.tokenService.IssueRefresh(user.ID)
	if err != nil {
		s.logger.Error("issuePair refresh token error", "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
