package auth

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeTokenKindMismatch  = "auth_token_kind_mismatch"
	TextCodeEmailExists        = "auth_email_exists"
	TextCodeIdentityNotFound   = "auth_identity_not_found"
	TextCodeRoleNotFound       = "auth_role_not_found"
	TextCodeForbidden          = "auth_forbidden"
	TextCodeFranchiseRequired  = "auth_franchise_required"
	TextCodeFranchiseMismatch  = "auth_franchise_mismatch"
	TextCodeWeakPassword       = "auth_weak_password"
)

// ErrInvalidCredentials is returned for a bad identifier/password pair. The
// message never says which of the two was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is past its expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token fails parsing or signature
// verification for any reason other than expiry.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenKindMismatch is returned when a token of one kind is presented
// where another kind is required, e.g. a refresh token sent as access token.
var ErrTokenKindMismatch = errors.New("token kind mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenKindMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrEmailAlreadyExists is returned when registration hits an email that is
// already taken.
var ErrEmailAlreadyExists = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// ErrIdentityNotFound is returned when a user lookup comes back empty.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrRoleNotFound is returned when a role name does not exist in persistence.
var ErrRoleNotFound = errors.New("role not found", errors.CategoryNotFound).
	WithTextCode(TextCodeRoleNotFound).
	WithCode(errors.CodeNotFound)

// ErrForbidden is returned when an authenticated caller lacks the required
// role for an operation.
var ErrForbidden = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrFranchiseRequired is returned when a franchise scoped caller carries no
// franchise claim.
var ErrFranchiseRequired = errors.New("franchise assignment required", errors.CategoryAuthz).
	WithTextCode(TextCodeFranchiseRequired).
	WithCode(errors.CodeForbidden)

// ErrFranchiseMismatch is returned when a caller targets a franchise other
// than their own.
var ErrFranchiseMismatch = errors.New("franchise out of scope", errors.CategoryAuthz).
	WithTextCode(TextCodeFranchiseMismatch).
	WithCode(errors.CodeForbidden)

// ErrWeakPassword is returned when a candidate password fails policy checks.
var ErrWeakPassword = errors.New("password does not meet requirements", errors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return e.TextCode == TextCodeTokenExpired
	}
	return false
}

// IsAuthError reports whether err belongs to the authentication category.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Category == errors.CategoryAuth || e.Category == errors.CategoryAuthz
	}
	return false
}
