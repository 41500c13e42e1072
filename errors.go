package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeAccountSuspended     = "ACCOUNT_SUSPENDED"
	TextCodeVerificationRequired = "VERIFICATION_REQUIRED"
	TextCodeAuthRequired         = "AUTHENTICATION_REQUIRED"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeAdminOnly            = "ADMIN_ONLY"
	TextCodeSelfTarget           = "SELF_TARGET_FORBIDDEN"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeResetTokenInvalid    = "RESET_TOKEN_INVALID"
	TextCodeVerifyTokenInvalid   = "VERIFICATION_TOKEN_INVALID"
	TextCodeRefreshTokenInvalid  = "REFRESH_TOKEN_INVALID"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeSigningKeyMissing    = "SIGNING_KEY_MISSING"
)

// ErrInvalidCredentials covers unknown email and wrong password alike so the
// response never reveals whether an account exists.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountSuspended is returned when a banned account authenticates with an
// otherwise valid credential.
var ErrAccountSuspended = errors.New("account suspended", errors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(errors.CodeForbidden)

// ErrVerificationRequired is returned when login succeeds except the email
// address has not been verified yet.
var ErrVerificationRequired = errors.New("email verification required", errors.CategoryAuth).
	WithTextCode(TextCodeVerificationRequired).
	WithCode(errors.CodeForbidden)

// ErrAuthRequired is returned when no credential is present on the request.
var ErrAuthRequired = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeAuthRequired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for structurally valid tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeForbidden)

// ErrTokenMalformed is returned for tokens that fail signature or structural
// checks.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeForbidden)

// ErrAdminOnly is returned when a validated identity lacks the admin role.
var ErrAdminOnly = errors.New("forbidden: admin only", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminOnly).
	WithCode(errors.CodeForbidden)

// ErrSelfTarget is returned when an admin aims a privileged mutation at their
// own account.
var ErrSelfTarget = errors.New("cannot target your own account", errors.CategoryAuthz).
	WithTextCode(TextCodeSelfTarget).
	WithCode(errors.CodeForbidden)

// ErrEmailTaken is the internal duplicate-account error. The registration flow
// swallows it into an enumeration-safe success response; it only surfaces
// through logs.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrResetTokenInvalid covers absent, expired, and already-used reset tokens.
var ErrResetTokenInvalid = errors.New("invalid or expired reset token", errors.CategoryValidation).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrVerifyTokenInvalid covers absent, expired, and already-used verification
// tokens.
var ErrVerifyTokenInvalid = errors.New("invalid or expired verification token", errors.CategoryValidation).
	WithTextCode(TextCodeVerifyTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrRefreshTokenInvalid covers absent, expired, and revoked refresh tokens.
var ErrRefreshTokenInvalid = errors.New("invalid or expired refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch error; callers
// translate it to ErrInvalidCredentials before it leaves the package.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrSigningKeyMissing aborts construction when no JWT secret is configured.
// The token service fails closed rather than issuing unsigned tokens.
var ErrSigningKeyMissing = errors.New("signing key is required", errors.CategoryInternal).
	WithTextCode(TextCodeSigningKeyMissing).
	WithCode(errors.CodeInternal)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
