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

// Identity is the verified subject attached to a request after session
// validation: who they are, how to reach them, and what they may do.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  UserRole
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// TokenPair is the result of a successful login, registration, or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// DeliveryStrategy selects how a token pair reaches the client.
type DeliveryStrategy string

const (
	// DeliveryCookiePair sets HttpOnly/Secure/SameSite=Strict cookies, the
	// access cookie scoped to /api/ and the refresh cookie to /api/auth/.
	DeliveryCookiePair DeliveryStrategy = "cookie-pair"
	// DeliveryBodyToken returns both tokens in the JSON response body.
	DeliveryBodyToken DeliveryStrategy = "body-token"
)

// Authenticator holds methods to deal with the session lifecycle.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	IdentityFromToken(ctx context.Context, raw string) (Identity, error)
}

// Config holds auth options. Values are read once at construction time and
// never re-read per request.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetBcryptCost() int
	GetBootstrapAdminEmail() string
	GetDeliveryStrategy() DeliveryStrategy
	GetSingleSession() bool
}

// Mailer is the outbound email collaborator. Configured reports whether a
// transport exists; when it does not, registration skips email verification
// entirely.
type Mailer interface {
	Configured() bool
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// NoopMailer is the default Mailer: unconfigured, never sends.
type NoopMailer struct{}

func (NoopMailer) Configured() bool { return false }

func (NoopMailer) SendVerification(context.Context, string, string) error { return nil }

func (NoopMailer) SendPasswordReset(context.Context, string, string) error { return nil }

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
