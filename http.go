package auth

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	// AccessCookieName carries the short-lived JWT.
	AccessCookieName = "access_token"
	// RefreshCookieName carries the opaque refresh token. Path-scoped to the
	// refresh endpoint so the browser never sends it anywhere else.
	RefreshCookieName = "refresh_token"

	accessCookiePath  = "/api"
	refreshCookiePath = "/api/auth"

	identityLocalsKey = "auth:identity"

	authScheme  = "Bearer"
	headerAuthz = "Authorization"
)

// RouteAuthenticator wires the authenticator into HTTP middleware: token
// extraction, per-request session validation, the admin guard, and the
// cookie-pair delivery used by browser clients.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}
	a.ErrorHandler = a.renderError
	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute validates the access token on every request and attaches the
// authenticated identity. Validation goes through the store so bans take
// effect on the next request, not at token expiry. A missing or unparseable
// carrier is a 401; a well-formed token that fails validation is a 403.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := extractRawToken(ctx)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			identity, err := a.auth.IdentityFromToken(ctx.Context(), raw)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			ctx.Locals(identityLocalsKey, identity)
			ctx.SetContext(WithIdentityContext(ctx.Context(), identity))

			return hf(ctx)
		}
	}
}

// RequireAdmin rejects non-admin identities. Must run after ProtectedRoute.
func (a *RouteAuthenticator) RequireAdmin() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			identity, err := IdentityFromRoute(ctx)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			if !identity.IsAdmin() {
				return a.ErrorHandler(ctx, ErrAdminOnly)
			}

			return hf(ctx)
		}
	}
}

// IdentityFromRoute retrieves the identity attached by ProtectedRoute.
func IdentityFromRoute(ctx router.Context) (Identity, error) {
	if identity, ok := ctx.Locals(identityLocalsKey).(Identity); ok {
		return identity, nil
	}
	if identity, ok := IdentityFromContext(ctx.Context()); ok {
		return identity, nil
	}
	return Identity{}, ErrAuthRequired
}

// extractRawToken checks the Authorization header first, then the access
// cookie. A present-but-malformed header is rejected rather than falling
// through to the cookie.
func extractRawToken(ctx router.Context) (string, error) {
	header := ctx.GetString(headerAuthz, "")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) || parts[1] == "" {
			return "", ErrAuthRequired.Clone().WithMetadata(map[string]any{
				"reason": "malformed authorization header",
			})
		}
		return parts[1], nil
	}

	if raw := ctx.Cookies(AccessCookieName); raw != "" {
		return raw, nil
	}

	return "", ErrAuthRequired
}

// SetTokenCookies installs the cookie pair for a freshly minted token set.
func (a *RouteAuthenticator) SetTokenCookies(ctx router.Context, pair *TokenPair) {
	ctx.Cookie(&router.Cookie{
		Name:     AccessCookieName,
		Value:    pair.AccessToken,
		Path:     accessCookiePath,
		Expires:  pair.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
	ctx.Cookie(&router.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

// ClearTokenCookies expires both cookies. Paths must match the set paths or
// browsers keep the originals.
func (a *RouteAuthenticator) ClearTokenCookies(ctx router.Context) {
	a.cookieDel(ctx, AccessCookieName, accessCookiePath)
	a.cookieDel(ctx, RefreshCookieName, refreshCookiePath)
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name, path string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

// renderError maps rich errors onto the JSON error envelope. Unknown errors
// are flattened to a generic 500 so internals never leak to clients.
func (a *RouteAuthenticator) renderError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"request error",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = errors.CodeInternal
	}

	body := map[string]any{
		"error": map[string]any{
			"code":    richErr.TextCode,
			"message": richErr.Message,
		},
	}

	if richErr.Category == errors.CategoryValidation && richErr.Metadata != nil {
		body["error"].(map[string]any)["fields"] = richErr.Metadata
	}

	return c.JSON(code, body)
}
