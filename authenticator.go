package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther implements the credential and session lifecycle: the login pipeline,
// access-token refresh with rotation, logout, and per-request session
// validation with a live ban re-check.
type Auther struct {
	repo          RepositoryManager
	tokenService  TokenService
	mailer        Mailer
	refreshTTL    time.Duration
	singleSession bool
	logger        Logger
}

// NewAuthenticator returns a new Authenticator. Construction fails when the
// signing key is absent; we never fall back to unsigned tokens.
func NewAuthenticator(repo RepositoryManager, opts Config) (*Auther, error) {
	tokenService, err := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetAccessTokenTTL(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)
	if err != nil {
		return nil, err
	}

	refreshTTL := opts.GetRefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &Auther{
		repo:          repo,
		tokenService:  tokenService,
		mailer:        NoopMailer{},
		refreshTTL:    refreshTTL,
		singleSession: opts.GetSingleSession(),
		logger:        defLogger{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMailer configures the outbound email collaborator. Its Configured flag
// decides whether unverified accounts may log in.
func (s *Auther) WithMailer(mailer Mailer) *Auther {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// WithTokenService overrides the access token issuer/validator.
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

// Login runs the credential pipeline. Each step short-circuits:
//
//  1. lookup by normalized email; a missing account reports the same
//     invalid-credentials error as a wrong password
//  2. ban check, before the password compare, reporting the stored reason
//  3. bcrypt compare
//  4. verification check, only when a mailer is configured
//
// On success a fresh access/refresh pair is issued. Existing refresh tokens
// survive unless the single-session policy is on.
func (s *Auther) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
	}

	if user.Banned {
		return nil, nil, suspendedError(user)
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if s.mailer.Configured() && !user.EmailVerified {
		return nil, nil, ErrVerificationRequired.Clone().
			WithMetadata(map[string]any{"email": user.Email})
	}

	if s.singleSession {
		if err := s.repo.RefreshTokens().RevokeAllForUser(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke prior sessions on login", "error", err)
		}
	}

	pair, err := s.issuePair(ctx, user.Identity())
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh validates an opaque refresh token and mints a new pair. The spent
// token is revoked in the same operation; verification on its own never
// rotates.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := s.repo.RefreshTokens().Verify(ctx, refreshToken)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	user, err := s.repo.Users().GetByID(ctx, record.UserID.String())
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	if user.Banned {
		return nil, suspendedError(user)
	}

	pair, err := s.issuePair(ctx, user.Identity())
	if err != nil {
		return nil, err
	}

	if err := s.repo.RefreshTokens().Revoke(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to revoke rotated refresh token", "error", err)
	}

	return pair, nil
}

// Logout revokes the presented refresh token. Best effort: an absent or
// already revoked token is not an error, and the caller always sees success.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.RefreshTokens().Revoke(ctx, refreshToken); err != nil {
		s.logger.Warn("logout revocation failed", "error", err)
	}
	return nil
}

// IdentityFromToken validates an access token and re-checks live ban state
// from the store. The token payload is not trusted for ban status: bans land
// after issuance, and a stale ban-exempt token is a correctness bug.
func (s *Auther) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		return Identity{}, err
	}

	jwtClaims, ok := claims.(*JWTClaims)
	if !ok {
		return Identity{}, ErrTokenMalformed
	}

	identity, err := jwtClaims.Identity()
	if err != nil {
		return Identity{}, err
	}

	user, err := s.repo.Users().GetByID(ctx, identity.ID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return Identity{}, ErrTokenMalformed
		}
		return Identity{}, errors.Wrap(err, errors.CategoryInternal, "failed to re-check account state")
	}

	if user.Banned {
		return Identity{}, suspendedError(user)
	}

	// the store is authoritative for role as well; a stale token cannot
	// keep privileges that were since revoked
	return user.Identity(), nil
}

// IssuePair mints an access/refresh pair for an identity. Exposed for the
// registration flow, which issues a session without passing through Login.
func (s *Auther) IssuePair(ctx context.Context, identity Identity) (*TokenPair, error) {
	return s.issuePair(ctx, identity)
}

func (s *Auther) issuePair(ctx context.Context, identity Identity) (*TokenPair, error) {
	access, accessExp, err := s.tokenService.Generate(identity)
	if err != nil {
		return nil, err
	}

	refresh, record, err := s.repo.RefreshTokens().Issue(ctx, identity.ID, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func suspendedError(user *User) error {
	reason := "account suspended"
	if user.BanReason != nil && *user.BanReason != "" {
		reason = *user.BanReason
	}
	return ErrAccountSuspended.Clone().
		WithMetadata(map[string]any{"reason": reason})
}

var _ Authenticator = (*Auther)(nil)
