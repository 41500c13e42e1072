package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler consumes a reset token: single use, bounded by
// the 1h expiry. A successful reset re-hashes the password, marks the email
// verified (the token proved mailbox access), and revokes every live session.
type FinalizePasswordResetHandler struct {
	repo       RepositoryManager
	bcryptCost int
	logger     Logger
	now        func() time.Time
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, cfg Config) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:       repo,
		bcryptCost: cfg.GetBcryptCost(),
		logger:     defLogger{},
		now:        time.Now,
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrResetTokenInvalid
	}

	user, err := h.repo.Users().FindByResetToken(ctx, event.Token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrResetTokenInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up reset token")
	}

	if user.ResetExpiry == nil || h.now().After(*user.ResetExpiry) {
		return ErrResetTokenInvalid
	}

	passwordHash, err := HashPasswordCost(event.Password, h.bcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// clears the token columns together with the hash update, so the
		// token cannot be replayed
		return h.repo.Users().ResetPassword(ctx, user.ID, passwordHash)
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	if err := h.repo.RefreshTokens().RevokeAllForUser(ctx, user.ID); err != nil {
		h.logger.Warn("failed to revoke sessions after password reset", "error", err, "user_id", user.ID.String())
	}

	return nil
}
