package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// resetTokenTTL bounds the forgot-password window.
const resetTokenTTL = time.Hour

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetHandler starts the forgot-password flow.
// Enumeration-safe: the caller sees success whether or not the account
// exists; every internal failure lands in the logs only.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, mailer Mailer) *InitializePasswordResetHandler {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &InitializePasswordResetHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Info("password reset for unknown email suppressed", "email", NormalizeEmail(event.Email))
			return nil
		}
		h.logger.Error("password reset lookup failed", "error", err)
		return nil
	}

	token, err := NewOpaqueToken()
	if err != nil {
		h.logger.Error("password reset token generation failed", "error", err)
		return nil
	}

	if err := h.repo.Users().StoreResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		h.logger.Error("password reset persist failed", "error", err)
		return nil
	}

	if err := h.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		h.logger.Error("password reset delivery failed", "error", err)
	}

	return nil
}
