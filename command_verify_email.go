package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type VerifyEmailMessage struct {
	Token string `json:"token"`
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

// VerifyEmailHandler consumes a verification token: single use, bounded by
// the 24h expiry, clearing token and expiry together.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrVerifyTokenInvalid
	}

	user, err := h.repo.Users().FindByVerificationToken(ctx, event.Token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrVerifyTokenInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up verification token")
	}

	if user.VerificationExpiry == nil || h.now().After(*user.VerificationExpiry) {
		return ErrVerifyTokenInvalid
	}

	if err := EnsureTransition(user.Status(), StatusActive); err != nil {
		return err
	}

	if err := h.repo.Users().MarkEmailVerified(ctx, user.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}

	return nil
}

type ResendVerificationMessage struct {
	Email string `json:"email"`
}

func (e ResendVerificationMessage) Type() string { return "user.resend_verification" }

// ResendVerificationHandler reissues a verification token. Enumeration-safe:
// unknown addresses and already-verified accounts report success; internal
// outcomes only reach the logs.
type ResendVerificationHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewResendVerificationHandler(repo RepositoryManager, mailer Mailer) *ResendVerificationHandler {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &ResendVerificationHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Info("verification resend for unknown email suppressed", "email", NormalizeEmail(event.Email))
			return nil
		}
		h.logger.Error("verification resend lookup failed", "error", err)
		return nil
	}

	if user.EmailVerified {
		return nil
	}

	token, err := NewOpaqueToken()
	if err != nil {
		h.logger.Error("verification resend token generation failed", "error", err)
		return nil
	}

	if err := h.repo.Users().StoreVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTokenTTL)); err != nil {
		h.logger.Error("verification resend persist failed", "error", err)
		return nil
	}

	if err := h.mailer.SendVerification(ctx, user.Email, token); err != nil {
		h.logger.Error("verification resend delivery failed", "error", err)
	}

	return nil
}
