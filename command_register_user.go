package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// verificationTokenTTL bounds how long a signup can sit unverified before the
// token must be re-requested.
const verificationTokenTTL = 24 * time.Hour

// RegisterResponseMessage is the body text shared by every registration
// outcome in enumeration-safe mode: a duplicate email produces a response
// indistinguishable from a fresh signup.
const RegisterResponseMessage = "account created; check your email for a verification link"

type RegisterUserMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User                 *User
	Tokens               *TokenPair
	Message              string
	VerificationRequired bool
}

// RegisterUserHandler drives the registration state machine:
// Anonymous -> PendingVerification when a mailer is configured,
// Anonymous -> Verified (with a session) when it is not.
type RegisterUserHandler struct {
	repo                RepositoryManager
	auther              *Auther
	mailer              Mailer
	bootstrapAdminEmail string
	bcryptCost          int
	logger              Logger
}

func NewRegisterUserHandler(repo RepositoryManager, auther *Auther, cfg Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:                repo,
		auther:              auther,
		mailer:              NoopMailer{},
		bootstrapAdminEmail: cfg.GetBootstrapAdminEmail(),
		bcryptCost:          cfg.GetBcryptCost(),
		logger:              defLogger{},
	}
}

func (h *RegisterUserHandler) WithMailer(mailer Mailer) *RegisterUserHandler {
	if mailer != nil {
		h.mailer = mailer
	}
	return h
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &RegisterUserResponse{Message: RegisterResponseMessage}
	respond := func() {
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
	}

	hash, err := HashPasswordCost(event.Password, h.bcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	verificationRequired := h.mailer.Configured()
	resp.VerificationRequired = verificationRequired

	user := &User{
		Email:         NormalizeEmail(event.Email),
		PasswordHash:  hash,
		Role:          bootstrapRole(event.Email, h.bootstrapAdminEmail),
		Plan:          PlanFree,
		EmailVerified: !verificationRequired,
	}

	var verificationToken string
	if verificationRequired {
		verificationToken, err = NewOpaqueToken()
		if err != nil {
			return err
		}
		user.SetVerificationToken(verificationToken, time.Now().Add(verificationTokenTTL))
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		resp.User = created
		return nil
	})

	if err != nil {
		// The unique index is the real duplicate guard; a violation here is
		// the existing-account case and must produce the same response shape
		// as a fresh signup.
		if IsUniqueViolation(err) || goerrors.Is(err, ErrEmailTaken) {
			h.logger.Info("registration for existing email suppressed", "email", user.Email)
			resp.User = nil
			respond()
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if verificationRequired {
		// A failed send must not roll the account back; the token stays
		// valid for resend-verification.
		if err := h.mailer.SendVerification(ctx, user.Email, verificationToken); err != nil {
			h.logger.Error("failed to send verification email", "error", err, "email", user.Email)
			resp.Message = "account created; verification email could not be sent, request a new one"
		}
		respond()
		return nil
	}

	tokens, err := h.auther.IssuePair(ctx, user.Identity())
	if err != nil {
		return err
	}
	resp.Tokens = tokens

	respond()
	return nil
}
