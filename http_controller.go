package auth

import (
	stderrors "errors"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes lets consumers remount the surface without touching
// handler code.
type AuthControllerRoutes struct {
	Register           string
	Login              string
	Logout             string
	Refresh            string
	VerifyEmail        string
	ResendVerification string
	ForgotPassword     string
	ResetPassword      string
	Me                 string
	AdminUsers         string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *Auther
	HTTP         *RouteAuthenticator
	Admin        *AdminService
	Mailer       Mailer
	Config       Config
	Routes       *AuthControllerRoutes
	ErrorHandler func(c router.Context, err error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerHTTP(http *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.HTTP = http
		return c
	}
}

func WithControllerAdmin(admin *AdminService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Admin = admin
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Mailer: NoopMailer{},
		Routes: &AuthControllerRoutes{
			Register:           "/api/auth/register",
			Login:              "/api/auth/login",
			Logout:             "/api/auth/logout",
			Refresh:            "/api/auth/refresh",
			VerifyEmail:        "/api/auth/verify-email",
			ResendVerification: "/api/auth/resend-verification",
			ForgotPassword:     "/api/auth/forgot-password",
			ResetPassword:      "/api/auth/reset-password",
			Me:                 "/api/me",
			AdminUsers:         "/api/admin/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.HTTP == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Admin == nil {
		c.Admin = NewAdminService(c.Repo).WithLogger(c.Logger)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.HTTP.renderError
	}

	return c
}

// RegisterAuthRoutes mounts the full surface: public auth flows, the
// authenticated profile endpoint, and the admin user-management endpoints.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	protected := controller.HTTP.ProtectedRoute()
	adminOnly := controller.HTTP.RequireAdmin()

	app.Post(controller.Routes.Register, controller.RegisterPost).SetName("auth.register")
	app.Post(controller.Routes.Login, controller.LoginPost).SetName("auth.login")
	app.Post(controller.Routes.Logout, controller.LogoutPost).SetName("auth.logout")
	app.Post(controller.Routes.Refresh, controller.RefreshPost).SetName("auth.refresh")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmailPost).SetName("auth.verify-email")
	app.Post(controller.Routes.ResendVerification, controller.ResendVerificationPost).SetName("auth.resend-verification")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).SetName("auth.forgot-password")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost).SetName("auth.reset-password")

	app.Get(controller.Routes.Me, protected(controller.MeGet)).SetName("auth.me")

	adminUsers := controller.Routes.AdminUsers
	app.Get(adminUsers, protected(adminOnly(controller.AdminUsersList))).SetName("admin.users.list")
	app.Get(adminUsers+"/:id", protected(adminOnly(controller.AdminUserDetail))).SetName("admin.users.detail")
	app.Put(adminUsers+"/:id/role", protected(adminOnly(controller.AdminRolePut))).SetName("admin.users.role")
	app.Post(adminUsers+"/:id/ban", protected(adminOnly(controller.AdminBanPost))).SetName("admin.users.ban")
	app.Post(adminUsers+"/:id/unban", protected(adminOnly(controller.AdminUnbanPost))).SetName("admin.users.unban")
	app.Delete(adminUsers+"/:id", protected(adminOnly(controller.AdminUserDelete))).SetName("admin.users.delete")
	app.Put(adminUsers+"/:id/plan", protected(adminOnly(controller.AdminPlanPut))).SetName("admin.users.plan")

	return controller
}

// NewAuthServer builds a fiber-backed server suitable for mounting the auth
// routes. Consumers with an existing router can skip this and call
// RegisterAuthRoutes directly.
func NewAuthServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})
}

// RegisterPayload is the registration body.
type RegisterPayload struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	var res *RegisterUserResponse
	msg := RegisterUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(r *RegisterUserResponse) {
			res = r
		},
	}

	handler := NewRegisterUserHandler(a.Repo, a.Auther, a.Config).
		WithMailer(a.Mailer).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("register user error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("register response", "payload", print.MaybePrettyJSON(res))
	}

	body := map[string]any{
		"message":               res.Message,
		"verification_required": res.VerificationRequired,
	}

	if res.Tokens != nil {
		a.deliverTokens(ctx, res.Tokens, body)
	}

	return ctx.JSON(fiber.StatusCreated, body)
}

// LoginPayload is the credential body.
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, pair, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	body := map[string]any{
		"user": user.Summary(),
	}
	a.deliverTokens(ctx, pair, body)

	return ctx.JSON(fiber.StatusOK, body)
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	if raw := a.refreshTokenFromRequest(ctx); raw != "" {
		a.Auther.Logout(ctx.Context(), raw)
	}

	a.HTTP.ClearTokenCookies(ctx)

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "signed out"})
}

// RefreshPayload carries the refresh token for non-cookie clients.
type RefreshPayload struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	raw := a.refreshTokenFromRequest(ctx)
	if raw == "" {
		return a.ErrorHandler(ctx, ErrRefreshTokenInvalid)
	}

	pair, err := a.Auther.Refresh(ctx.Context(), raw)
	if err != nil {
		a.Logger.Error("refresh error", "error", err)
		a.HTTP.ClearTokenCookies(ctx)
		return a.ErrorHandler(ctx, err)
	}

	body := map[string]any{
		"message": "session refreshed",
	}
	a.deliverTokens(ctx, pair, body)

	return ctx.JSON(fiber.StatusOK, body)
}

// VerifyEmailPayload carries the emailed verification token.
type VerifyEmailPayload struct {
	Token string `json:"token" form:"token"`
}

func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AuthController) VerifyEmailPost(ctx router.Context) error {
	payload := new(VerifyEmailPayload)

	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	handler := NewVerifyEmailHandler(a.Repo).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), VerifyEmailMessage{Token: payload.Token}); err != nil {
		a.Logger.Error("verify email error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "email verified"})
}

// EmailPayload serves the resend-verification and forgot-password bodies.
type EmailPayload struct {
	Email string `json:"email" form:"email"`
}

func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ResendVerificationPost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	handler := NewResendVerificationHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), ResendVerificationMessage{Email: payload.Email}); err != nil {
		a.Logger.Error("resend verification error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	// Identical response whether or not the account exists.
	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": "if the account exists, a verification email has been sent",
	})
}

func (a *AuthController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), InitializePasswordResetMessage{Email: payload.Email}); err != nil {
		a.Logger.Error("password reset init error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	// Identical response whether or not the account exists.
	return ctx.JSON(fiber.StatusOK, map[string]any{
		"message": "if the account exists, a password reset email has been sent",
	})
}

// ResetPasswordPayload finalizes a reset with the emailed token.
type ResetPasswordPayload struct {
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPasswordPost(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	handler := NewFinalizePasswordResetHandler(a.Repo, a.Config).WithLogger(a.Logger)
	msg := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	if err := handler.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("password reset finalize error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "password updated"})
}

func (a *AuthController) MeGet(ctx router.Context) error {
	identity, err := IdentityFromRoute(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Admin.GetUser(ctx.Context(), identity.ID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"user": user.Summary()})
}

func (a *AuthController) AdminUsersList(ctx router.Context) error {
	page := queryInt(ctx, "page", 1)
	perPage := queryInt(ctx, "per_page", 25)

	result, err := a.Admin.ListUsers(ctx.Context(), page, perPage)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

func (a *AuthController) AdminUserDetail(ctx router.Context) error {
	targetID, err := a.targetIDFromRoute(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Admin.GetUser(ctx.Context(), targetID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"user": user.Summary()})
}

// RoleChangePayload carries the new role.
type RoleChangePayload struct {
	Role string `json:"role" form:"role"`
}

func (r RoleChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(rolesAsAny()...)),
	)
}

func (a *AuthController) AdminRolePut(ctx router.Context) error {
	actor, targetID, err := a.actorAndTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(RoleChangePayload)
	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	err = a.Admin.ChangeRole(ctx.Context(), actor, targetID, UserRole(payload.Role), a.sourceIP(ctx))
	if err != nil {
		a.Logger.Error("role change error", "error", err, "target", targetID.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "role updated"})
}

// BanPayload carries an optional operator-supplied reason.
type BanPayload struct {
	Reason string `json:"reason" form:"reason"`
}

func (r BanPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

func (a *AuthController) AdminBanPost(ctx router.Context) error {
	actor, targetID, err := a.actorAndTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(BanPayload)
	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Admin.Ban(ctx.Context(), actor, targetID, payload.Reason, a.sourceIP(ctx)); err != nil {
		a.Logger.Error("ban error", "error", err, "target", targetID.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "user suspended"})
}

func (a *AuthController) AdminUnbanPost(ctx router.Context) error {
	actor, targetID, err := a.actorAndTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Admin.Unban(ctx.Context(), actor, targetID, a.sourceIP(ctx)); err != nil {
		a.Logger.Error("unban error", "error", err, "target", targetID.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "user reinstated"})
}

func (a *AuthController) AdminUserDelete(ctx router.Context) error {
	actor, targetID, err := a.actorAndTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Admin.Delete(ctx.Context(), actor, targetID, a.sourceIP(ctx)); err != nil {
		a.Logger.Error("delete error", "error", err, "target", targetID.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "user deleted"})
}

// PlanChangePayload carries the new plan tier.
type PlanChangePayload struct {
	Plan string `json:"plan" form:"plan"`
}

func (r PlanChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Plan, validation.Required, validation.In(PlanFree, PlanPro)),
	)
}

func (a *AuthController) AdminPlanPut(ctx router.Context) error {
	actor, targetID, err := a.actorAndTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PlanChangePayload)
	if err := a.bindAndValidate(ctx, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Admin.ChangePlan(ctx.Context(), actor, targetID, payload.Plan, a.sourceIP(ctx)); err != nil {
		a.Logger.Error("plan change error", "error", err, "target", targetID.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"message": "plan updated"})
}

type validatable interface {
	Validate() error
}

func (a *AuthController) bindAndValidate(ctx router.Context, payload validatable) error {
	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "failed to parse request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return errors.New("invalid request payload", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(formatValidationErrors(err))
	}

	return nil
}

// deliverTokens applies the configured delivery strategy: cookie-pair keeps
// tokens out of the body, body-token returns them for non-browser clients.
func (a *AuthController) deliverTokens(ctx router.Context, pair *TokenPair, body map[string]any) {
	strategy := DeliveryCookiePair
	if a.Config != nil {
		strategy = a.Config.GetDeliveryStrategy()
	}

	switch strategy {
	case DeliveryBodyToken:
		body["access_token"] = pair.AccessToken
		body["refresh_token"] = pair.RefreshToken
		body["expires_at"] = pair.AccessExpiresAt
	default:
		a.HTTP.SetTokenCookies(ctx, pair)
	}
}

// refreshTokenFromRequest prefers the path-scoped cookie, then the body for
// API clients.
func (a *AuthController) refreshTokenFromRequest(ctx router.Context) string {
	if raw := ctx.Cookies(RefreshCookieName); raw != "" {
		return raw
	}

	payload := new(RefreshPayload)
	if err := ctx.Bind(payload); err != nil {
		return ""
	}
	return payload.RefreshToken
}

func (a *AuthController) actorAndTarget(ctx router.Context) (Identity, uuid.UUID, error) {
	actor, err := IdentityFromRoute(ctx)
	if err != nil {
		return Identity{}, uuid.Nil, err
	}

	targetID, err := a.targetIDFromRoute(ctx)
	if err != nil {
		return Identity{}, uuid.Nil, err
	}

	return actor, targetID, nil
}

func (a *AuthController) targetIDFromRoute(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id", "")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid user id", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"id": raw})
	}
	return id, nil
}

func (a *AuthController) sourceIP(ctx router.Context) string {
	return ClientIP(ctx, ctx.IP())
}

// ValidateStringEquals checks that both values match.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// formatValidationErrors flattens ozzo field errors into a metadata map.
func formatValidationErrors(err error) map[string]any {
	out := map[string]any{}

	var fieldErrs validation.Errors
	if stderrors.As(err, &fieldErrs) {
		for field, ferr := range fieldErrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

func queryInt(ctx router.Context, key string, def int) int {
	raw := ctx.Query(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func rolesAsAny() []any {
	roles := GetAllRoles()
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
