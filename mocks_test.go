package auth_test

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/labeldesk/go-auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUsers mocks auth.Users. The embedded Repository covers the wide
// generated surface; only the methods the flows touch are implemented.
type MockUsers struct {
	mock.Mock
	repository.Repository[*auth.User]
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, record)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) FindByVerificationToken(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) FindByResetToken(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) StoreVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	args := m.Called(ctx, id, token, expires)
	return args.Error(0)
}

func (m *MockUsers) StoreResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	args := m.Called(ctx, id, token, expires)
	return args.Error(0)
}

func (m *MockUsers) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) ChangeRoleNonAdmin(ctx context.Context, id uuid.UUID, role auth.UserRole) (int64, error) {
	args := m.Called(ctx, id, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsers) BanNonAdmin(ctx context.Context, id uuid.UUID, reason string, at time.Time) (int64, error) {
	args := m.Called(ctx, id, reason, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsers) Unban(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsers) DeleteNonAdmin(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsers) ChangePlan(ctx context.Context, id uuid.UUID, plan string) (int64, error) {
	args := m.Called(ctx, id, plan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsers) Page(ctx context.Context, page, perPage int) ([]*auth.User, int, error) {
	args := m.Called(ctx, page, perPage)
	if u := args.Get(0); u != nil {
		return u.([]*auth.User), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

// MockRefreshTokens mocks auth.RefreshTokens.
type MockRefreshTokens struct {
	mock.Mock
}

func (m *MockRefreshTokens) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, *auth.RefreshToken, error) {
	args := m.Called(ctx, userID, ttl)
	var record *auth.RefreshToken
	if r := args.Get(1); r != nil {
		record = r.(*auth.RefreshToken)
	}
	return args.String(0), record, args.Error(2)
}

func (m *MockRefreshTokens) Verify(ctx context.Context, raw string) (*auth.RefreshToken, error) {
	args := m.Called(ctx, raw)
	if r := args.Get(0); r != nil {
		return r.(*auth.RefreshToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRefreshTokens) Revoke(ctx context.Context, raw string) error {
	args := m.Called(ctx, raw)
	return args.Error(0)
}

func (m *MockRefreshTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockAuditEntries mocks auth.AuditEntries.
type MockAuditEntries struct {
	mock.Mock
}

func (m *MockAuditEntries) Append(ctx context.Context, entry *auth.AuditLogEntry) (*auth.AuditLogEntry, error) {
	args := m.Called(ctx, entry)
	if e := args.Get(0); e != nil {
		return e.(*auth.AuditLogEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditEntries) AppendTx(ctx context.Context, tx bun.IDB, entry *auth.AuditLogEntry) (*auth.AuditLogEntry, error) {
	args := m.Called(ctx, tx, entry)
	if e := args.Get(0); e != nil {
		return e.(*auth.AuditLogEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditEntries) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*auth.AuditLogEntry, error) {
	args := m.Called(ctx, actorID, limit)
	if e := args.Get(0); e != nil {
		return e.([]*auth.AuditLogEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRepositoryManager mocks auth.RepositoryManager. RunInTx invokes the
// callback with a zero tx so transactional flows execute inline.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() auth.Users {
	args := m.Called()
	return args.Get(0).(auth.Users)
}

func (m *MockRepositoryManager) RefreshTokens() auth.RefreshTokens {
	args := m.Called()
	return args.Get(0).(auth.RefreshTokens)
}

func (m *MockRepositoryManager) AuditEntries() auth.AuditEntries {
	args := m.Called()
	return args.Get(0).(auth.AuditEntries)
}

// MockMailer mocks auth.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMailer) SendVerification(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

// MockAuditor mocks auth.Auditor.
type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Record(ctx context.Context, record auth.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// testRepoManager wires the mocks into a stub manager without expectation
// bookkeeping for Users()/RefreshTokens() accessors.
type testRepoManager struct {
	users   *MockUsers
	refresh *MockRefreshTokens
	audit   *MockAuditEntries
}

func newTestRepoManager() *testRepoManager {
	return &testRepoManager{
		users:   &MockUsers{},
		refresh: &MockRefreshTokens{},
		audit:   &MockAuditEntries{},
	}
}

func (m *testRepoManager) Validate() error { return nil }

func (m *testRepoManager) MustValidate() {}

func (m *testRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *testRepoManager) Users() auth.Users { return m.users }

func (m *testRepoManager) RefreshTokens() auth.RefreshTokens { return m.refresh }

func (m *testRepoManager) AuditEntries() auth.AuditEntries { return m.audit }

// MockAuthenticator mocks auth.Authenticator for middleware tests.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*auth.User, *auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	var user *auth.User
	if u := args.Get(0); u != nil {
		user = u.(*auth.User)
	}
	var pair *auth.TokenPair
	if p := args.Get(1); p != nil {
		pair = p.(*auth.TokenPair)
	}
	return user, pair, args.Error(2)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if p := args.Get(0); p != nil {
		return p.(*auth.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthenticator) IdentityFromToken(ctx context.Context, raw string) (auth.Identity, error) {
	args := m.Called(ctx, raw)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

// MockContext mocks router.Context.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
