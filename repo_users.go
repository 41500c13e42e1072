package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var markEmailVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"verification_token" = NULL,
	"verification_token_expires" = NULL
WHERE
	"usr"."id" = ?
RETURNING *;`

var resetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?,
	"reset_token" = NULL,
	"reset_token_expires" = NULL
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users is the credential store. Privileged mutations are guarded at this
// layer: role-change, ban, and delete statements only match non-admin rows,
// so a zero-row result is how "target is an admin" and "target is missing"
// both surface.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	FindByVerificationToken(ctx context.Context, token string) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	StoreVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	StoreResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	ChangeRoleNonAdmin(ctx context.Context, id uuid.UUID, role UserRole) (int64, error)
	BanNonAdmin(ctx context.Context, id uuid.UUID, reason string, at time.Time) (int64, error)
	Unban(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteNonAdmin(ctx context.Context, id uuid.UUID) (int64, error)
	ChangePlan(ctx context.Context, id uuid.UUID, plan string) (int64, error)

	Page(ctx context.Context, page, perPage int) ([]*User, int, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) FindByVerificationToken(ctx context.Context, token string) (*User, error) {
	return a.findByTokenColumn(ctx, "verification_token", token)
}

func (a *users) FindByResetToken(ctx context.Context, token string) (*User, error) {
	return a.findByTokenColumn(ctx, "reset_token", token)
}

func (a *users) findByTokenColumn(ctx context.Context, column, token string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

func (a *users) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, a.db, markEmailVerifiedSQL, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// StoreVerificationToken writes token and expiry together; the pair is always
// set or cleared as a unit.
func (a *users) StoreVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("verification_token = ?", token).
		Set("verification_token_expires = ?", expires).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) StoreResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("reset_token = ?", token).
		Set("reset_token_expires = ?", expires).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, a.db, resetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// ChangeRoleNonAdmin promotes a user. The statement only matches non-admin
// rows; an existing admin identity can never be re-targeted here.
func (a *users) ChangeRoleNonAdmin(ctx context.Context, id uuid.UUID, role UserRole) (int64, error) {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("user_role = ?", role).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("user_role <> ?", RoleAdmin).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *users) BanNonAdmin(ctx context.Context, id uuid.UUID, reason string, at time.Time) (int64, error) {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_banned = ?", true).
		Set("ban_reason = ?", reason).
		Set("banned_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("user_role <> ?", RoleAdmin).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *users) Unban(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_banned = ?", false).
		Set("ban_reason = NULL").
		Set("banned_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *users) DeleteNonAdmin(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Where("user_role <> ?", RoleAdmin).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *users) ChangePlan(ctx context.Context, id uuid.UUID, plan string) (int64, error) {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("plan = ?", plan).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *users) Page(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	var records []*User
	total, err := a.db.NewSelect().
		Model(&records).
		OrderExpr("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.Plan == "" {
		record.Plan = PlanFree
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isNoRows(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || strings.Contains(err.Error(), "no rows in result set")
}

// IsUniqueViolation detects a unique-index insert failure. The store's
// constraint, not a prior existence check, is what actually guarantees one
// account per email; callers must treat this as the duplicate case.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
