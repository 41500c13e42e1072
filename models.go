package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Plan names for the free/paid model. Plans carry no behavior in this
// package beyond the admin plan-change mutation and its audit record.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         UserRole  `bun:"user_role,notnull" json:"role,omitempty"`
	Plan         string    `bun:"plan,notnull" json:"plan,omitempty"`

	EmailVerified      bool       `bun:"is_email_verified" json:"email_verified"`
	VerificationToken  *string    `bun:"verification_token,nullzero" json:"-"`
	VerificationExpiry *time.Time `bun:"verification_token_expires,nullzero" json:"-"`

	ResetToken  *string    `bun:"reset_token,nullzero" json:"-"`
	ResetExpiry *time.Time `bun:"reset_token_expires,nullzero" json:"-"`

	Banned    bool       `bun:"is_banned" json:"banned,omitempty"`
	BanReason *string    `bun:"ban_reason,nullzero" json:"ban_reason,omitempty"`
	BannedAt  *time.Time `bun:"banned_at,nullzero" json:"banned_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Identity projects the persisted user into the request-scoped identity.
func (u *User) Identity() Identity {
	return Identity{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
}

// Status derives the lifecycle status from the persisted flags.
func (u *User) Status() AccountStatus {
	switch {
	case u.Banned:
		return StatusBanned
	case !u.EmailVerified:
		return StatusPending
	default:
		return StatusActive
	}
}

// SetVerificationToken stores a pending verification token. Token and expiry
// are always set or cleared together.
func (u *User) SetVerificationToken(token string, expires time.Time) {
	u.VerificationToken = &token
	u.VerificationExpiry = &expires
}

// ClearVerificationToken marks the token as consumed.
func (u *User) ClearVerificationToken() {
	u.VerificationToken = nil
	u.VerificationExpiry = nil
}

// SetResetToken stores a pending password-reset token.
func (u *User) SetResetToken(token string, expires time.Time) {
	u.ResetToken = &token
	u.ResetExpiry = &expires
}

// ClearResetToken marks the reset token as consumed.
func (u *User) ClearResetToken() {
	u.ResetToken = nil
	u.ResetExpiry = nil
}

// Summary is the caller-facing projection of a user, safe to serialize.
type Summary struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Role          UserRole   `json:"role"`
	Plan          string     `json:"plan"`
	EmailVerified bool       `json:"email_verified"`
	Banned        bool       `json:"banned"`
	BanReason     *string    `json:"ban_reason,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Summary returns the serializable projection of the user.
func (u *User) Summary() Summary {
	return Summary{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		Plan:          u.Plan,
		EmailVerified: u.EmailVerified,
		Banned:        u.Banned,
		BanReason:     u.BanReason,
		CreatedAt:     u.CreatedAt,
	}
}

// RefreshToken is the persisted long-lived session credential. Only the
// SHA-256 digest of the opaque value is stored; a leaked table cannot be
// replayed against the refresh endpoint.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TokenHash string     `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Usable reports whether the token can still mint access tokens.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// AuditLogEntry records one privileged mutation. Entries are append-only; the
// core never updates or deletes them.
type AuditLogEntry struct {
	bun.BaseModel `bun:"table:admin_audit_log,alias:aud"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ActorID    uuid.UUID      `bun:"actor_id,notnull,type:uuid" json:"actor_id"`
	Action     ActionTag      `bun:"action,notnull" json:"action"`
	TargetType string         `bun:"target_type,nullzero" json:"target_type,omitempty"`
	TargetID   string         `bun:"target_id,nullzero" json:"target_id,omitempty"`
	Details    map[string]any `bun:"details,type:jsonb" json:"details,omitempty"`
	SourceIP   string         `bun:"source_ip,notnull" json:"source_ip"`
	CreatedAt  *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NormalizeEmail lowercases and trims an address. Every store lookup and
// every insert goes through this so the unique index sees one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
