package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// refreshTokenBytes gives 256 bits of entropy per opaque token.
const refreshTokenBytes = 32

// NewOpaqueToken returns a cryptographically random hex token.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}
	return hex.EncodeToString(buf), nil
}

// HashOpaqueToken is the at-rest form of a refresh token. Storing the digest
// instead of the raw value means a leaked table cannot mint sessions.
func HashOpaqueToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RefreshTokens persists and verifies opaque refresh tokens.
type RefreshTokens interface {
	Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (raw string, record *RefreshToken, err error)
	Verify(ctx context.Context, raw string) (*RefreshToken, error)
	Revoke(ctx context.Context, raw string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type refreshTokens struct {
	db  bun.IDB
	now func() time.Time
}

// NewRefreshTokensRepository builds the bun-backed refresh token store.
func NewRefreshTokensRepository(db bun.IDB) RefreshTokens {
	return &refreshTokens{db: db, now: time.Now}
}

var _ RefreshTokens = (*refreshTokens)(nil)

func (r *refreshTokens) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, *RefreshToken, error) {
	raw, err := NewOpaqueToken()
	if err != nil {
		return "", nil, err
	}

	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashOpaqueToken(raw),
		ExpiresAt: r.now().Add(ttl),
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return raw, record, nil
}

// Verify looks a token up by exact digest. It does not rotate; rotation is
// the authenticator's decision.
func (r *refreshTokens) Verify(ctx context.Context, raw string) (*RefreshToken, error) {
	record := &RefreshToken{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", HashOpaqueToken(raw)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	if !record.Usable(r.now()) {
		return nil, ErrRefreshTokenInvalid
	}

	return record, nil
}

// Revoke marks a single token as revoked. Revoking an absent or already
// revoked token is not an error.
func (r *refreshTokens) Revoke(ctx context.Context, raw string) error {
	_, err := r.db.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", r.now()).
		Where("token_hash = ?", HashOpaqueToken(raw)).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}
	return nil
}

// RevokeAllForUser invalidates every live session of a user. Used on ban,
// delete, and password change.
func (r *refreshTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", r.now()).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke user refresh tokens")
	}
	return nil
}
