package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditEntries is the append-only store behind the admin audit log. There is
// deliberately no update or delete surface.
type AuditEntries interface {
	Append(ctx context.Context, entry *AuditLogEntry) (*AuditLogEntry, error)
	AppendTx(ctx context.Context, tx bun.IDB, entry *AuditLogEntry) (*AuditLogEntry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*AuditLogEntry, error)
}

type auditEntries struct {
	repo repository.Repository[*AuditLogEntry]
	db   *bun.DB
}

func NewAuditEntriesRepository(db *bun.DB) AuditEntries {
	repo := repository.NewRepository[*AuditLogEntry](db, repository.ModelHandlers[*AuditLogEntry]{
		NewRecord: func() *AuditLogEntry { return &AuditLogEntry{} },
		GetID: func(e *AuditLogEntry) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *AuditLogEntry, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
	})

	return &auditEntries{repo: repo, db: db}
}

var _ AuditEntries = (*auditEntries)(nil)

func (a *auditEntries) Append(ctx context.Context, entry *AuditLogEntry) (*AuditLogEntry, error) {
	return a.AppendTx(ctx, a.db, entry)
}

func (a *auditEntries) AppendTx(ctx context.Context, tx bun.IDB, entry *AuditLogEntry) (*AuditLogEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SourceIP == "" {
		entry.SourceIP = unknownSourceIP
	}
	return a.repo.CreateTx(ctx, tx, entry)
}

func (a *auditEntries) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*AuditLogEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var entries []*AuditLogEntry
	err := a.db.NewSelect().
		Model(&entries).
		Where("?TableAlias.actor_id = ?", actorID).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
