package auth

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionTag enumerates the privileged mutations that produce audit entries.
type ActionTag string

const (
	ActionRoleChange ActionTag = "user.role.change"
	ActionBan        ActionTag = "user.ban"
	ActionUnban      ActionTag = "user.unban"
	ActionDelete     ActionTag = "user.delete"
	ActionPlanChange ActionTag = "user.plan.change"
)

const unknownSourceIP = "unknown"

// AuditRecord describes one privileged mutation before persistence.
type AuditRecord struct {
	Actor      Identity
	Action     ActionTag
	TargetType string
	TargetID   string
	Details    map[string]any
	SourceIP   string
}

// Auditor consumes audit records. Recording is a side effect of the mutation;
// implementations must not be able to veto it retroactively, so errors are
// logged by callers rather than propagated to the client.
type Auditor interface {
	Record(ctx context.Context, record AuditRecord) error
}

// AuditorFunc adapts a function to the Auditor interface.
type AuditorFunc func(ctx context.Context, record AuditRecord) error

// Record implements Auditor.
func (f AuditorFunc) Record(ctx context.Context, record AuditRecord) error {
	if f == nil {
		return nil
	}
	return f(ctx, record)
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, AuditRecord) error { return nil }

func normalizeAuditor(a Auditor) Auditor {
	if a == nil {
		return noopAuditor{}
	}
	return a
}

// RepoAuditor appends records to the AuditEntries store.
type RepoAuditor struct {
	entries AuditEntries
	now     func() time.Time
}

func NewRepoAuditor(entries AuditEntries) *RepoAuditor {
	return &RepoAuditor{entries: entries, now: time.Now}
}

var _ Auditor = (*RepoAuditor)(nil)

func (a *RepoAuditor) Record(ctx context.Context, record AuditRecord) error {
	now := a.now()
	entry := &AuditLogEntry{
		ID:         uuid.New(),
		ActorID:    record.Actor.ID,
		Action:     record.Action,
		TargetType: record.TargetType,
		TargetID:   record.TargetID,
		Details:    record.Details,
		SourceIP:   record.SourceIP,
		CreatedAt:  &now,
	}

	if entry.SourceIP == "" {
		entry.SourceIP = unknownSourceIP
	}

	_, err := a.entries.Append(ctx, entry)
	return err
}

// HeaderReader is the minimal surface needed to derive a client address from
// a request. router.Context satisfies it.
type HeaderReader interface {
	GetString(key string, def string) string
}

// ClientIP derives the request source best-effort: first hop of the proxy
// header chain, then the reverse-proxy real-ip header, then the raw remote
// address, then "unknown". It never fails, so an unresolvable address can
// never block a mutation.
func ClientIP(headers HeaderReader, remoteAddr string) string {
	if headers != nil {
		if fwd := headers.GetString("X-Forwarded-For", ""); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if first != "" {
				return first
			}
		}

		if real := strings.TrimSpace(headers.GetString("X-Real-Ip", "")); real != "" {
			return real
		}
	}

	if addr := strings.TrimSpace(remoteAddr); addr != "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		return addr
	}

	return unknownSourceIP
}
