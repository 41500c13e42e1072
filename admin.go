package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TargetTypeUser tags audit entries whose target is a user identity.
const TargetTypeUser = "user"

// UserPage is the paginated admin listing shape.
type UserPage struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
	Pages int       `json:"pages"`
}

// AdminService carries the privileged mutations. Every mutation runs behind
// two guards before it touches the store: the actor may not target their own
// account (role-change, ban, delete), and role-change/ban/delete statements
// only match non-admin rows, so a zero-row result reads as not-found whether
// the target was an admin or never existed. Every successful mutation appends
// exactly one audit entry.
type AdminService struct {
	repo    RepositoryManager
	auditor Auditor
	logger  Logger
	now     func() time.Time
}

func NewAdminService(repo RepositoryManager) *AdminService {
	return &AdminService{
		repo:    repo,
		auditor: NewRepoAuditor(repo.AuditEntries()),
		logger:  defLogger{},
		now:     time.Now,
	}
}

func (s *AdminService) WithLogger(logger Logger) *AdminService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *AdminService) WithAuditor(auditor Auditor) *AdminService {
	s.auditor = normalizeAuditor(auditor)
	return s
}

// ListUsers returns one page of users with pagination metadata.
func (s *AdminService) ListUsers(ctx context.Context, page, perPage int) (*UserPage, error) {
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	records, total, err := s.repo.Users().Page(ctx, page, perPage)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	items := make([]Summary, 0, len(records))
	for _, u := range records {
		items = append(items, u.Summary())
	}

	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}

	return &UserPage{Items: items, Total: total, Pages: pages}, nil
}

// GetUser returns a single user by id.
func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

// ChangeRole promotes a user to a new role. Self-targeting is rejected before
// the store is touched; an existing admin target is a zero-row no-op.
func (s *AdminService) ChangeRole(ctx context.Context, actor Identity, targetID uuid.UUID, newRole UserRole, sourceIP string) error {
	if !newRole.IsValid() {
		return errors.New("unknown role", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"role": string(newRole)})
	}

	if actor.ID == targetID {
		return ErrSelfTarget
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}

	rows, err := s.repo.Users().ChangeRoleNonAdmin(ctx, targetID, newRole)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "role change failed")
	}
	if rows == 0 {
		return ErrIdentityNotFound
	}

	s.audit(ctx, AuditRecord{
		Actor:      actor,
		Action:     ActionRoleChange,
		TargetType: TargetTypeUser,
		TargetID:   targetID.String(),
		Details: map[string]any{
			"old_role": string(target.Role),
			"new_role": string(newRole),
		},
		SourceIP: sourceIP,
	})

	return nil
}

// Ban suspends a user and revokes every live session.
func (s *AdminService) Ban(ctx context.Context, actor Identity, targetID uuid.UUID, reason, sourceIP string) error {
	if actor.ID == targetID {
		return ErrSelfTarget
	}

	if reason == "" {
		reason = "suspended by administrator"
	}

	rows, err := s.repo.Users().BanNonAdmin(ctx, targetID, reason, s.now())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "ban failed")
	}
	if rows == 0 {
		return ErrIdentityNotFound
	}

	if err := s.repo.RefreshTokens().RevokeAllForUser(ctx, targetID); err != nil {
		s.logger.Warn("failed to revoke sessions for banned user", "error", err, "user_id", targetID.String())
	}

	s.audit(ctx, AuditRecord{
		Actor:      actor,
		Action:     ActionBan,
		TargetType: TargetTypeUser,
		TargetID:   targetID.String(),
		Details:    map[string]any{"reason": reason},
		SourceIP:   sourceIP,
	})

	return nil
}

// Unban reinstates a suspended user. Exempt from the self-target guard: an
// account cannot ban itself, so self-unban is unreachable, and keeping the
// operation unguarded matches the lifecycle graph.
func (s *AdminService) Unban(ctx context.Context, actor Identity, targetID uuid.UUID, sourceIP string) error {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}

	// Only banned->active is an unban; a pending account is reinstated by
	// verification, not by this operation.
	if target.Status() != StatusBanned {
		return ErrInvalidTransition.Clone().
			WithMetadata(map[string]any{"from": string(target.Status()), "to": string(StatusActive)})
	}

	rows, err := s.repo.Users().Unban(ctx, targetID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unban failed")
	}
	if rows == 0 {
		return ErrIdentityNotFound
	}

	s.audit(ctx, AuditRecord{
		Actor:      actor,
		Action:     ActionUnban,
		TargetType: TargetTypeUser,
		TargetID:   targetID.String(),
		Details:    map[string]any{"previous_reason": derefString(target.BanReason)},
		SourceIP:   sourceIP,
	})

	return nil
}

// Delete removes a non-admin user and revokes every session. The guarded
// DELETE runs first; a zero-row result (admin or missing target) must leave
// the account untouched, sessions included.
func (s *AdminService) Delete(ctx context.Context, actor Identity, targetID uuid.UUID, sourceIP string) error {
	if actor.ID == targetID {
		return ErrSelfTarget
	}

	rows, err := s.repo.Users().DeleteNonAdmin(ctx, targetID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "delete failed")
	}
	if rows == 0 {
		return ErrIdentityNotFound
	}

	if err := s.repo.RefreshTokens().RevokeAllForUser(ctx, targetID); err != nil {
		s.logger.Warn("failed to revoke sessions for deleted user", "error", err, "user_id", targetID.String())
	}

	s.audit(ctx, AuditRecord{
		Actor:      actor,
		Action:     ActionDelete,
		TargetType: TargetTypeUser,
		TargetID:   targetID.String(),
		SourceIP:   sourceIP,
	})

	return nil
}

// ChangePlan switches a user between plan tiers. Exempt from the self-target
// guard; admins manage their own plan through the same surface.
func (s *AdminService) ChangePlan(ctx context.Context, actor Identity, targetID uuid.UUID, plan, sourceIP string) error {
	if plan != PlanFree && plan != PlanPro {
		return errors.New("unknown plan", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"plan": plan})
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}

	rows, err := s.repo.Users().ChangePlan(ctx, targetID, plan)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "plan change failed")
	}
	if rows == 0 {
		return ErrIdentityNotFound
	}

	s.audit(ctx, AuditRecord{
		Actor:      actor,
		Action:     ActionPlanChange,
		TargetType: TargetTypeUser,
		TargetID:   targetID.String(),
		Details: map[string]any{
			"old_plan": target.Plan,
			"new_plan": plan,
		},
		SourceIP: sourceIP,
	})

	return nil
}

// audit appends the record; failures are logged, never surfaced, so a broken
// audit store cannot fail a mutation that already happened.
func (s *AdminService) audit(ctx context.Context, record AuditRecord) {
	if record.SourceIP == "" {
		record.SourceIP = unknownSourceIP
	}
	if err := normalizeAuditor(s.auditor).Record(ctx, record); err != nil {
		s.logger.Error("audit append failed", "error", err, "action", string(record.Action))
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
