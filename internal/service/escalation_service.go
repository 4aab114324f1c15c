package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/repository"
)

// EscalationService resolves escalation targets and emits the notification
// and follow-up task for escalated cases.
type EscalationService struct {
	org           repository.OrgRepository
	notifications repository.NotificationRepository
	tasks         repository.TaskRepository
	logger        *zap.Logger
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	OrgRepo          repository.OrgRepository
	NotificationRepo repository.NotificationRepository
	TaskRepo         repository.TaskRepository
	Logger           *zap.Logger
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		org:           deps.OrgRepo,
		notifications: deps.NotificationRepo,
		tasks:         deps.TaskRepo,
		logger:        deps.Logger,
	}
}

// ResolveTarget walks the organizational hierarchy: the assignee's office
// director first, then the org-wide commercial director. A nil result means
// no routing target exists; the escalation itself must still proceed.
func (s *EscalationService) ResolveTarget(ctx context.Context, fc *domain.FeedbackCase) (*domain.Manager, error) {
	if fc.AssignedTo != nil {
		officeID, err := s.org.OfficeOfUser(ctx, *fc.AssignedTo)
		if err != nil {
			return nil, err
		}
		if officeID != nil {
			director, err := s.org.ResolveOfficeDirector(ctx, *officeID)
			if err != nil {
				return nil, err
			}
			if director != nil {
				return director, nil
			}
		}
	}
	return s.org.ResolveCommercialDirector(ctx)
}

// EmitEscalation publishes the one notification and one follow-up task for a
// committed escalation. Sink failures are logged and never roll back the
// transition that already committed.
func (s *EscalationService) EmitEscalation(ctx context.Context, fc *domain.FeedbackCase) {
	if fc.EscalatedTo == nil {
		s.logger.Warn("escalation committed without routing target, manual routing needed",
			zap.String("case_id", fc.ID),
			zap.Int("escalation_level", fc.EscalationLevel))
		return
	}

	reason := ""
	if fc.EscalationReason != nil {
		reason = *fc.EscalationReason
	}

	severity := domain.SeverityWarning
	if fc.Priority == domain.CasePriorityCritical {
		severity = domain.SeverityCritical
	}

	notification := &domain.Notification{
		UserID:   *fc.EscalatedTo,
		Title:    "Feedback case escalated",
		Message:  fmt.Sprintf("Case %s (score %.1f) escalated to level %d: %s", fc.ID, fc.OriginalScore, fc.EscalationLevel, reason),
		Severity: severity,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("notification delivery failed, queued for manual follow-up",
			zap.String("case_id", fc.ID),
			zap.String("user_id", *fc.EscalatedTo),
			zap.Error(err))
	}

	task := &domain.FollowupTask{
		Kind:         "feedback_escalation",
		Title:        fmt.Sprintf("Review escalated feedback case %s", fc.ID),
		Description:  fmt.Sprintf("Original score %.1f. %s", fc.OriginalScore, reason),
		TargetEntity: fc.ID,
		AssigneeID:   fc.EscalatedTo,
		Priority:     fc.Priority,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("follow-up task enqueue failed",
			zap.String("case_id", fc.ID),
			zap.Error(err))
	}
}
