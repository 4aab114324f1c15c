package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/events"
	"github.com/spec-kit/feedback-engine/internal/observability"
	"github.com/spec-kit/feedback-engine/internal/repository"
)

// CaseService is the single entry point for feedback case mutations.
type CaseService struct {
	cases      repository.FeedbackCaseRepository
	history    repository.CaseHistoryRepository
	escalation *EscalationService
	analytics  *AnalyticsService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo    repository.FeedbackCaseRepository
	HistoryRepo repository.CaseHistoryRepository
	Escalation  *EscalationService
	Analytics   *AnalyticsService
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// CaseCreateInput describes the external detection event payload.
type CaseCreateInput struct {
	CompanyID     string
	ContactID     *string
	OriginalScore float64
	Priority      domain.CasePriority
	AssignedTo    *string
	SLADeadline   time.Time
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CaseService{
		cases:      deps.CaseRepo,
		history:    deps.HistoryRepo,
		escalation: deps.Escalation,
		analytics:  deps.Analytics,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        now,
	}
}

// CreateCase opens a case for a detected low satisfaction score.
func (s *CaseService) CreateCase(ctx context.Context, input CaseCreateInput) (*domain.FeedbackCase, error) {
	if input.CompanyID == "" {
		return nil, errors.New("company id required")
	}
	if input.SLADeadline.IsZero() {
		return nil, errors.New("sla deadline required")
	}

	fc := &domain.FeedbackCase{
		CompanyID:     input.CompanyID,
		ContactID:     input.ContactID,
		OriginalScore: input.OriginalScore,
		Priority:      input.Priority,
		Status:        domain.CaseStatusPending,
		AssignedTo:    input.AssignedTo,
		SLADeadline:   input.SLADeadline,
	}
	if fc.Priority == "" {
		fc.Priority = domain.CasePriorityMedium
	}

	if err := s.cases.Create(ctx, fc); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseCreated,
		CaseID: fc.ID,
		Payload: events.CaseCreatedPayload{
			CompanyID:     fc.CompanyID,
			ContactID:     fc.ContactID,
			OriginalScore: fc.OriginalScore,
			Priority:      fc.Priority,
			SLADeadline:   fc.SLADeadline,
		},
	})
	return fc, nil
}

// GetCase fetches one case.
func (s *CaseService) GetCase(ctx context.Context, caseID string) (*domain.FeedbackCase, error) {
	return s.cases.GetByID(ctx, caseID)
}

// ListCases returns cases matching the filter.
func (s *CaseService) ListCases(ctx context.Context, filter repository.CaseFilter) ([]domain.FeedbackCase, error) {
	return s.cases.ListWithFilter(ctx, filter)
}

// ListHistory returns the audit trail for a case.
func (s *CaseService) ListHistory(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return nil, err
	}
	return s.history.ListByCase(ctx, caseID, limit, offset)
}

// PerformAction runs one action through the transition validator, persists
// the result with an optimistic check, and triggers post-commit side effects.
// Side effects never roll back the committed transition.
func (s *CaseService) PerformAction(ctx context.Context, actor domain.HistoryActor, actorID *string, caseID string, payload domain.ActionPayload) (*domain.FeedbackCase, error) {
	fc, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := ApplyAction(*fc, payload, now)
	if err != nil {
		s.metrics.Incr(observability.CounterTransitionsRejected)
		return nil, err
	}

	escalatePayload, escalating := payload.(domain.Escalate)
	if escalating {
		// Routing happens before the write so escalatedTo lands in the same
		// commit, but a missing target never blocks the escalation.
		manager, resolveErr := s.escalation.ResolveTarget(ctx, fc)
		if resolveErr != nil {
			s.logger.Warn("escalation target lookup failed, proceeding unrouted",
				zap.String("case_id", fc.ID),
				zap.Error(resolveErr))
		} else if manager != nil {
			next.EscalatedTo = &manager.ID
			next.AssignedTo = &manager.ID
		}
	}

	readUpdatedAt := fc.UpdatedAt
	if err := s.cases.Update(ctx, &next, readUpdatedAt); err != nil {
		return nil, err
	}
	s.metrics.Incr(observability.CounterTransitionsAccepted)

	s.recordHistory(ctx, actor, actorID, fc, &next, payload)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCaseStatusChanged,
		CaseID: next.ID,
		Payload: events.CaseStatusChangedPayload{
			Action:    payload.Action(),
			OldStatus: fc.Status,
			NewStatus: next.Status,
		},
	})

	switch p := payload.(type) {
	case domain.Escalate:
		s.metrics.Incr(observability.CounterEscalations)
		s.escalation.EmitEscalation(ctx, &next)
		s.publishEvent(ctx, events.Event{
			Type:   events.EventCaseEscalated,
			CaseID: next.ID,
			Payload: events.CaseEscalatedPayload{
				EscalationLevel: next.EscalationLevel,
				EscalatedTo:     next.EscalatedTo,
				Reason:          escalatePayload.Reason,
				Automatic:       p.Automatic,
			},
		})
	case domain.MarkRecovered:
		s.analytics.RecordRecovered(ctx, &next)
	case domain.Resolve:
		s.analytics.RecordResolved(ctx, &next)
	}

	return &next, nil
}

func (s *CaseService) recordHistory(ctx context.Context, actor domain.HistoryActor, actorID *string, old, updated *domain.FeedbackCase, payload domain.ActionPayload) {
	comment := ""
	switch p := payload.(type) {
	case domain.StartFollowup:
		comment = p.Notes
	case domain.MarkContacted:
		comment = p.Notes
	case domain.Resolve:
		comment = p.ResolutionNotes
	case domain.MarkRecovered:
		comment = p.ResolutionNotes
	case domain.Escalate:
		comment = p.Reason
	case domain.CloseNoAction:
		comment = p.ResolutionNotes
	}
	entry := &domain.CaseHistory{
		CaseID:    updated.ID,
		ActorType: actor,
		ActorID:   actorID,
		Action:    payload.Action(),
		OldStatus: old.Status,
		NewStatus: updated.Status,
		Comment:   comment,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("case history append failed",
			zap.String("case_id", updated.ID),
			zap.Error(err))
	}
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
