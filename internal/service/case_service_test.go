package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/observability"
	"github.com/spec-kit/feedback-engine/internal/repository"
)

// mockCaseRepo implements repository.FeedbackCaseRepository in memory with
// the same optimistic-check semantics as the postgres implementation.
type mockCaseRepo struct {
	cases      map[string]*domain.FeedbackCase
	nextID     int
	updateErrs map[string]error
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{
		cases:      make(map[string]*domain.FeedbackCase),
		nextID:     1,
		updateErrs: make(map[string]error),
	}
}

func (m *mockCaseRepo) Create(ctx context.Context, fc *domain.FeedbackCase) error {
	fc.ID = fmt.Sprintf("case-%03d", m.nextID)
	m.nextID++
	now := time.Now()
	fc.CreatedAt = now
	fc.UpdatedAt = now
	stored := *fc
	m.cases[fc.ID] = &stored
	return nil
}

func (m *mockCaseRepo) Update(ctx context.Context, fc *domain.FeedbackCase, readUpdatedAt time.Time) error {
	if err, ok := m.updateErrs[fc.ID]; ok {
		delete(m.updateErrs, fc.ID)
		return err
	}
	stored, ok := m.cases[fc.ID]
	if !ok {
		return domain.ErrCaseNotFound
	}
	if !stored.UpdatedAt.Equal(readUpdatedAt) {
		return domain.ErrConcurrentModification
	}
	updated := *fc
	updated.UpdatedAt = readUpdatedAt.Add(time.Millisecond)
	m.cases[fc.ID] = &updated
	fc.UpdatedAt = updated.UpdatedAt
	return nil
}

func (m *mockCaseRepo) GetByID(ctx context.Context, id string) (*domain.FeedbackCase, error) {
	stored, ok := m.cases[id]
	if !ok {
		return nil, domain.ErrCaseNotFound
	}
	copied := *stored
	return &copied, nil
}

func (m *mockCaseRepo) ListWithFilter(ctx context.Context, filter repository.CaseFilter) ([]domain.FeedbackCase, error) {
	var result []domain.FeedbackCase
	for _, fc := range m.cases {
		result = append(result, *fc)
	}
	return result, nil
}

func (m *mockCaseRepo) ListSLABreached(ctx context.Context, now time.Time, limit int) ([]domain.FeedbackCase, error) {
	var result []domain.FeedbackCase
	for _, fc := range m.cases {
		if fc.SLABreached(now) && fc.EscalationLevel < domain.MaxAutoEscalationLevel {
			result = append(result, *fc)
		}
	}
	return result, nil
}

func (m *mockCaseRepo) ListSurveyDue(ctx context.Context, now time.Time, limit int) ([]domain.FeedbackCase, error) {
	var result []domain.FeedbackCase
	for _, fc := range m.cases {
		if fc.Status != domain.CaseStatusResolved && fc.Status != domain.CaseStatusRecovered {
			continue
		}
		if fc.RecoverySurveyScheduledAt == nil || fc.RecoverySurveyScheduledAt.After(now) {
			continue
		}
		if fc.RecoverySurveySentAt != nil {
			continue
		}
		result = append(result, *fc)
	}
	return result, nil
}

func (m *mockCaseRepo) MarkSurveySent(ctx context.Context, id string, sentAt time.Time) error {
	stored, ok := m.cases[id]
	if !ok {
		return domain.ErrCaseNotFound
	}
	if stored.RecoverySurveySentAt != nil {
		return domain.ErrConcurrentModification
	}
	sent := sentAt
	stored.RecoverySurveySentAt = &sent
	return nil
}

type mockHistoryRepo struct {
	entries   []*domain.CaseHistory
	createErr error
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *domain.CaseHistory) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, history)
	return nil
}

func (m *mockHistoryRepo) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	var result []domain.CaseHistory
	for _, entry := range m.entries {
		if entry.CaseID == caseID {
			result = append(result, *entry)
		}
	}
	return result, nil
}

type mockOrgRepo struct {
	offices             map[string]string
	officeDirectors     map[string]*domain.Manager
	commercialDirector  *domain.Manager
	officeDirectorErr   error
	commercialLookupErr error
}

func newMockOrgRepo() *mockOrgRepo {
	return &mockOrgRepo{
		offices:         make(map[string]string),
		officeDirectors: make(map[string]*domain.Manager),
	}
}

func (m *mockOrgRepo) OfficeOfUser(ctx context.Context, userID string) (*string, error) {
	office, ok := m.offices[userID]
	if !ok {
		return nil, nil
	}
	return &office, nil
}

func (m *mockOrgRepo) ResolveOfficeDirector(ctx context.Context, officeID string) (*domain.Manager, error) {
	if m.officeDirectorErr != nil {
		return nil, m.officeDirectorErr
	}
	return m.officeDirectors[officeID], nil
}

func (m *mockOrgRepo) ResolveCommercialDirector(ctx context.Context) (*domain.Manager, error) {
	if m.commercialLookupErr != nil {
		return nil, m.commercialLookupErr
	}
	return m.commercialDirector, nil
}

type mockNotificationRepo struct {
	notifications []*domain.Notification
	createErr     error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	return nil, nil
}

type mockTaskRepo struct {
	tasks     []*domain.FollowupTask
	createErr error
}

func (m *mockTaskRepo) Create(ctx context.Context, task *domain.FollowupTask) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskRepo) ListByAssignee(ctx context.Context, assigneeID string, limit, offset int) ([]domain.FollowupTask, error) {
	return nil, nil
}

type caseServiceFixture struct {
	service       *CaseService
	cases         *mockCaseRepo
	history       *mockHistoryRepo
	org           *mockOrgRepo
	notifications *mockNotificationRepo
	tasks         *mockTaskRepo
	metrics       *observability.Metrics
}

func newCaseServiceFixture() *caseServiceFixture {
	logger := zap.NewNop()
	cases := newMockCaseRepo()
	history := &mockHistoryRepo{}
	org := newMockOrgRepo()
	notifications := &mockNotificationRepo{}
	tasks := &mockTaskRepo{}
	metrics := observability.NewMetrics()

	escalation := NewEscalationService(EscalationDependencies{
		OrgRepo:          org,
		NotificationRepo: notifications,
		TaskRepo:         tasks,
		Logger:           logger,
	})
	svc := NewCaseService(CaseDependencies{
		CaseRepo:    cases,
		HistoryRepo: history,
		Escalation:  escalation,
		Metrics:     metrics,
		Logger:      logger,
	})
	return &caseServiceFixture{
		service:       svc,
		cases:         cases,
		history:       history,
		org:           org,
		notifications: notifications,
		tasks:         tasks,
		metrics:       metrics,
	}
}

func (f *caseServiceFixture) seedCase(t *testing.T, status domain.CaseStatus) *domain.FeedbackCase {
	t.Helper()
	fc := &domain.FeedbackCase{
		CompanyID:     "company-1",
		OriginalScore: 3,
		Priority:      domain.CasePriorityHigh,
		Status:        domain.CaseStatusPending,
		SLADeadline:   time.Now().Add(24 * time.Hour),
	}
	if err := f.cases.Create(context.Background(), fc); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	stored := f.cases.cases[fc.ID]
	stored.Status = status
	fc.Status = status
	return fc
}

func TestCaseService_CreateCase(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()

	fc, err := f.service.CreateCase(ctx, CaseCreateInput{
		CompanyID:     "company-9",
		OriginalScore: 2,
		SLADeadline:   time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fc.Status != domain.CaseStatusPending {
		t.Errorf("expected pending, got %s", fc.Status)
	}
	if fc.Priority != domain.CasePriorityMedium {
		t.Errorf("expected default medium priority, got %s", fc.Priority)
	}
	if fc.ID == "" {
		t.Error("expected id assigned")
	}
}

func TestCaseService_CreateCase_RequiresDeadline(t *testing.T) {
	f := newCaseServiceFixture()

	_, err := f.service.CreateCase(context.Background(), CaseCreateInput{CompanyID: "company-9"})
	if err == nil {
		t.Fatal("expected error for missing sla deadline")
	}
}

func TestCaseService_PerformAction_RecordsHistory(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusPending)

	actorID := "agent-1"
	updated, err := f.service.PerformAction(ctx, domain.ActorUser, &actorID, fc.ID, domain.StartFollowup{Notes: "called customer"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Status != domain.CaseStatusInProgress {
		t.Errorf("expected in_progress, got %s", updated.Status)
	}
	if len(f.history.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(f.history.entries))
	}
	entry := f.history.entries[0]
	if entry.OldStatus != domain.CaseStatusPending || entry.NewStatus != domain.CaseStatusInProgress {
		t.Errorf("unexpected history transition %s -> %s", entry.OldStatus, entry.NewStatus)
	}
	if f.metrics.Counter(observability.CounterTransitionsAccepted) != 1 {
		t.Error("expected accepted transition counted")
	}
}

func TestCaseService_PerformAction_RejectionLeavesCaseUntouched(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusContacted)

	_, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.MarkRecovered{})
	if !errors.Is(err, domain.ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}

	stored, _ := f.cases.GetByID(ctx, fc.ID)
	if stored.Status != domain.CaseStatusContacted {
		t.Errorf("rejected action mutated case: %s", stored.Status)
	}
	if len(f.history.entries) != 0 {
		t.Error("rejected action must not record history")
	}
	if f.metrics.Counter(observability.CounterTransitionsRejected) != 1 {
		t.Error("expected rejected transition counted")
	}
}

func TestCaseService_PerformAction_ConcurrentModification(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusPending)

	// The first writer wins; the second write hits the optimistic check.
	f.cases.updateErrs[fc.ID] = domain.ErrConcurrentModification

	_, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.Escalate{Reason: "double click"})
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	updated, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.Escalate{Reason: "double click"})
	if err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if updated.EscalationLevel != 1 {
		t.Errorf("expected exactly one increment, got level %d", updated.EscalationLevel)
	}
}

func TestCaseService_Escalate_RoutesToOfficeDirector(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusInProgress)
	assignee := "agent-7"
	f.cases.cases[fc.ID].AssignedTo = &assignee
	f.org.offices["agent-7"] = "office-madrid"
	f.org.officeDirectors["office-madrid"] = &domain.Manager{ID: "director-1", Role: domain.RoleOfficeDirector}

	updated, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.Escalate{Reason: "customer churning"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.EscalatedTo == nil || *updated.EscalatedTo != "director-1" {
		t.Fatalf("expected escalated to director-1, got %v", updated.EscalatedTo)
	}
	if len(f.notifications.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifications.notifications))
	}
	if len(f.tasks.tasks) != 1 {
		t.Fatalf("expected 1 follow-up task, got %d", len(f.tasks.tasks))
	}
	task := f.tasks.tasks[0]
	if task.TargetEntity != fc.ID {
		t.Errorf("task must reference case id, got %q", task.TargetEntity)
	}
}

func TestCaseService_Escalate_UnroutedStillCommits(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusPending)
	// No office directors and no commercial director configured.

	updated, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.Escalate{Reason: "nobody home"})
	if err != nil {
		t.Fatalf("routing gap must not block escalation, got %v", err)
	}
	if updated.Status != domain.CaseStatusEscalated {
		t.Errorf("expected escalated, got %s", updated.Status)
	}
	if updated.EscalatedTo != nil {
		t.Errorf("expected empty escalatedTo, got %v", *updated.EscalatedTo)
	}
	if len(f.notifications.notifications) != 0 {
		t.Error("no notification without a routing target")
	}
}

func TestCaseService_Escalate_EmitterFailureDoesNotRollBack(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusPending)
	f.org.commercialDirector = &domain.Manager{ID: "cdir-1", Role: domain.RoleCommercialDirector}
	f.notifications.createErr = errors.New("smtp down")
	f.tasks.createErr = errors.New("queue full")

	updated, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.Escalate{Reason: "sink outage"})
	if err != nil {
		t.Fatalf("sink failure must not fail the transition, got %v", err)
	}
	if updated.Status != domain.CaseStatusEscalated {
		t.Errorf("expected escalated, got %s", updated.Status)
	}
	stored, _ := f.cases.GetByID(ctx, fc.ID)
	if stored.Status != domain.CaseStatusEscalated {
		t.Errorf("commit lost after sink failure: %s", stored.Status)
	}
}

func TestCaseService_Escalate_CriticalPrioritySeverity(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()
	fc := f.seedCase(t, domain.CaseStatusPending)
	f.cases.cases[fc.ID].Priority = domain.CasePriorityCritical
	f.org.commercialDirector = &domain.Manager{ID: "cdir-1", Role: domain.RoleCommercialDirector}

	if _, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, domain.Escalate{Reason: "major account"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.notifications.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifications.notifications))
	}
	if f.notifications.notifications[0].Severity != domain.SeverityCritical {
		t.Errorf("expected critical severity, got %s", f.notifications.notifications[0].Severity)
	}
}

func TestCaseService_TerminalStability(t *testing.T) {
	f := newCaseServiceFixture()
	ctx := context.Background()

	for _, status := range []domain.CaseStatus{domain.CaseStatusResolved, domain.CaseStatusRecovered, domain.CaseStatusClosedNoAction} {
		fc := f.seedCase(t, status)
		for _, payload := range []domain.ActionPayload{
			domain.StartFollowup{},
			domain.MarkContacted{},
			domain.Resolve{},
			domain.MarkRecovered{RecoveryScore: 9},
			domain.Escalate{Reason: "too late"},
			domain.CloseNoAction{},
		} {
			if _, err := f.service.PerformAction(ctx, domain.ActorUser, nil, fc.ID, payload); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("status %s action %s: expected ErrInvalidTransition, got %v", status, payload.Action(), err)
			}
		}
	}
}
