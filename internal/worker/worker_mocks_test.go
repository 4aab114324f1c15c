package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/repository"
)

// mockCaseRepo mirrors the optimistic-check semantics of the postgres
// implementation. ListSLABreached intentionally skips the level filter so the
// scanner's own cap guard is exercised.
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
		if fc.SLABreached(now) {
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
	entries []*domain.CaseHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *domain.CaseHistory) error {
	m.entries = append(m.entries, history)
	return nil
}

func (m *mockHistoryRepo) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	return nil, nil
}

type mockOrgRepo struct {
	commercialDirector *domain.Manager
}

func (m *mockOrgRepo) OfficeOfUser(ctx context.Context, userID string) (*string, error) {
	return nil, nil
}

func (m *mockOrgRepo) ResolveOfficeDirector(ctx context.Context, officeID string) (*domain.Manager, error) {
	return nil, nil
}

func (m *mockOrgRepo) ResolveCommercialDirector(ctx context.Context) (*domain.Manager, error) {
	return m.commercialDirector, nil
}

type mockNotificationRepo struct {
	notifications []*domain.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	return nil, nil
}

type mockTaskRepo struct {
	tasks []*domain.FollowupTask
}

func (m *mockTaskRepo) Create(ctx context.Context, task *domain.FollowupTask) error {
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskRepo) ListByAssignee(ctx context.Context, assigneeID string, limit, offset int) ([]domain.FollowupTask, error) {
	return nil, nil
}

type mockThrottle struct {
	allow    bool
	err      error
	reserved []string
}

func (m *mockThrottle) Reserve(ctx context.Context, companyID string, contactID *string, surveyType string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.reserved = append(m.reserved, companyID)
	return m.allow, nil
}

type mockSurveyDispatcher struct {
	sent []string
	err  error
}

func (m *mockSurveyDispatcher) SendSurvey(ctx context.Context, companyID string, contactID *string, surveyType string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, companyID)
	return nil
}
