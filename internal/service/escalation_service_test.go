package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

func newTestEscalationService() (*EscalationService, *mockOrgRepo, *mockNotificationRepo, *mockTaskRepo) {
	org := newMockOrgRepo()
	notifications := &mockNotificationRepo{}
	tasks := &mockTaskRepo{}
	svc := NewEscalationService(EscalationDependencies{
		OrgRepo:          org,
		NotificationRepo: notifications,
		TaskRepo:         tasks,
		Logger:           zap.NewNop(),
	})
	return svc, org, notifications, tasks
}

func TestResolveTarget_OfficeDirector(t *testing.T) {
	svc, org, _, _ := newTestEscalationService()
	ctx := context.Background()

	assignee := "agent-1"
	org.offices["agent-1"] = "office-1"
	org.officeDirectors["office-1"] = &domain.Manager{ID: "dir-1", Role: domain.RoleOfficeDirector}
	org.commercialDirector = &domain.Manager{ID: "cdir-1", Role: domain.RoleCommercialDirector}

	manager, err := svc.ResolveTarget(ctx, &domain.FeedbackCase{AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if manager == nil || manager.ID != "dir-1" {
		t.Errorf("expected office director, got %v", manager)
	}
}

func TestResolveTarget_FallbackToCommercialDirector(t *testing.T) {
	svc, org, _, _ := newTestEscalationService()
	ctx := context.Background()
	org.commercialDirector = &domain.Manager{ID: "cdir-1", Role: domain.RoleCommercialDirector}

	// Assignee with an office but no director there.
	assignee := "agent-1"
	org.offices["agent-1"] = "office-without-director"
	manager, err := svc.ResolveTarget(ctx, &domain.FeedbackCase{AssignedTo: &assignee})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if manager == nil || manager.ID != "cdir-1" {
		t.Errorf("expected commercial director, got %v", manager)
	}

	// No assignee at all.
	manager, err = svc.ResolveTarget(ctx, &domain.FeedbackCase{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if manager == nil || manager.ID != "cdir-1" {
		t.Errorf("expected commercial director, got %v", manager)
	}
}

func TestResolveTarget_NoTarget(t *testing.T) {
	svc, _, _, _ := newTestEscalationService()

	manager, err := svc.ResolveTarget(context.Background(), &domain.FeedbackCase{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if manager != nil {
		t.Errorf("expected nil target, got %v", manager)
	}
}

func TestResolveTarget_LookupError(t *testing.T) {
	svc, org, _, _ := newTestEscalationService()
	org.commercialLookupErr = errors.New("org service down")

	_, err := svc.ResolveTarget(context.Background(), &domain.FeedbackCase{})
	if err == nil {
		t.Fatal("expected lookup error propagated")
	}
}

func TestEmitEscalation_SkipsUnrouted(t *testing.T) {
	svc, _, notifications, tasks := newTestEscalationService()

	svc.EmitEscalation(context.Background(), &domain.FeedbackCase{ID: "case-1", EscalationLevel: 1})
	if len(notifications.notifications) != 0 || len(tasks.tasks) != 0 {
		t.Error("unrouted escalation must not emit")
	}
}

func TestEmitEscalation_NotificationFailureStillEnqueuesTask(t *testing.T) {
	svc, _, notifications, tasks := newTestEscalationService()
	notifications.createErr = errors.New("inbox unavailable")

	target := "dir-1"
	reason := "SLA breach"
	svc.EmitEscalation(context.Background(), &domain.FeedbackCase{
		ID:               "case-1",
		OriginalScore:    2,
		Priority:         domain.CasePriorityHigh,
		EscalatedTo:      &target,
		EscalationReason: &reason,
		EscalationLevel:  1,
	})
	if len(tasks.tasks) != 1 {
		t.Fatalf("expected task despite notification failure, got %d", len(tasks.tasks))
	}
	if tasks.tasks[0].AssigneeID == nil || *tasks.tasks[0].AssigneeID != "dir-1" {
		t.Errorf("expected task assigned to dir-1, got %v", tasks.tasks[0].AssigneeID)
	}
}
