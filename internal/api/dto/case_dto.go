package dto

import (
	"fmt"
	"time"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// CreateCaseRequest is the detection event payload.
type CreateCaseRequest struct {
	CompanyID     string              `json:"company_id"`
	ContactID     *string             `json:"contact_id"`
	OriginalScore float64             `json:"original_score"`
	Priority      domain.CasePriority `json:"priority"`
	AssignedTo    *string             `json:"assigned_to"`
	SLADeadline   time.Time           `json:"sla_deadline"`
}

// CaseActionRequest is the synchronous action payload.
type CaseActionRequest struct {
	Action          domain.CaseAction `json:"action"`
	Notes           string            `json:"notes"`
	ResolutionNotes string            `json:"resolution_notes"`
	RecoveryScore   *float64          `json:"recovery_score"`
	Reason          string            `json:"reason"`
}

// Payload converts the flat request into the tagged action union, rejecting
// malformed input before it reaches the transition validator.
func (r CaseActionRequest) Payload() (domain.ActionPayload, error) {
	switch r.Action {
	case domain.ActionStartFollowup:
		return domain.StartFollowup{Notes: r.Notes}, nil
	case domain.ActionMarkContacted:
		return domain.MarkContacted{Notes: r.Notes}, nil
	case domain.ActionResolve:
		return domain.Resolve{ResolutionNotes: r.ResolutionNotes}, nil
	case domain.ActionMarkRecovered:
		if r.RecoveryScore == nil {
			return nil, fmt.Errorf("%w: recovery_score", domain.ErrMissingRequiredField)
		}
		return domain.MarkRecovered{RecoveryScore: *r.RecoveryScore, ResolutionNotes: r.ResolutionNotes}, nil
	case domain.ActionEscalate:
		return domain.Escalate{Reason: r.Reason}, nil
	case domain.ActionCloseNoAction:
		return domain.CloseNoAction{ResolutionNotes: r.ResolutionNotes}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidTransition, r.Action)
	}
}

// CaseActionResponse reports the accepted transition.
type CaseActionResponse struct {
	CaseID    string            `json:"case_id"`
	NewStatus domain.CaseStatus `json:"new_status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CaseSummary response.
type CaseSummary struct {
	ID              string              `json:"id"`
	CompanyID       string              `json:"company_id"`
	ContactID       *string             `json:"contact_id,omitempty"`
	OriginalScore   float64             `json:"original_score"`
	Priority        domain.CasePriority `json:"priority"`
	Status          domain.CaseStatus   `json:"status"`
	AssignedTo      *string             `json:"assigned_to,omitempty"`
	EscalationLevel int                 `json:"escalation_level"`
	SLADeadline     time.Time           `json:"sla_deadline"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CaseDetailResponse provides full case info.
type CaseDetailResponse struct {
	CaseSummary
	RecoveryScore             *float64              `json:"recovery_score,omitempty"`
	EscalatedTo               *string               `json:"escalated_to,omitempty"`
	EscalationReason          *string               `json:"escalation_reason,omitempty"`
	FollowupDate              *time.Time            `json:"followup_date,omitempty"`
	FollowupNotes             []string              `json:"followup_notes"`
	ResolutionNotes           *string               `json:"resolution_notes,omitempty"`
	RecoverySurveyScheduledAt *time.Time            `json:"recovery_survey_scheduled_at,omitempty"`
	RecoverySurveySentAt      *time.Time            `json:"recovery_survey_sent_at,omitempty"`
	ClosedAt                  *time.Time            `json:"closed_at,omitempty"`
	History                   []CaseHistoryResponse `json:"history,omitempty"`
}

// CaseHistoryResponse represents one audit entry.
type CaseHistoryResponse struct {
	ActorType domain.HistoryActor `json:"actor_type"`
	ActorID   *string             `json:"actor_id,omitempty"`
	Action    domain.CaseAction   `json:"action"`
	OldStatus domain.CaseStatus   `json:"old_status"`
	NewStatus domain.CaseStatus   `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// RecoveryMetricsResponse reports aggregate recovery outcomes.
type RecoveryMetricsResponse struct {
	CasesRecovered int64   `json:"cases_recovered"`
	CasesResolved  int64   `json:"cases_resolved"`
	ScoreDeltaSum  float64 `json:"score_delta_sum"`
}
