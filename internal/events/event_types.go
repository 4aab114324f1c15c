package events

import (
	"time"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated        EventType = "case_created"
	EventCaseStatusChanged  EventType = "case_status_changed"
	EventCaseEscalated      EventType = "case_escalated"
	EventRecoverySurveySent EventType = "recovery_survey_sent"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	CompanyID     string              `json:"company_id"`
	ContactID     *string             `json:"contact_id,omitempty"`
	OriginalScore float64             `json:"original_score"`
	Priority      domain.CasePriority `json:"priority"`
	SLADeadline   time.Time           `json:"sla_deadline"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	Action    domain.CaseAction `json:"action"`
	OldStatus domain.CaseStatus `json:"old_status"`
	NewStatus domain.CaseStatus `json:"new_status"`
}

// CaseEscalatedPayload payload.
type CaseEscalatedPayload struct {
	EscalationLevel int     `json:"escalation_level"`
	EscalatedTo     *string `json:"escalated_to,omitempty"`
	Reason          string  `json:"reason"`
	Automatic       bool    `json:"automatic"`
}

// RecoverySurveySentPayload payload.
type RecoverySurveySentPayload struct {
	CompanyID  string  `json:"company_id"`
	ContactID  *string `json:"contact_id,omitempty"`
	SurveyType string  `json:"survey_type"`
}
