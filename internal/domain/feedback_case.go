package domain

import "time"

// CaseStatus enumerates lifecycle states for feedback cases.
type CaseStatus string

const (
	CaseStatusPending        CaseStatus = "pending"
	CaseStatusAssigned       CaseStatus = "assigned"
	CaseStatusInProgress     CaseStatus = "in_progress"
	CaseStatusContacted      CaseStatus = "contacted"
	CaseStatusResolved       CaseStatus = "resolved"
	CaseStatusRecovered      CaseStatus = "recovered"
	CaseStatusEscalated      CaseStatus = "escalated"
	CaseStatusClosedNoAction CaseStatus = "closed_no_action"
)

// IsTerminal reports whether the status ends day-to-day processing.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case CaseStatusResolved, CaseStatusRecovered, CaseStatusClosedNoAction:
		return true
	}
	return false
}

// CasePriority enumerates urgency assigned at detection time.
type CasePriority string

const (
	CasePriorityLow      CasePriority = "low"
	CasePriorityMedium   CasePriority = "medium"
	CasePriorityHigh     CasePriority = "high"
	CasePriorityCritical CasePriority = "critical"
)

// MaxAutoEscalationLevel caps automatic SLA-driven escalation.
const MaxAutoEscalationLevel = 3

// FeedbackCase is the aggregate for detractor remediation workflows.
type FeedbackCase struct {
	ID                        string
	CompanyID                 string
	ContactID                 *string
	OriginalScore             float64
	RecoveryScore             *float64
	Priority                  CasePriority
	Status                    CaseStatus
	AssignedTo                *string
	EscalatedTo               *string
	EscalationLevel           int
	EscalationReason          *string
	SLADeadline               time.Time
	FollowupDate              *time.Time
	FollowupNotes             []string
	ResolutionNotes           *string
	RecoverySurveyScheduledAt *time.Time
	RecoverySurveySentAt      *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
	ClosedAt                  *time.Time
}

// SLABreached reports whether the case sits past its deadline in an open state.
func (f *FeedbackCase) SLABreached(now time.Time) bool {
	switch f.Status {
	case CaseStatusPending, CaseStatusAssigned, CaseStatusInProgress:
		return f.SLADeadline.Before(now)
	}
	return false
}
