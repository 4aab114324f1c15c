package domain

// CaseAction enumerates externally requestable transitions.
type CaseAction string

const (
	ActionStartFollowup CaseAction = "start_followup"
	ActionMarkContacted CaseAction = "mark_contacted"
	ActionResolve       CaseAction = "resolve"
	ActionMarkRecovered CaseAction = "mark_recovered"
	ActionEscalate      CaseAction = "escalate"
	ActionCloseNoAction CaseAction = "close_no_action"
)

// ActionPayload is the tagged union of per-action inputs. Each payload is
// validated at the boundary before the transition validator runs.
type ActionPayload interface {
	Action() CaseAction
}

// StartFollowup opens active follow-up on a pending case.
type StartFollowup struct {
	Notes string
}

// MarkContacted records that the customer has been reached.
type MarkContacted struct {
	Notes string
}

// Resolve closes the case and schedules the recovery re-survey.
type Resolve struct {
	ResolutionNotes string
}

// MarkRecovered closes the case with a confirmed improved score.
type MarkRecovered struct {
	RecoveryScore   float64
	ResolutionNotes string
}

// Escalate hands the case to the next responsible manager.
type Escalate struct {
	Reason string
	// Automatic marks scanner-driven escalation, which honors the level cap.
	Automatic bool
}

// CloseNoAction closes the case without remediation.
type CloseNoAction struct {
	ResolutionNotes string
}

func (StartFollowup) Action() CaseAction { return ActionStartFollowup }
func (MarkContacted) Action() CaseAction { return ActionMarkContacted }
func (Resolve) Action() CaseAction       { return ActionResolve }
func (MarkRecovered) Action() CaseAction { return ActionMarkRecovered }
func (Escalate) Action() CaseAction      { return ActionEscalate }
func (CloseNoAction) Action() CaseAction { return ActionCloseNoAction }
