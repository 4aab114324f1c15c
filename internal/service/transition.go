package service

import (
	"fmt"
	"time"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// RecoverySurveyDelay is the spacing between case resolution and the
// recovery re-survey.
const RecoverySurveyDelay = 30 * 24 * time.Hour

// SLABreachReason tags scanner-driven escalations.
const SLABreachReason = "SLA breach - automatic escalation"

var allowedTransitions = map[domain.CaseAction][]domain.CaseStatus{
	domain.ActionStartFollowup: {domain.CaseStatusPending, domain.CaseStatusAssigned},
	domain.ActionMarkContacted: {domain.CaseStatusInProgress},
	domain.ActionResolve:       {domain.CaseStatusContacted, domain.CaseStatusInProgress},
	domain.ActionMarkRecovered: {domain.CaseStatusContacted, domain.CaseStatusInProgress},
}

func actionAllowed(action domain.CaseAction, current domain.CaseStatus) bool {
	switch action {
	case domain.ActionEscalate, domain.ActionCloseNoAction:
		// Valid from any non-terminal state.
		return !current.IsTerminal()
	}
	for _, candidate := range allowedTransitions[action] {
		if candidate == current {
			return true
		}
	}
	return false
}

// ApplyAction validates the payload against the current case state and
// returns an updated copy. The input case is never mutated; on rejection the
// caller persists nothing (all-or-nothing field updates).
func ApplyAction(current domain.FeedbackCase, payload domain.ActionPayload, now time.Time) (domain.FeedbackCase, error) {
	action := payload.Action()
	if !actionAllowed(action, current.Status) {
		return current, fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, action, current.Status)
	}

	next := current
	next.FollowupNotes = append([]string(nil), current.FollowupNotes...)

	switch p := payload.(type) {
	case domain.StartFollowup:
		next.Status = domain.CaseStatusInProgress
		followup := now
		next.FollowupDate = &followup
		if p.Notes != "" {
			next.FollowupNotes = append(next.FollowupNotes, p.Notes)
		}
	case domain.MarkContacted:
		next.Status = domain.CaseStatusContacted
		if p.Notes != "" {
			next.FollowupNotes = append(next.FollowupNotes, p.Notes)
		}
	case domain.Resolve:
		next.Status = domain.CaseStatusResolved
		closed := now
		next.ClosedAt = &closed
		scheduled := now.Add(RecoverySurveyDelay)
		next.RecoverySurveyScheduledAt = &scheduled
		if p.ResolutionNotes != "" {
			notes := p.ResolutionNotes
			next.ResolutionNotes = &notes
		}
	case domain.MarkRecovered:
		if p.RecoveryScore <= 0 {
			return current, fmt.Errorf("%w: recovery_score", domain.ErrMissingRequiredField)
		}
		next.Status = domain.CaseStatusRecovered
		closed := now
		next.ClosedAt = &closed
		score := p.RecoveryScore
		next.RecoveryScore = &score
		scheduled := now.Add(RecoverySurveyDelay)
		next.RecoverySurveyScheduledAt = &scheduled
		if p.ResolutionNotes != "" {
			notes := p.ResolutionNotes
			next.ResolutionNotes = &notes
		}
	case domain.Escalate:
		if p.Automatic && current.EscalationLevel >= domain.MaxAutoEscalationLevel {
			return current, fmt.Errorf("%w: escalation level %d at automatic cap", domain.ErrInvalidTransition, current.EscalationLevel)
		}
		next.Status = domain.CaseStatusEscalated
		next.EscalationLevel = current.EscalationLevel + 1
		if p.Reason != "" {
			reason := p.Reason
			next.EscalationReason = &reason
		}
	case domain.CloseNoAction:
		next.Status = domain.CaseStatusClosedNoAction
		closed := now
		next.ClosedAt = &closed
		if p.ResolutionNotes != "" {
			notes := p.ResolutionNotes
			next.ResolutionNotes = &notes
		}
	default:
		return current, fmt.Errorf("%w: unknown action %s", domain.ErrInvalidTransition, action)
	}

	next.UpdatedAt = now
	return next, nil
}
