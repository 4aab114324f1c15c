package domain

import "errors"

// Sentinel errors surfaced by the action processor and background jobs.
var (
	// ErrInvalidTransition means the requested action is not valid from the
	// case's current status. The case is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition for current status")

	// ErrConcurrentModification means the case changed between read and
	// write. The caller should re-fetch and retry.
	ErrConcurrentModification = errors.New("case modified concurrently")

	// ErrMissingRequiredField means an action payload lacks a mandatory
	// value, rejected before any write.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrCaseNotFound means no case exists for the given id.
	ErrCaseNotFound = errors.New("feedback case not found")

	// ErrRoutingUnresolved means no escalation target could be found. The
	// transition still commits; escalatedTo stays empty.
	ErrRoutingUnresolved = errors.New("no escalation target resolved")

	// ErrSurveyThrottled means the contact received a survey too recently.
	ErrSurveyThrottled = errors.New("survey throttled for contact")
)
