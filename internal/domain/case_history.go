package domain

import "time"

// HistoryActor identifies who drove a recorded change.
type HistoryActor string

const (
	ActorUser      HistoryActor = "USER"
	ActorScanner   HistoryActor = "SCANNER"
	ActorScheduler HistoryActor = "SCHEDULER"
)

// CaseHistory is an append-only audit entry for an accepted transition.
type CaseHistory struct {
	ID        string
	CaseID    string
	ActorType HistoryActor
	ActorID   *string
	Action    CaseAction
	OldStatus CaseStatus
	NewStatus CaseStatus
	Comment   string
	CreatedAt time.Time
}
