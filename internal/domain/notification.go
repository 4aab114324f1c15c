package domain

import "time"

// NotificationSeverity grades emitted notifications.
type NotificationSeverity string

const (
	SeverityWarning  NotificationSeverity = "warning"
	SeverityCritical NotificationSeverity = "critical"
)

// Notification is a message delivered to a user's inbox.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Severity  NotificationSeverity
	ReadAt    *time.Time
	CreatedAt time.Time
}

// TaskStatus tracks follow-up work item progress.
type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "open"
	TaskStatusDone TaskStatus = "done"
)

// FollowupTask is a work item enqueued for an escalated case.
type FollowupTask struct {
	ID           string
	Kind         string
	Title        string
	Description  string
	TargetEntity string
	AssigneeID   *string
	Priority     CasePriority
	Status       TaskStatus
	CreatedAt    time.Time
}
