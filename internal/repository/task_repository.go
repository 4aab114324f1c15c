package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// TaskRepository stores follow-up work items.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.FollowupTask) error
	ListByAssignee(ctx context.Context, assigneeID string, limit, offset int) ([]domain.FollowupTask, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository builds repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.FollowupTask) error {
	const query = `
        INSERT INTO followup_tasks (kind, title, description, target_entity, assignee_id, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	if task.Status == "" {
		task.Status = domain.TaskStatusOpen
	}
	return r.pool.QueryRow(ctx, query,
		task.Kind,
		task.Title,
		task.Description,
		task.TargetEntity,
		task.AssigneeID,
		task.Priority,
		task.Status,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *taskRepository) ListByAssignee(ctx context.Context, assigneeID string, limit, offset int) ([]domain.FollowupTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, kind, title, description, target_entity, assignee_id, priority, status, created_at
        FROM followup_tasks WHERE assignee_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, assigneeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FollowupTask
	for rows.Next() {
		var task domain.FollowupTask
		if err := rows.Scan(&task.ID, &task.Kind, &task.Title, &task.Description, &task.TargetEntity, &task.AssigneeID, &task.Priority, &task.Status, &task.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
