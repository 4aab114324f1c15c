package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// CaseHistoryRepository stores audit entries.
type CaseHistoryRepository interface {
	Create(ctx context.Context, history *domain.CaseHistory) error
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error)
}

type caseHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewCaseHistoryRepository builds repository.
func NewCaseHistoryRepository(pool *pgxpool.Pool) CaseHistoryRepository {
	return &caseHistoryRepository{pool: pool}
}

func (r *caseHistoryRepository) Create(ctx context.Context, history *domain.CaseHistory) error {
	const query = `
        INSERT INTO feedback_case_history (case_id, actor_type, actor_id, action, old_status, new_status, comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.CaseID,
		history.ActorType,
		history.ActorID,
		history.Action,
		history.OldStatus,
		history.NewStatus,
		history.Comment,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *caseHistoryRepository) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, case_id, actor_type, actor_id, action, old_status, new_status, comment, created_at
        FROM feedback_case_history WHERE case_id=$1
        ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, caseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseHistory
	for rows.Next() {
		var history domain.CaseHistory
		if err := rows.Scan(
			&history.ID,
			&history.CaseID,
			&history.ActorType,
			&history.ActorID,
			&history.Action,
			&history.OldStatus,
			&history.NewStatus,
			&history.Comment,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
