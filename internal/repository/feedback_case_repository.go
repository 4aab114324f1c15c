package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// CaseFilter captures listing parameters for feedback cases.
type CaseFilter struct {
	CompanyID   *string
	AssignedTo  *string
	Statuses    []domain.CaseStatus
	Priorities  []domain.CasePriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// FeedbackCaseRepository encapsulates feedback case persistence.
type FeedbackCaseRepository interface {
	Create(ctx context.Context, fc *domain.FeedbackCase) error
	// Update persists the case with an optimistic check against the
	// previously read updatedAt. A stale write returns
	// domain.ErrConcurrentModification and leaves the row untouched.
	Update(ctx context.Context, fc *domain.FeedbackCase, readUpdatedAt time.Time) error
	GetByID(ctx context.Context, id string) (*domain.FeedbackCase, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.FeedbackCase, error)
	// ListSLABreached returns open cases past their deadline that are still
	// below the automatic escalation cap.
	ListSLABreached(ctx context.Context, now time.Time, limit int) ([]domain.FeedbackCase, error)
	// ListSurveyDue returns resolved/recovered cases whose re-survey date
	// arrived and which have not yet been dispatched.
	ListSurveyDue(ctx context.Context, now time.Time, limit int) ([]domain.FeedbackCase, error)
	// MarkSurveySent sets recoverySurveySentAt once. A row already sent or
	// concurrently claimed returns domain.ErrConcurrentModification.
	MarkSurveySent(ctx context.Context, id string, sentAt time.Time) error
}

type feedbackCaseRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackCaseRepository instantiates repository.
func NewFeedbackCaseRepository(pool *pgxpool.Pool) FeedbackCaseRepository {
	return &feedbackCaseRepository{pool: pool}
}

const caseColumns = `id, company_id, contact_id, original_score, recovery_score, priority, status,
               assigned_to, escalated_to, escalation_level, escalation_reason, sla_deadline,
               followup_date, followup_notes, resolution_notes, recovery_survey_scheduled_at,
               recovery_survey_sent_at, created_at, updated_at, closed_at`

func (r *feedbackCaseRepository) Create(ctx context.Context, fc *domain.FeedbackCase) error {
	const query = `
        INSERT INTO feedback_cases (company_id, contact_id, original_score, priority, status, assigned_to, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		fc.CompanyID,
		fc.ContactID,
		fc.OriginalScore,
		fc.Priority,
		fc.Status,
		fc.AssignedTo,
		fc.SLADeadline,
	).Scan(&fc.ID, &fc.CreatedAt, &fc.UpdatedAt)
}

func (r *feedbackCaseRepository) Update(ctx context.Context, fc *domain.FeedbackCase, readUpdatedAt time.Time) error {
	const query = `
        UPDATE feedback_cases SET recovery_score=$1, status=$2, assigned_to=$3, escalated_to=$4,
            escalation_level=$5, escalation_reason=$6, followup_date=$7, followup_notes=$8,
            resolution_notes=$9, recovery_survey_scheduled_at=$10, closed_at=$11, updated_at=NOW()
        WHERE id=$12 AND updated_at=$13
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		fc.RecoveryScore,
		fc.Status,
		fc.AssignedTo,
		fc.EscalatedTo,
		fc.EscalationLevel,
		fc.EscalationReason,
		fc.FollowupDate,
		fc.FollowupNotes,
		fc.ResolutionNotes,
		fc.RecoverySurveyScheduledAt,
		fc.ClosedAt,
		fc.ID,
		readUpdatedAt,
	).Scan(&fc.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	// Distinguish a stale write from a missing row.
	var exists bool
	if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM feedback_cases WHERE id=$1)`, fc.ID).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if exists {
		return domain.ErrConcurrentModification
	}
	return domain.ErrCaseNotFound
}

func (r *feedbackCaseRepository) GetByID(ctx context.Context, id string) (*domain.FeedbackCase, error) {
	query := `SELECT ` + caseColumns + ` FROM feedback_cases WHERE id=$1`
	fc, err := r.fetchSingle(ctx, query, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCaseNotFound
	}
	return fc, err
}

func (r *feedbackCaseRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.FeedbackCase, error) {
	var fc domain.FeedbackCase
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&fc.ID,
		&fc.CompanyID,
		&fc.ContactID,
		&fc.OriginalScore,
		&fc.RecoveryScore,
		&fc.Priority,
		&fc.Status,
		&fc.AssignedTo,
		&fc.EscalatedTo,
		&fc.EscalationLevel,
		&fc.EscalationReason,
		&fc.SLADeadline,
		&fc.FollowupDate,
		&fc.FollowupNotes,
		&fc.ResolutionNotes,
		&fc.RecoverySurveyScheduledAt,
		&fc.RecoverySurveySentAt,
		&fc.CreatedAt,
		&fc.UpdatedAt,
		&fc.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (r *feedbackCaseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.FeedbackCase, error) {
	base := `SELECT ` + caseColumns + ` FROM feedback_cases`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *feedbackCaseRepository) ListSLABreached(ctx context.Context, now time.Time, limit int) ([]domain.FeedbackCase, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
        SELECT %s FROM feedback_cases
        WHERE status IN ('pending','assigned','in_progress')
          AND sla_deadline < $1
          AND escalation_level < $2
        ORDER BY sla_deadline ASC
        LIMIT %d`, caseColumns, limit)
	rows, err := r.pool.Query(ctx, query, now, domain.MaxAutoEscalationLevel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *feedbackCaseRepository) ListSurveyDue(ctx context.Context, now time.Time, limit int) ([]domain.FeedbackCase, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
        SELECT %s FROM feedback_cases
        WHERE status IN ('resolved','recovered')
          AND recovery_survey_scheduled_at IS NOT NULL
          AND recovery_survey_scheduled_at <= $1
          AND recovery_survey_sent_at IS NULL
        ORDER BY recovery_survey_scheduled_at ASC
        LIMIT %d`, caseColumns, limit)
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *feedbackCaseRepository) MarkSurveySent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `
        UPDATE feedback_cases SET recovery_survey_sent_at=$1, updated_at=NOW()
        WHERE id=$2 AND recovery_survey_sent_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, sentAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

func scanCases(rows pgx.Rows) ([]domain.FeedbackCase, error) {
	var result []domain.FeedbackCase
	for rows.Next() {
		var fc domain.FeedbackCase
		if err := rows.Scan(
			&fc.ID,
			&fc.CompanyID,
			&fc.ContactID,
			&fc.OriginalScore,
			&fc.RecoveryScore,
			&fc.Priority,
			&fc.Status,
			&fc.AssignedTo,
			&fc.EscalatedTo,
			&fc.EscalationLevel,
			&fc.EscalationReason,
			&fc.SLADeadline,
			&fc.FollowupDate,
			&fc.FollowupNotes,
			&fc.ResolutionNotes,
			&fc.RecoverySurveyScheduledAt,
			&fc.RecoverySurveySentAt,
			&fc.CreatedAt,
			&fc.UpdatedAt,
			&fc.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, fc)
	}
	return result, rows.Err()
}
