package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/feedback-engine/internal/domain"
)

// OrgRepository resolves the organizational hierarchy used for escalation
// routing. A missing target returns (nil, nil) so routing can fall through.
type OrgRepository interface {
	OfficeOfUser(ctx context.Context, userID string) (*string, error)
	ResolveOfficeDirector(ctx context.Context, officeID string) (*domain.Manager, error)
	ResolveCommercialDirector(ctx context.Context) (*domain.Manager, error)
}

type orgRepository struct {
	pool *pgxpool.Pool
}

// NewOrgRepository instantiates repository.
func NewOrgRepository(pool *pgxpool.Pool) OrgRepository {
	return &orgRepository{pool: pool}
}

func (r *orgRepository) OfficeOfUser(ctx context.Context, userID string) (*string, error) {
	const query = `SELECT office_id FROM org_members WHERE user_id=$1`
	var officeID *string
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&officeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return officeID, nil
}

func (r *orgRepository) ResolveOfficeDirector(ctx context.Context, officeID string) (*domain.Manager, error) {
	const query = `
        SELECT user_id, name, office_id, role FROM org_members
        WHERE office_id=$1 AND role=$2
        ORDER BY user_id ASC LIMIT 1`
	return r.fetchManager(ctx, query, officeID, domain.RoleOfficeDirector)
}

func (r *orgRepository) ResolveCommercialDirector(ctx context.Context) (*domain.Manager, error) {
	const query = `
        SELECT user_id, name, office_id, role FROM org_members
        WHERE role=$1
        ORDER BY user_id ASC LIMIT 1`
	return r.fetchManager(ctx, query, domain.RoleCommercialDirector)
}

func (r *orgRepository) fetchManager(ctx context.Context, query string, args ...any) (*domain.Manager, error) {
	var m domain.Manager
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&m.ID, &m.Name, &m.OfficeID, &m.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
