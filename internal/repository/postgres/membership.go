package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/notify-engine/internal/lifecycle"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type membershipRepository struct {
	*BaseRepository
}

func NewMembershipRepository(db *sqlx.DB) repository.MembershipRepository {
	return &membershipRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *membershipRepository) Create(ctx context.Context, membership *model.Membership) error {
	query := `
		INSERT INTO memberships (id, organization_id, client_id, plan_id, plan_name, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	membership.CreatedAt = time.Now()
	membership.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		membership.ID,
		membership.OrganizationID,
		membership.ClientID,
		membership.PlanID,
		membership.PlanName,
		membership.StartDate,
		membership.EndDate,
		membership.Status,
		membership.CreatedAt,
		membership.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *membershipRepository) Get(ctx context.Context, id uuid.UUID) (*model.Membership, error) {
	query := `SELECT * FROM memberships WHERE id = $1`
	var membership model.Membership
	err := r.db.GetContext(ctx, &membership, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &membership, nil
}

func (r *membershipRepository) Update(ctx context.Context, membership *model.Membership) error {
	query := `
		UPDATE memberships
		SET plan_id = $1, plan_name = $2, start_date = $3, end_date = $4, status = $5, updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		membership.PlanID,
		membership.PlanName,
		membership.StartDate,
		membership.EndDate,
		membership.Status,
		time.Now(),
		membership.ID,
	)
	return err
}

func (r *membershipRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Membership, error) {
	query := `SELECT * FROM memberships WHERE client_id = $1 ORDER BY end_date DESC`
	var memberships []*model.Membership
	err := r.db.SelectContext(ctx, &memberships, query, clientID)
	return memberships, err
}

func (r *membershipRepository) FindByStatuses(ctx context.Context, statuses []model.MembershipStatus) ([]*model.MembershipWithClient, error) {
	query := `
		SELECT m.*,
		       c.id AS "client.id",
		       c.organization_id AS "client.organization_id",
		       c.name AS "client.name",
		       c.whatsapp AS "client.whatsapp",
		       c.phone AS "client.phone",
		       c.email AS "client.email",
		       c.date_of_birth AS "client.date_of_birth",
		       c.status AS "client.status",
		       c.created_at AS "client.created_at",
		       c.updated_at AS "client.updated_at"
		FROM memberships m
		JOIN clients c ON c.id = m.client_id
		WHERE m.status = ANY($1)
	`
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var rows []*model.MembershipWithClient
	err := r.db.SelectContext(ctx, &rows, query, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("failed to find memberships by status: %w", err)
	}
	return rows, nil
}

func (r *membershipRepository) RefreshStatuses(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE memberships
		SET status = CASE
			WHEN start_date > $1::date THEN 'upcoming'
			WHEN end_date < $1::date THEN 'expired'
			WHEN end_date - $1::date <= $2 THEN 'expiring_soon'
			ELSE 'active'
		END,
		updated_at = NOW()
	`
	res, err := r.db.ExecContext(ctx, query, lifecycle.DateOf(today), lifecycle.ExpiringSoonDays)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh membership statuses: %w", err)
	}
	return res.RowsAffected()
}
