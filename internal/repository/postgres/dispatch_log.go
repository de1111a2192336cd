package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type dispatchLogRepository struct {
	*BaseRepository
}

func NewDispatchLogRepository(db *sqlx.DB) repository.DispatchLogRepository {
	return &dispatchLogRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *dispatchLogRepository) Create(ctx context.Context, result *model.DispatchResult) error {
	query := `
		INSERT INTO dispatch_results (id, organization_id, client_id, channel, address, body, trigger_type, status, provider_message_id, error_detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.OrganizationID,
		result.ClientID,
		result.Channel,
		result.Address,
		result.Body,
		result.TriggerType,
		result.Status,
		result.ProviderMessageID,
		result.ErrorDetail,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatch result: %w", err)
	}
	return nil
}

func (r *dispatchLogRepository) List(ctx context.Context, filters *model.DispatchResultFilters) ([]*model.DispatchResult, error) {
	query := `SELECT * FROM dispatch_results WHERE organization_id = $1`
	args := []interface{}{filters.OrganizationID}

	if filters.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", len(args)+1)
		args = append(args, *filters.ClientID)
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}
	if filters.TriggerType != "" {
		query += fmt.Sprintf(" AND trigger_type = $%d", len(args)+1)
		args = append(args, filters.TriggerType)
	}
	if filters.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", len(args)+1)
		args = append(args, *filters.Since)
	}

	query += " ORDER BY created_at DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var results []*model.DispatchResult
	err := r.db.SelectContext(ctx, &results, query, args...)
	return results, err
}

func (r *dispatchLogRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM dispatch_results WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup dispatch results: %w", err)
	}
	return res.RowsAffected()
}
