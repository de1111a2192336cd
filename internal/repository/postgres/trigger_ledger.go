package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-engine/internal/lifecycle"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type triggerLedgerRepository struct {
	*BaseRepository
}

func NewTriggerLedgerRepository(db *sqlx.DB) repository.TriggerLedgerRepository {
	return &triggerLedgerRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *triggerLedgerRepository) HasFired(ctx context.Context, clientID uuid.UUID, trigger model.TriggerType, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trigger_ledger
			WHERE client_id = $1 AND trigger_type = $2 AND trigger_date = $3
		)
	`
	var fired bool
	err := r.db.GetContext(ctx, &fired, query, clientID, trigger, lifecycle.DateOf(date))
	if err != nil {
		return false, fmt.Errorf("failed to check trigger ledger: %w", err)
	}
	return fired, nil
}

// MarkFired relies on the table's unique constraint as the race-safety
// boundary: concurrent inserts of the same key collapse into one row and
// both callers see success.
func (r *triggerLedgerRepository) MarkFired(ctx context.Context, clientID uuid.UUID, trigger model.TriggerType, date time.Time) error {
	query := `
		INSERT INTO trigger_ledger (client_id, trigger_type, trigger_date, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, trigger_type, trigger_date) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, clientID, trigger, lifecycle.DateOf(date), time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark trigger fired: %w", err)
	}
	return nil
}
