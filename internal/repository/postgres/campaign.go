package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type campaignRepository struct {
	*BaseRepository
}

func NewCampaignRepository(db *sqlx.DB) repository.CampaignRepository {
	return &campaignRepository{BaseRepository: NewBaseRepository(db)}
}

type campaignRow struct {
	model.Campaign
	RecipientsJSON []byte `db:"recipients"`
}

func (row *campaignRow) toModel() (*model.Campaign, error) {
	campaign := row.Campaign
	if len(row.RecipientsJSON) > 0 {
		if err := json.Unmarshal(row.RecipientsJSON, &campaign.Recipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal campaign recipients: %w", err)
		}
	}
	return &campaign, nil
}

func (r *campaignRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	recipients, err := json.Marshal(campaign.Recipients)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign recipients: %w", err)
	}

	query := `
		INSERT INTO campaigns (id, organization_id, name, template_name, recipients, scheduled_at, status, sent_count, failed_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, query,
		campaign.ID,
		campaign.OrganizationID,
		campaign.Name,
		campaign.TemplateName,
		recipients,
		campaign.ScheduledAt,
		campaign.Status,
		campaign.SentCount,
		campaign.FailedCount,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT * FROM campaigns WHERE id = $1`
	var row campaignRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return row.toModel()
}

// ClaimDue selects due campaigns under row locks and flips them to
// completed in the same transaction, so a crashed or concurrent cycle
// cannot send the same campaign twice. The real counts arrive later via
// UpdateOutcome.
func (r *campaignRepository) ClaimDue(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	var campaigns []*model.Campaign
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			SELECT * FROM campaigns
			WHERE status = $1 AND (scheduled_at IS NULL OR scheduled_at <= $2)
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
		`
		var rows []*campaignRow
		if err := tx.SelectContext(ctx, &rows, query, model.CampaignStatusPending, now); err != nil {
			return fmt.Errorf("failed to find due campaigns: %w", err)
		}

		claim := `UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`
		for _, row := range rows {
			campaign, err := row.toModel()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, claim, model.CampaignStatusCompleted, time.Now(), campaign.ID); err != nil {
				return fmt.Errorf("failed to claim campaign: %w", err)
			}
			campaigns = append(campaigns, campaign)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *campaignRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, status model.CampaignStatus, sent, failed int) error {
	query := `UPDATE campaigns SET status = $1, sent_count = $2, failed_count = $3, updated_at = $4 WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, status, sent, failed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update campaign outcome: %w", err)
	}
	return nil
}
