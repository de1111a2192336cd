package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.ClientFilters) ([]*model.Client, error)
	// FindWithBirthdate returns active clients that have a date of birth set.
	FindWithBirthdate(ctx context.Context) ([]*model.Client, error)
}

type MembershipRepository interface {
	Create(ctx context.Context, membership *model.Membership) error
	Get(ctx context.Context, id uuid.UUID) (*model.Membership, error)
	Update(ctx context.Context, membership *model.Membership) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*model.Membership, error)
	// FindByStatuses returns memberships in the given derived states,
	// joined with their clients.
	FindByStatuses(ctx context.Context, statuses []model.MembershipStatus) ([]*model.MembershipWithClient, error)
	// RefreshStatuses recomputes the cached status column of every
	// membership against the given day.
	RefreshStatuses(ctx context.Context, today time.Time) (int64, error)
}

type TemplateRepository interface {
	Create(ctx context.Context, tmpl *model.MessageTemplate) error
	Get(ctx context.Context, orgID uuid.UUID, name string) (*model.MessageTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*model.MessageTemplate, error)
	Update(ctx context.Context, tmpl *model.MessageTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TriggerLedgerRepository is the idempotency store guaranteeing at-most-once
// delivery per subject per trigger per day.
type TriggerLedgerRepository interface {
	HasFired(ctx context.Context, clientID uuid.UUID, trigger model.TriggerType, date time.Time) (bool, error)
	// MarkFired inserts a ledger entry; inserting an existing key succeeds.
	MarkFired(ctx context.Context, clientID uuid.UUID, trigger model.TriggerType, date time.Time) error
}

type DispatchLogRepository interface {
	Create(ctx context.Context, result *model.DispatchResult) error
	List(ctx context.Context, filters *model.DispatchResultFilters) ([]*model.DispatchResult, error)
	// Cleanup deletes results older than the cutoff, returning the count.
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *model.Campaign) error
	Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	// ClaimDue atomically takes ownership of pending campaigns whose
	// scheduled time has passed (or that have no schedule at all), so no
	// other cycle can pick them up. Claimed campaigns are never returned
	// again; the caller records the outcome via UpdateOutcome.
	ClaimDue(ctx context.Context, now time.Time) ([]*model.Campaign, error)
	UpdateOutcome(ctx context.Context, id uuid.UUID, status model.CampaignStatus, sent, failed int) error
}
