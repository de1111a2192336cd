package model

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "pending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// CampaignRecipient is one entry of an explicit bulk recipient list: either
// a client reference or a raw address, plus optional personalization fields.
type CampaignRecipient struct {
	ClientID *uuid.UUID        `json:"client_id,omitempty"`
	Address  string            `json:"address,omitempty"`
	Channel  Channel           `json:"channel,omitempty" binding:"channel"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Campaign is an operator-initiated bulk send. Ad-hoc campaigns run
// synchronously; scheduled ones are picked up by the next automation cycle
// once ScheduledAt has passed. Campaigns are one-shot and never retried.
type Campaign struct {
	Base
	OrganizationID uuid.UUID           `json:"organization_id" db:"organization_id"`
	Name           string              `json:"name" db:"name"`
	TemplateName   string              `json:"template_name" db:"template_name"`
	Recipients     []CampaignRecipient `json:"recipients" db:"-"`
	ScheduledAt    *time.Time          `json:"scheduled_at,omitempty" db:"scheduled_at"`
	Status         CampaignStatus      `json:"status" db:"status"`
	SentCount      int                 `json:"sent_count" db:"sent_count"`
	FailedCount    int                 `json:"failed_count" db:"failed_count"`
}
