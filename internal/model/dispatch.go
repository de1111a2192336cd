package model

import (
	"time"

	"github.com/google/uuid"
)

type DispatchStatus string

const (
	DispatchStatusSent   DispatchStatus = "sent"
	DispatchStatusFailed DispatchStatus = "failed"
)

// DispatchJob is one intended send: a subject plus the rendered message.
// Trigger is empty or bulk for campaign jobs; RawAddress is set for bulk
// recipients that have no client record.
type DispatchJob struct {
	OrganizationID uuid.UUID
	Client         *Client
	RawAddress     string
	Channel        Channel
	Body           string
	Trigger        TriggerType
	TriggerDate    time.Time
}

// DispatchResult records the outcome of one attempted send. Results are
// append-only and immutable once written.
type DispatchResult struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	OrganizationID    uuid.UUID      `json:"organization_id" db:"organization_id"`
	ClientID          *uuid.UUID     `json:"client_id,omitempty" db:"client_id"`
	Channel           Channel        `json:"channel" db:"channel"`
	Address           string         `json:"address" db:"address"`
	Body              string         `json:"body" db:"body"`
	TriggerType       TriggerType    `json:"trigger_type" db:"trigger_type"`
	Status            DispatchStatus `json:"status" db:"status"`
	ProviderMessageID string         `json:"provider_message_id,omitempty" db:"provider_message_id"`
	ErrorDetail       string         `json:"error_detail,omitempty" db:"error_detail"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
}

type DispatchResultFilters struct {
	OrganizationID uuid.UUID
	ClientID       *uuid.UUID
	Status         DispatchStatus
	TriggerType    TriggerType
	Since          *time.Time
	Limit          int
}
