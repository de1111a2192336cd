package model

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipStatusUpcoming     MembershipStatus = "upcoming"
	MembershipStatusActive       MembershipStatus = "active"
	MembershipStatusExpiringSoon MembershipStatus = "expiring_soon"
	MembershipStatusExpired      MembershipStatus = "expired"
)

// Membership is one purchased plan instance for a client. StartDate and
// EndDate are inclusive calendar dates. Status is a cache of the derived
// lifecycle state; it is recomputed against the current date at the start
// of every automation cycle and must never be trusted without that refresh.
type Membership struct {
	Base
	OrganizationID uuid.UUID        `json:"organization_id" db:"organization_id"`
	ClientID       uuid.UUID        `json:"client_id" db:"client_id"`
	PlanID         uuid.UUID        `json:"plan_id" db:"plan_id"`
	PlanName       string           `json:"plan_name" db:"plan_name"`
	StartDate      time.Time        `json:"start_date" db:"start_date"`
	EndDate        time.Time        `json:"end_date" db:"end_date"`
	Status         MembershipStatus `json:"status" db:"status"`
}

// MembershipWithClient joins a membership with its client for scanning.
type MembershipWithClient struct {
	Membership
	Client Client `json:"client"`
}
