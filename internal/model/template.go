package model

import (
	"github.com/google/uuid"
)

// MessageTemplate is a tenant-scoped message body with {placeholder} tokens.
// Templates are edited by tenant admins; the engine only reads them.
type MessageTemplate struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Body           string    `json:"body" db:"body"`
}
