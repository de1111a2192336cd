package model

import (
	"time"

	"github.com/google/uuid"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Channel identifies an outbound contact channel.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
)

// Client is a member of a tenant organization (gym, hostel, coaching center).
type Client struct {
	Base
	OrganizationID uuid.UUID    `json:"organization_id" db:"organization_id"`
	Name           string       `json:"name" db:"name"`
	WhatsApp       string       `json:"whatsapp" db:"whatsapp"`
	Phone          string       `json:"phone" db:"phone"`
	Email          string       `json:"email" db:"email"`
	DateOfBirth    *time.Time   `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Status         ClientStatus `json:"status" db:"status"`
}

// ContactAddress is one resolvable destination for a client.
type ContactAddress struct {
	Channel Channel
	Address string
}

// ContactAddresses returns the client's destinations in preference order:
// WhatsApp first, then the voice number as SMS, then email.
func (c *Client) ContactAddresses() []ContactAddress {
	var out []ContactAddress
	if c.WhatsApp != "" {
		out = append(out, ContactAddress{Channel: ChannelWhatsApp, Address: c.WhatsApp})
	}
	if c.Phone != "" {
		out = append(out, ContactAddress{Channel: ChannelSMS, Address: c.Phone})
	}
	if c.Email != "" {
		out = append(out, ContactAddress{Channel: ChannelEmail, Address: c.Email})
	}
	return out
}

// PreferredContact returns the first resolvable address, if any.
func (c *Client) PreferredContact() (ContactAddress, bool) {
	addrs := c.ContactAddresses()
	if len(addrs) == 0 {
		return ContactAddress{}, false
	}
	return addrs[0], true
}

type ClientFilters struct {
	OrganizationID uuid.UUID
	Status         ClientStatus
	SearchTerm     string
}
