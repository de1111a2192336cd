// Package messenger wraps the outbound message transports. The engine only
// depends on the Messenger interface; the gateway client carries whatsapp
// and sms, email goes out over SMTP.
package messenger

import (
	"context"
	"fmt"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// Message is one outbound payload: either a freeform body or a provider
// template reference with parameters.
type Message struct {
	Body         string
	TemplateName string
	Params       map[string]string
}

// Messenger sends a message to an address over a channel and returns the
// provider message id.
type Messenger interface {
	Send(ctx context.Context, channel model.Channel, address string, msg Message) (string, error)
	// Configured reports whether the transport has usable credentials.
	// An unconfigured transport is a fatal error for an automation run.
	Configured() bool
}

// Router dispatches to a per-channel transport.
type Router struct {
	gateway Messenger
	email   Messenger
}

func NewRouter(gateway, email Messenger) *Router {
	return &Router{gateway: gateway, email: email}
}

func (r *Router) Send(ctx context.Context, channel model.Channel, address string, msg Message) (string, error) {
	switch channel {
	case model.ChannelWhatsApp, model.ChannelSMS:
		return r.gateway.Send(ctx, channel, address, msg)
	case model.ChannelEmail:
		if r.email == nil {
			return "", fmt.Errorf("email transport not configured")
		}
		return r.email.Send(ctx, channel, address, msg)
	default:
		return "", fmt.Errorf("unsupported channel: %s", channel)
	}
}

func (r *Router) Configured() bool {
	return r.gateway != nil && r.gateway.Configured()
}
