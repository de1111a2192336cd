package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/circuitbreaker"
)

// GatewayClient talks to the push-style message gateway that carries
// whatsapp and sms traffic.
type GatewayClient struct {
	baseURL string
	token   string
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
}

type gatewayRequest struct {
	To       string            `json:"to"`
	Channel  string            `json:"channel"`
	Body     string            `json:"body,omitempty"`
	Template string            `json:"template,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func NewGatewayClient(cfg config.MessengerConfig) *GatewayClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GatewayClient{
		baseURL: cfg.GatewayURL,
		token:   cfg.APIToken,
		client:  &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "message-gateway",
			MaxFailures: 10,
			Timeout:     30 * time.Second,
		}),
	}
}

func (g *GatewayClient) Configured() bool {
	return g.baseURL != "" && g.token != ""
}

func (g *GatewayClient) Send(ctx context.Context, channel model.Channel, address string, msg Message) (string, error) {
	payload, err := json.Marshal(gatewayRequest{
		To:       address,
		Channel:  string(channel),
		Body:     msg.Body,
		Template: msg.TemplateName,
		Params:   msg.Params,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	var messageID string
	err = g.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.token)

		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("failed to read gateway response: %w", err)
		}

		var gr gatewayResponse
		if err := json.Unmarshal(body, &gr); err != nil {
			return fmt.Errorf("malformed gateway response (status %d): %w", resp.StatusCode, err)
		}

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			if gr.Error != "" {
				return fmt.Errorf("gateway rejected message: %s", gr.Error)
			}
			return fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}

		messageID = gr.MessageID
		return nil
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}
