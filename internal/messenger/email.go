package messenger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/model"
)

// EmailSender delivers messages over SMTP. Templated sends are flattened
// into a plain body because SMTP has no provider-side templates.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (e *EmailSender) Configured() bool {
	return e.dialer.Host != "" && e.from != ""
}

func (e *EmailSender) Send(ctx context.Context, _ model.Channel, address string, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body := msg.Body
	if body == "" {
		body = msg.TemplateName
		for k, v := range msg.Params {
			body += fmt.Sprintf("\n%s: %s", k, v)
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", address)
	m.SetHeader("Subject", "Notification")
	m.SetBody("text/plain", body)

	if err := e.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	// SMTP has no provider message id; generate one for the dispatch log.
	return "smtp-" + uuid.New().String(), nil
}
