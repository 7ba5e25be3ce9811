// Package notify mails a built template to a test inbox.
//
// A Transport is verified before anything is sent; a failed verification
// aborts the notification. Sends are attempted once.
package notify

import (
	"context"
	"fmt"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
)

// Message is one outgoing preview mail.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers messages.
type Transport interface {
	Name() string
	// Verify checks connectivity and credentials without sending.
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
}

// NewTransport builds the transport named by cfg.Transport with credentials
// from secrets.
func NewTransport(cfg config.NotifyConfig, secrets config.Secrets) (Transport, error) {
	switch cfg.Transport {
	case config.TransportSMTP, "":
		return NewSMTPTransport(SMTPOptions{
			Host:     secrets.SMTPHost,
			Port:     secrets.SMTPPort,
			Username: secrets.SMTPUsername,
			Password: secrets.SMTPPassword,
		})
	case config.TransportMailgun:
		return NewMailgunTransport(secrets.MailgunDomain, secrets.MailgunAPIKey, secrets.MailgunAPIBase)
	case config.TransportPostmark:
		return NewPostmarkTransport(secrets.PostmarkServerToken, secrets.PostmarkAccountToken)
	case config.TransportDev:
		return NewDevTransport(cfg.OutboxDir)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown transport %q", cfg.Transport)).WithPath("notify.transport")
	}
}

func missingSecret(transport, name string) error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid,
		fmt.Sprintf("%s transport requires %s", transport, name)).WithContext("env", name)
}
