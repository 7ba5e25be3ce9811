package notify

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunTransport sends through the Mailgun HTTP API.
type MailgunTransport struct {
	client *mailgun.MailgunImpl
	domain string
}

// NewMailgunTransport creates a Mailgun client for domain. apiBase is
// optional and selects e.g. the EU region.
func NewMailgunTransport(domain, apiKey, apiBase string) (*MailgunTransport, error) {
	if domain == "" {
		return nil, missingSecret("mailgun", "MAILGUN_DOMAIN")
	}
	if apiKey == "" {
		return nil, missingSecret("mailgun", "MAILGUN_API_KEY")
	}
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	return &MailgunTransport{client: mg, domain: domain}, nil
}

func (t *MailgunTransport) Name() string { return "mailgun" }

// Verify fetches the sending domain, which fails on a bad key or domain.
func (t *MailgunTransport) Verify(ctx context.Context) error {
	if _, err := t.client.GetDomain(ctx, t.domain); err != nil {
		return fmt.Errorf("mailgun domain %s: %w", t.domain, err)
	}
	return nil
}

func (t *MailgunTransport) Send(ctx context.Context, msg Message) error {
	message := t.client.NewMessage(msg.From, msg.Subject, msg.Text, msg.To...)
	message.SetHtml(msg.HTML)

	_, id, err := t.client.Send(ctx, message)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("mailgun accepted the message without an id")
	}
	return nil
}
