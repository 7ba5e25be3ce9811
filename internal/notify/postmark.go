package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

// PostmarkTransport sends through the Postmark HTTP API.
type PostmarkTransport struct {
	client *postmark.Client
}

// NewPostmarkTransport creates a Postmark client. The account token is only
// needed for account-level calls and may be empty.
func NewPostmarkTransport(serverToken, accountToken string) (*PostmarkTransport, error) {
	if serverToken == "" {
		return nil, missingSecret("postmark", "POSTMARK_SERVER_TOKEN")
	}
	return &PostmarkTransport{client: postmark.NewClient(serverToken, accountToken)}, nil
}

func (t *PostmarkTransport) Name() string { return "postmark" }

// Verify reads the server the token belongs to.
func (t *PostmarkTransport) Verify(ctx context.Context) error {
	if _, err := t.client.GetCurrentServer(ctx); err != nil {
		return fmt.Errorf("postmark server: %w", err)
	}
	return nil
}

func (t *PostmarkTransport) Send(ctx context.Context, msg Message) error {
	resp, err := t.client.SendEmail(ctx, postmark.Email{
		From:     msg.From,
		To:       strings.Join(msg.To, ","),
		Subject:  msg.Subject,
		Tag:      "preview",
		HTMLBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
