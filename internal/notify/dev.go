package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DevTransport writes messages to a local outbox instead of sending them.
// Each message becomes <stamp>-<id>.html plus a .json envelope.
type DevTransport struct {
	dir string
	now func() time.Time
}

type envelope struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	Text    string    `json:"text,omitempty"`
	HTML    string    `json:"html_file"`
	Created time.Time `json:"created"`
}

// NewDevTransport creates an outbox transport rooted at dir.
func NewDevTransport(dir string) (*DevTransport, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, missingSecret("dev", "notify.outbox_dir")
	}
	return &DevTransport{dir: dir, now: time.Now}, nil
}

func (t *DevTransport) Name() string { return "dev" }

// Verify makes sure the outbox exists and is writable.
func (t *DevTransport) Verify(context.Context) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(t.dir, ".verify-*")
	if err != nil {
		return fmt.Errorf("outbox not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

func (t *DevTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := uuid.NewString()
	created := t.now().UTC()
	base := fmt.Sprintf("%s-%s", created.Format("20060102T150405"), id[:8])

	htmlName := base + ".html"
	if err := os.WriteFile(filepath.Join(t.dir, htmlName), []byte(msg.HTML), 0o644); err != nil {
		return err
	}

	env := envelope{
		ID:      id,
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    htmlName,
		Created: created,
	}
	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(t.dir, base+".json"), raw, 0o644)
}
