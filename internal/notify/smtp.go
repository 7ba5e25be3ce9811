package notify

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPOptions configures the SMTP transport. Username and Password are
// optional; STARTTLS is used whenever the server offers it.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	// LocalName is sent in EHLO. Defaults to localhost.
	LocalName string
}

// SMTPTransport sends through an SMTP relay such as Mailtrap.
type SMTPTransport struct {
	opts SMTPOptions
	now  func() time.Time
}

// NewSMTPTransport validates opts and returns a transport.
func NewSMTPTransport(opts SMTPOptions) (*SMTPTransport, error) {
	if opts.Host == "" {
		return nil, missingSecret("smtp", "SMTP_HOST")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return nil, missingSecret("smtp", "a valid SMTP_PORT")
	}
	if opts.LocalName == "" {
		opts.LocalName = "localhost"
	}
	return &SMTPTransport{opts: opts, now: time.Now}, nil
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.opts.Host, strconv.Itoa(t.opts.Port))
}

// Verify connects, negotiates TLS and authenticates, then quits.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, err := t.dial(ctx)
	if err != nil {
		return err
	}
	return c.Close()
}

// Send delivers msg in a single session.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := t.compose(msg)
	if err != nil {
		return err
	}

	c, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Send(m); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return nil
}

func (t *SMTPTransport) dial(ctx context.Context) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.opts.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithHELO(t.opts.LocalName),
	}
	if t.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.opts.Username),
			mail.WithPassword(t.opts.Password),
		)
	}

	c, err := mail.NewClient(t.opts.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp settings: %w", err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.addr(), err)
	}
	return c, nil
}

// compose builds msg as a MIME message. Both parts are quoted-printable so
// single-line HTML stays within the SMTP line length limit. The plain-text
// part comes first when present.
func (t *SMTPTransport) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(t.now())

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}
