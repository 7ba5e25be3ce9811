package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
)

// Options configures a Notifier.
type Options struct {
	// BuildOutput is the directory holding <folder>/index.html.
	BuildOutput string
	From        string
	To          string
	Timeout     time.Duration
}

// OptionsFrom derives notifier options from the run configuration.
func OptionsFrom(cfg config.NotifyConfig, buildOutput string) Options {
	return Options{
		BuildOutput: buildOutput,
		From:        cfg.From,
		To:          cfg.To,
		Timeout:     cfg.Timeout,
	}
}

// Notifier mails one built template through a Transport.
type Notifier struct {
	transport Transport
	opts      Options
	logger    logging.Logger
}

// NewNotifier creates a notifier. A zero Timeout means 10 seconds.
func NewNotifier(transport Transport, opts Options, logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Notifier{
		transport: transport,
		opts:      opts,
		logger:    logger.WithComponent("notify").With("transport", transport.Name()),
	}
}

// Notify sends the built HTML of folder. The file is read first, so a
// missing build fails before the transport is contacted. Verification
// failure aborts without sending; a failed send is not retried.
func (n *Notifier) Notify(ctx context.Context, folder string) error {
	if err := config.ValidateFolder(folder); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error()).WithPath("folder")
	}

	source := filepath.Join(n.opts.BuildOutput, folder, "index.html")
	content, err := os.ReadFile(source)
	if err != nil {
		code := errors.ErrCodeReadFailed
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		}
		return errors.NewIOError(code, "built template not found, run build first", err).WithPath(source)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	err = n.transport.Verify(verifyCtx)
	cancel()
	if err != nil {
		return errors.NewTransportError(errors.ErrCodeVerifyFailed,
			fmt.Sprintf("%s transport verification failed", n.transport.Name()), err)
	}
	n.logger.Debug(ctx, "Transport verified")

	msg := Message{
		From:    n.opts.From,
		To:      []string{n.opts.To},
		Subject: "Preview for " + folder,
		HTML:    string(content),
		Text:    PlainText(content),
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()
	if err := n.transport.Send(sendCtx, msg); err != nil {
		return errors.NewTransportError(errors.ErrCodeSendFailed,
			fmt.Sprintf("failed to send preview for %s", folder), err).WithPath(source)
	}

	n.logger.Info(ctx, "Preview sent", "folder", folder, "to", n.opts.To)
	return nil
}
