package errors

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryNotifier reports fatal pipeline errors to Sentry.
type SentryNotifier struct {
	flushTimeout time.Duration
}

// NewSentryNotifier initialises the Sentry SDK. An empty DSN disables
// reporting and returns nil, nil.
func NewSentryNotifier(dsn, environment, release string) (*SentryNotifier, error) {
	if dsn == "" {
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	return &SentryNotifier{flushTimeout: 2 * time.Second}, nil
}

// NotifyError captures err with its pipeline context as tags.
func (n *SentryNotifier) NotifyError(ctx context.Context, err error) error {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		var e *Error
		if As(err, &e) {
			scope.SetTag("error_type", string(e.Type))
			scope.SetTag("error_code", e.Code)
			if e.Stage != "" {
				scope.SetTag("stage", e.Stage)
			}
			if e.Path != "" {
				scope.SetExtra("path", e.Path)
			}
		}
		hub.CaptureException(err)
	})

	return nil
}

// Flush waits for buffered events to be delivered.
func (n *SentryNotifier) Flush() {
	sentry.Flush(n.flushTimeout)
}
