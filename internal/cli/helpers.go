package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
)

// ErrInterrupted is the cancellation cause of a run stopped by SIGINT or SIGTERM.
var ErrInterrupted = errors.New("interrupted")

// NewSignalContext returns a context cancelled on SIGINT or SIGTERM. The
// cancellation cause wraps ErrInterrupted and names the signal, so skipped
// scenarios report why they stopped. Calling stop releases the handler.
func NewSignalContext(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			cancel(fmt.Errorf("%w by %s", ErrInterrupted, sig))
		case <-ctx.Done():
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}

// NewLogger configures the application logger on stderr, keeping stdout
// for keyword output and reports.
func NewLogger(level, format string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return logging.NewWithOptions(os.Stderr, logging.Options{Level: lvl, Format: f}), nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMatched: func(ctx context.Context, e *domain.KeywordEvent) {
			logger.Debug("Keyword matched", "location", e.Location, "route", e.Route, "group", e.Group)
		},
		OnUnrouted: func(ctx context.Context, e *domain.KeywordEvent) {
			logger.Debug("Keyword unrouted", "location", e.Location, "keyword", e.Keyword, "err", e.Err)
		},
		OnInvoke: func(ctx context.Context, e *domain.KeywordEvent) {
			logger.Debug("Invoke", "location", e.Location, "route", e.Route)
		},
		OnFinish: func(ctx context.Context, e *domain.KeywordEvent) {
			if e.Err != nil {
				logger.Debug("Finish (Error)", "location", e.Location, "status", e.Status, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("Finish", "location", e.Location, "status", e.Status, "duration", e.Duration)
		},
	}
}
