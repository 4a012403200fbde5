package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

// MultiReporter fans an outcome out to every reporter and joins their errors.
type MultiReporter []ports.Reporter

// Report implements ports.Reporter.
func (m MultiReporter) Report(ctx context.Context, outcome domain.Outcome) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogReporter writes every outcome as a structured log record.
type LogReporter struct {
	Logger *slog.Logger
}

// Report implements ports.Reporter.
func (l LogReporter) Report(ctx context.Context, o domain.Outcome) error {
	level := slog.LevelInfo
	switch o.Status {
	case domain.StatusFailed:
		level = slog.LevelError
	case domain.StatusSkipped:
		level = slog.LevelWarn
	}

	attrs := []any{
		"scenario", o.Scenario,
		"line", o.Location,
		"keyword", o.Keyword,
		"status", string(o.Status),
		"duration", o.Duration,
	}
	if o.Route != "" {
		attrs = append(attrs, "route", o.Route)
	}
	if o.Error != "" {
		attrs = append(attrs, "err", o.Error)
	}
	l.Logger.Log(ctx, level, "Keyword outcome", attrs...)
	return nil
}
