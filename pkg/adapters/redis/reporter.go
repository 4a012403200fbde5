package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/stanza/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Reporter implements ports.Reporter by appending every outcome to a Redis
// stream, where test-management services consume them.
type Reporter struct {
	client *backend.Client
	stream string
	maxLen int64
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithStream sets the stream key. It defaults to "<prefix>outcomes".
func WithStream(stream string) ReporterOption {
	return func(r *Reporter) {
		r.stream = stream
	}
}

// WithMaxLen caps the stream length approximately. Zero keeps every entry.
func WithMaxLen(n int64) ReporterOption {
	return func(r *Reporter) {
		r.maxLen = n
	}
}

// NewReporter creates a stream reporter.
func NewReporter(client *backend.Client, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		client: client,
		stream: DefaultPrefix + "outcomes",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stream returns the stream key.
func (r *Reporter) Stream() string {
	return r.stream
}

// Report appends the outcome as a stream entry.
func (r *Reporter) Report(ctx context.Context, outcome domain.Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"run":      outcome.RunID,
			"scenario": outcome.Scenario,
			"status":   string(outcome.Status),
			"outcome":  payload,
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}
	return nil
}
