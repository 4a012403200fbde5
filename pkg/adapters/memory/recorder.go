package memory

import (
	"context"
	"sync"

	"github.com/aretw0/stanza/pkg/domain"
)

// Recorder implements ports.Reporter by keeping every outcome in memory.
type Recorder struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report appends the outcome.
func (r *Recorder) Report(ctx context.Context, outcome domain.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	return nil
}

// Outcomes returns a copy of the recorded outcomes in report order.
func (r *Recorder) Outcomes() []domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Outcome(nil), r.outcomes...)
}

// Reset discards the recorded outcomes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = nil
}
