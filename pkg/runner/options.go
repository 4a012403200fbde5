package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

// DefaultWorkers is the number of scenarios executed concurrently by default.
const DefaultWorkers = 4

// DefaultLockTTL bounds how long a run lock survives a crashed holder.
const DefaultLockTTL = 10 * time.Minute

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures where run results are persisted.
func WithStore(store ports.ResultStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithWorkers sets how many scenarios run concurrently. Values below one mean one.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithStopOnFailure cancels the remaining scenarios once one fails.
func WithStopOnFailure(stop bool) Option {
	return func(r *Runner) {
		r.stopOnFailure = stop
	}
}

// WithVariables seeds the variable scope of every scenario.
func WithVariables(vars domain.Variables) Option {
	return func(r *Runner) {
		r.globals = vars
	}
}

// WithLock serializes runs sharing key across processes.
func WithLock(locker ports.Locker, key string, ttl time.Duration) Option {
	return func(r *Runner) {
		r.locker = locker
		r.lockKey = key
		r.lockTTL = ttl
	}
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Runner) {
		r.newID = gen
	}
}
