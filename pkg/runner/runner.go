package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// errScenarioFailed cancels sibling scenarios under WithStopOnFailure.
var errScenarioFailed = errors.New("scenario failed")

// Dispatcher executes one keyword occurrence. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, kw *domain.Keyword) (any, error)
}

// Runner executes scenarios through a Dispatcher.
type Runner struct {
	dispatcher    Dispatcher
	store         ports.ResultStore
	logger        *slog.Logger
	workers       int
	stopOnFailure bool
	globals       domain.Variables
	locker        ports.Locker
	lockKey       string
	lockTTL       time.Duration
	newID         func() string
}

// NewRunner creates a Runner.
func NewRunner(d Dispatcher, opts ...Option) *Runner {
	r := &Runner{
		dispatcher: d,
		logger:     logging.NewNop(),
		workers:    DefaultWorkers,
		lockTTL:    DefaultLockTTL,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every scenario and returns the aggregated result.
//
// A fatal error from the dispatcher aborts the whole run: running scenarios
// stop at their next keyword and the remaining keywords are marked skipped.
// The returned error is that fatal error, or the context error when ctx was
// cancelled. The result is returned, and stored, in every case.
func (r *Runner) Run(ctx context.Context, scenarios []*domain.Scenario) (*domain.RunResult, error) {
	result := &domain.RunResult{
		ID:        r.newID(),
		StartedAt: time.Now(),
		Scenarios: make([]domain.ScenarioResult, len(scenarios)),
	}
	ctx = domain.WithRunID(ctx, result.ID)
	logger := r.logger.With("run", result.ID)

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, r.lockKey, r.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock run %q: %w", r.lockKey, err)
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				logger.Warn("Failed to release run lock", "key", r.lockKey, "err", err)
			}
		}()
	}

	logger.Info("Run started", "scenarios", len(scenarios), "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := r.runScenario(gctx, sc)
			result.Scenarios[i] = res
			return err
		})
	}
	err := g.Wait()

	result.EndedAt = time.Now()
	switch {
	case domain.IsFatal(err):
		result.Aborted = true
		result.Error = err.Error()
		logger.Error("Run aborted", "err", err)
	case ctx.Err() != nil:
		err = ctx.Err()
		result.Aborted = true
		result.Error = err.Error()
		logger.Warn("Run cancelled", "err", err)
	default:
		err = nil
		counts := result.Counts()
		logger.Info("Run finished",
			"passed", result.Passed(),
			"succeeded", counts[domain.StatusSucceeded],
			"failed", counts[domain.StatusFailed],
			"skipped", counts[domain.StatusSkipped],
			"duration", result.EndedAt.Sub(result.StartedAt),
		)
	}

	if r.store != nil {
		if serr := r.store.Save(context.WithoutCancel(ctx), result); serr != nil {
			logger.Error("Failed to store run result", "err", serr)
			if err == nil {
				err = fmt.Errorf("failed to store run result: %w", serr)
			}
		}
	}
	return result, err
}

// runScenario executes the keywords of sc in order. It returns a fatal error
// to abort the run, errScenarioFailed to stop sibling scenarios, or nil.
func (r *Runner) runScenario(ctx context.Context, sc *domain.Scenario) (domain.ScenarioResult, error) {
	res := domain.ScenarioResult{
		Name:     sc.Name,
		File:     sc.File,
		Status:   domain.StatusSucceeded,
		Outcomes: make([]domain.Outcome, 0, len(sc.Keywords)),
	}
	runID := domain.RunIDFrom(ctx)

	vars := domain.Variables{}
	maps.Copy(vars, r.globals)
	ctx = domain.WithVariables(ctx, vars)

	var stop error
	cancelled := false
	for _, kw := range sc.Keywords {
		kw.Scenario = sc.Name

		if stop == nil && ctx.Err() != nil {
			stop = context.Cause(ctx)
			cancelled = true
		}
		if stop != nil {
			kw.Status = domain.StatusSkipped
			res.Outcomes = append(res.Outcomes, kw.Outcome(runID))
			continue
		}

		vars.ExpandKeyword(kw)
		_, err := r.dispatcher.Dispatch(ctx, kw)
		res.Outcomes = append(res.Outcomes, kw.Outcome(runID))
		if kw.Status == domain.StatusFailed {
			res.Status = domain.StatusFailed
		}
		if err != nil {
			stop = err
			res.Error = err.Error()
		}
	}

	switch {
	case cancelled:
		if res.Status != domain.StatusFailed {
			res.Status = domain.StatusSkipped
		}
		if res.Error == "" {
			res.Error = stop.Error()
		}
		return res, nil
	case domain.IsFatal(stop):
		res.Status = domain.StatusFailed
		return res, stop
	case stop != nil:
		res.Status = domain.StatusFailed
	}
	if res.Status == domain.StatusFailed && r.stopOnFailure {
		return res, errScenarioFailed
	}
	return res, nil
}
