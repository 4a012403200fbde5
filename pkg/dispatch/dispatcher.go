// Package dispatch orchestrates lookup, binding, coercion, invocation and
// reporting for one keyword occurrence.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/binding"
	"github.com/aretw0/stanza/pkg/coerce"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/route"
)

// ErrNotInvocable is returned when a route action implements neither
// ports.Action nor a supported function signature.
var ErrNotInvocable = errors.New("route action is not invocable")

// Dispatcher drives a keyword occurrence through its lifecycle:
// Unrouted -> Matched -> Bound -> Invoked -> Succeeded | Failed | Skipped.
//
// Routing failures skip the occurrence, or abort the run when strict
// scenario validation is on. Binding failures always abort the run.
// Invocation failures are reported first and then either stop the scenario
// or are downgraded to a warning, depending on the occurrence severity.
type Dispatcher struct {
	searcher       ports.Searcher
	coercer        ports.Coercer
	invoker        ports.Invoker
	reporter       ports.Reporter
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	strictScenario bool
	threshold      domain.Severity
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCoercer sets the parameter coercion collaborator.
func WithCoercer(c ports.Coercer) Option {
	return func(d *Dispatcher) {
		d.coercer = c
	}
}

// WithInvoker sets the action invocation collaborator.
func WithInvoker(i ports.Invoker) Option {
	return func(d *Dispatcher) {
		d.invoker = i
	}
}

// WithReporter sets the outcome sink.
func WithReporter(r ports.Reporter) Option {
	return func(d *Dispatcher) {
		d.reporter = r
	}
}

// WithHooks adds lifecycle hooks. Repeated calls merge the hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = d.hooks.Merge(h)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithStrictScenario promotes unmatched and ambiguous keywords to fatal errors.
func WithStrictScenario(strict bool) Option {
	return func(d *Dispatcher) {
		d.strictScenario = strict
	}
}

// WithSeverityThreshold sets the lowest severity whose invocation failure
// stops the scenario. Failures below it are logged as warnings.
func WithSeverityThreshold(s domain.Severity) Option {
	return func(d *Dispatcher) {
		d.threshold = s
	}
}

// New creates a Dispatcher resolving routes with searcher.
func New(searcher ports.Searcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		searcher:  searcher,
		coercer:   coerce.New(),
		invoker:   DefaultInvoker{},
		reporter:  nopReporter{},
		logger:    logging.NewNop(),
		threshold: domain.SeverityMajor,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve matches and binds kw without invoking its action.
// A nil error leaves kw in the Bound state.
func (d *Dispatcher) Resolve(ctx context.Context, kw *domain.Keyword) error {
	compare := kw.CompareString()
	rt, err := d.searcher.Search(compare)
	if err != nil {
		return d.routeFailed(kw, err)
	}

	kw.Route = rt
	kw.Status = domain.StatusMatched
	if rt.Deprecated() {
		d.logger.Warn("Deprecated route",
			"route", rt.String(),
			"group", rt.Group(),
			"keyword", kw.String(),
			"line", kw.Location(),
		)
	}

	items, params := binding.Bind(rt, kw.Items)
	kw.Items = items
	kw.Parameters = params

	if unbound := binding.Unbound(items); len(unbound) > 0 {
		berr := &domain.BindingError{Route: rt, Keyword: kw.String(), Unbound: unbound}
		d.logger.Error("Binding failure",
			"route", rt.String(),
			"pattern", rt.Pattern(),
			"keyword", kw.String(),
			"line", kw.Location(),
		)
		kw.Status = domain.StatusFailed
		kw.Err = berr
		return domain.Fatal(berr)
	}

	kw.Status = domain.StatusBound
	return nil
}

// Dispatch resolves kw and invokes the action of its route.
//
// It returns the action result and a nil error when the occurrence succeeded,
// was skipped, or failed below the severity threshold; kw.Status and kw.Err
// record which. A non-nil error means the scenario must stop; errors for
// which domain.IsFatal reports true must also stop the run.
func (d *Dispatcher) Dispatch(ctx context.Context, kw *domain.Keyword) (any, error) {
	ctx = domain.WithKeyword(ctx, kw)

	if err := d.Resolve(ctx, kw); err != nil {
		if kw.Route == nil {
			d.emit(ctx, d.hooks.OnUnrouted, domain.EventKeywordUnrouted, kw, 0)
		}
		d.finish(ctx, kw, 0)
		if domain.IsFatal(err) {
			return nil, err
		}
		return nil, nil
	}

	rt := kw.Route
	d.emit(ctx, d.hooks.OnMatched, domain.EventKeywordMatched, kw, 0)

	start := time.Now()
	result, err := d.invoke(ctx, rt, kw)
	elapsed := time.Since(start)

	if err != nil {
		ierr := &domain.InvocationError{Route: rt, Keyword: kw.String(), Location: kw.Location(), Err: err}
		kw.Status = domain.StatusFailed
		kw.Err = ierr
		d.finish(ctx, kw, elapsed)

		if kw.Severity >= d.threshold {
			d.logger.Error("Keyword failed",
				"route", rt.String(),
				"keyword", kw.String(),
				"line", kw.Location(),
				"scenario", kw.Scenario,
				"err", err,
			)
			return nil, ierr
		}
		d.logger.Warn("Keyword failed below severity threshold",
			"route", rt.String(),
			"keyword", kw.String(),
			"line", kw.Location(),
			"severity", kw.Severity.String(),
			"err", err,
		)
		return nil, nil
	}

	kw.Status = domain.StatusSucceeded
	d.finish(ctx, kw, elapsed)
	return result, nil
}

func (d *Dispatcher) invoke(ctx context.Context, rt *route.Route, kw *domain.Keyword) (any, error) {
	args, err := d.coercer.Coerce(ctx, rt.Action(), kw.Parameters)
	if err != nil {
		return nil, err
	}

	kw.Status = domain.StatusInvoked
	d.emit(ctx, d.hooks.OnInvoke, domain.EventKeywordInvoke, kw, 0)
	return d.invoker.Invoke(ctx, rt.Action(), args)
}

// routeFailed applies the skip-or-abort policy to a search failure.
func (d *Dispatcher) routeFailed(kw *domain.Keyword, err error) error {
	kw.Err = err

	if errors.Is(err, domain.ErrRegistryNotReady) {
		kw.Status = domain.StatusFailed
		return domain.Fatal(err)
	}
	if d.strictScenario {
		kw.Status = domain.StatusFailed
		d.logger.Error("Keyword not routable in strict scenario",
			"keyword", kw.String(),
			"line", kw.Location(),
			"scenario", kw.Scenario,
			"err", err,
		)
		return domain.Fatal(err)
	}

	kw.Status = domain.StatusSkipped
	d.logger.Warn("Keyword skipped",
		"keyword", kw.String(),
		"line", kw.Location(),
		"scenario", kw.Scenario,
		"err", err,
	)
	return err
}

// finish reports the occurrence and fires OnFinish.
func (d *Dispatcher) finish(ctx context.Context, kw *domain.Keyword, elapsed time.Duration) {
	kw.Duration = elapsed
	outcome := kw.Outcome(domain.RunIDFrom(ctx))
	if err := d.reporter.Report(ctx, outcome); err != nil {
		d.logger.Warn("Failed to report outcome", "keyword", outcome.Keyword, "err", err)
	}
	d.emit(ctx, d.hooks.OnFinish, domain.EventKeywordFinish, kw, elapsed)
}

func (d *Dispatcher) emit(ctx context.Context, hook func(context.Context, *domain.KeywordEvent), typ domain.EventType, kw *domain.Keyword, elapsed time.Duration) {
	if hook == nil {
		return
	}
	e := &domain.KeywordEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ},
		Scenario:  kw.Scenario,
		Location:  kw.Location(),
		Keyword:   kw.String(),
		Status:    kw.Status,
		Duration:  elapsed,
		Err:       kw.Err,
	}
	if kw.Route != nil {
		e.Route = kw.Route.String()
		e.Group = kw.Route.Group()
	}
	hook(ctx, e)
}

// DefaultInvoker calls route actions implementing ports.Action, or plain
// functions of the shapes func(context.Context, any) (any, error) and
// func(context.Context, any) error.
type DefaultInvoker struct{}

// Invoke executes action with args.
func (DefaultInvoker) Invoke(ctx context.Context, action any, args any) (any, error) {
	switch fn := action.(type) {
	case ports.Action:
		return fn.Invoke(ctx, args)
	case func(context.Context, any) (any, error):
		return fn(ctx, args)
	case func(context.Context, any) error:
		return nil, fn(ctx, args)
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotInvocable, action)
	}
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, domain.Outcome) error { return nil }
