package stanza

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/actions"
	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/dispatch"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/observability"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
	"github.com/aretw0/stanza/pkg/runner"
	"github.com/aretw0/stanza/pkg/script"
)

// Engine is the high-level entry point for the stanza library.
// It wires a route registry, a dispatcher and a scenario runner.
type Engine struct {
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	store      ports.ResultStore
	metrics    *observability.Metrics
	logger     *slog.Logger

	routeConfig    route.Config
	strategy       registry.Strategy
	strictScenario bool
	threshold      domain.Severity
	hooks          domain.LifecycleHooks
	reporters      []ports.Reporter
	coercer        ports.Coercer
	runnerOpts     []runner.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRouteConfig sets how route tokens are compiled.
func WithRouteConfig(cfg route.Config) Option {
	return func(e *Engine) {
		e.routeConfig = cfg
	}
}

// WithStrategy sets the route search strategy.
func WithStrategy(s registry.Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithStrictScenario makes unroutable keywords abort the run.
func WithStrictScenario(strict bool) Option {
	return func(e *Engine) {
		e.strictScenario = strict
	}
}

// WithSeverityThreshold sets the severity at which a failing keyword stops its scenario.
func WithSeverityThreshold(s domain.Severity) Option {
	return func(e *Engine) {
		e.threshold = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithReporter adds a receiver of keyword outcomes.
func WithReporter(r ports.Reporter) Option {
	return func(e *Engine) {
		e.reporters = append(e.reporters, r)
	}
}

// WithCoercer replaces the parameter coercer.
func WithCoercer(c ports.Coercer) Option {
	return func(e *Engine) {
		e.coercer = c
	}
}

// WithStore sets where run results are persisted. The default is in memory.
func WithStore(store ports.ResultStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMetrics records dispatcher activity into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithWorkers sets how many scenarios run concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, runner.WithWorkers(n))
	}
}

// WithStopOnFailure cancels the remaining scenarios once one fails.
func WithStopOnFailure(stop bool) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, runner.WithStopOnFailure(stop))
	}
}

// WithVariables seeds the variables of every scenario.
func WithVariables(vars domain.Variables) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, runner.WithVariables(vars))
	}
}

// WithLock serializes runs sharing key, across processes when locker is distributed.
func WithLock(locker ports.Locker, key string, ttl time.Duration) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, runner.WithLock(locker, key, ttl))
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		routeConfig: route.DefaultConfig(),
		strategy:    registry.StrategyStrict,
		threshold:   domain.SeverityMajor,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	e.registry = registry.NewRegistry(
		registry.WithConfig(e.routeConfig),
		registry.WithStrategy(e.strategy),
		registry.WithLogger(e.logger),
	)

	hooks := e.hooks
	if e.metrics != nil {
		hooks = hooks.Merge(e.metrics.Hooks())
	}
	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(e.logger),
		dispatch.WithHooks(hooks),
		dispatch.WithStrictScenario(e.strictScenario),
		dispatch.WithSeverityThreshold(e.threshold),
	}
	if len(e.reporters) > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithReporter(dispatch.MultiReporter(e.reporters)))
	}
	if e.coercer != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithCoercer(e.coercer))
	}
	e.dispatcher = dispatch.New(e.registry, dispatchOpts...)
	return e
}

// Register declares a route in group.
func (e *Engine) Register(group string, tokens []string, action any, opts ...route.Option) (*route.Route, error) {
	return e.registry.Register(group, tokens, action, opts...)
}

// RegisterBuiltins declares the built-in keyword library.
func (e *Engine) RegisterBuiltins(env actions.Env) error {
	return actions.Register(e.registry, env)
}

// Declare binds route declarations to built-in actions.
func (e *Engine) Declare(env actions.Env, decls []actions.RouteDeclaration) error {
	return actions.Declare(e.registry, env, decls)
}

// Seal calculates route ratings. Routes cannot be registered afterwards.
func (e *Engine) Seal() error {
	if err := e.registry.CalculateRoutesRating(); err != nil {
		return fmt.Errorf("failed to rate routes: %w", err)
	}
	e.logger.Info("Routes rated", "routes", len(e.registry.Routes()), "groups", len(e.registry.Groups()))
	return nil
}

func (e *Engine) ensureSealed() error {
	if e.registry.Ready() {
		return nil
	}
	if err := e.Seal(); err != nil && !errors.Is(err, domain.ErrRegistrySealed) {
		return err
	}
	return nil
}

// Match routes and binds cells without invoking the action.
func (e *Engine) Match(ctx context.Context, cells ...string) (*domain.Keyword, error) {
	kw := domain.NewKeyword(cells...)
	return kw, e.dispatcher.Resolve(ctx, kw)
}

// Dispatch routes, binds and invokes one keyword occurrence.
func (e *Engine) Dispatch(ctx context.Context, kw *domain.Keyword) (any, error) {
	return e.dispatcher.Dispatch(ctx, kw)
}

// Run executes scenarios, sealing the registry first when needed.
func (e *Engine) Run(ctx context.Context, scenarios []*domain.Scenario) (*domain.RunResult, error) {
	if err := e.ensureSealed(); err != nil {
		return nil, err
	}
	opts := append([]runner.Option{
		runner.WithLogger(e.logger),
		runner.WithStore(e.store),
	}, e.runnerOpts...)
	return runner.NewRunner(e.dispatcher, opts...).Run(ctx, scenarios)
}

// RunFiles reads the scripts at paths and runs their scenarios together.
func (e *Engine) RunFiles(ctx context.Context, paths ...string) (*domain.RunResult, error) {
	scenarios, err := ReadScripts(paths...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, scenarios)
}

// Validate routes and binds every keyword of scenarios without invoking any
// action. It returns the occurrences that failed; their Err tells why.
func (e *Engine) Validate(ctx context.Context, scenarios []*domain.Scenario) ([]*domain.Keyword, error) {
	if err := e.ensureSealed(); err != nil {
		return nil, err
	}
	var failed []*domain.Keyword
	for _, sc := range scenarios {
		for _, kw := range sc.Keywords {
			if err := e.dispatcher.Resolve(ctx, kw); err != nil {
				if kw.Err == nil {
					kw.Err = err
				}
				failed = append(failed, kw)
			}
		}
	}
	return failed, nil
}

// ReadScripts parses the scripts at paths in order.
func ReadScripts(paths ...string) ([]*domain.Scenario, error) {
	reader := script.NewReader()
	var scenarios []*domain.Scenario
	for _, path := range paths {
		sc, err := reader.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		scenarios = append(scenarios, sc...)
	}
	return scenarios, nil
}

// Registry returns the route registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Dispatcher returns the keyword dispatcher.
func (e *Engine) Dispatcher() *dispatch.Dispatcher {
	return e.dispatcher
}

// Store returns the run result store.
func (e *Engine) Store() ports.ResultStore {
	return e.store
}

// Metrics returns the configured metrics, or nil.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
