package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/internal/config"
	"github.com/aretw0/stanza/pkg/actions"
	"github.com/aretw0/stanza/pkg/adapters/file"
	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/adapters/process"
	"github.com/aretw0/stanza/pkg/adapters/redis"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/observability"
	"github.com/aretw0/stanza/pkg/persistence/middleware"
	"github.com/aretw0/stanza/pkg/ports"
)

// EngineOptions carries the collaborators a command adds to the engine.
type EngineOptions struct {
	// Out receives the output of Print keywords. Defaults to os.Stdout.
	Out       io.Writer
	Metrics   *observability.Metrics
	Reporters []ports.Reporter
	Debug     bool
}

// Engine is a sealed engine plus the resources it holds open.
type Engine struct {
	*stanza.Engine
	closers []func() error
}

// Close releases the store connection, if any.
func (e *Engine) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewEngine builds and seals an engine from cfg: built-in routes, the route
// declaration files, the allow-listed tools and the configured store.
func NewEngine(cfg config.Config, logger *slog.Logger, opts EngineOptions) (*Engine, error) {
	routeCfg, err := cfg.RouteConfig()
	if err != nil {
		return nil, err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	threshold, err := cfg.SeverityThreshold()
	if err != nil {
		return nil, err
	}

	engineOpts := []stanza.Option{
		stanza.WithLogger(logger),
		stanza.WithRouteConfig(routeCfg),
		stanza.WithStrategy(strategy),
		stanza.WithStrictScenario(cfg.Validation.StrictScenario),
		stanza.WithSeverityThreshold(threshold),
		stanza.WithWorkers(cfg.Runner.Workers),
		stanza.WithStopOnFailure(cfg.Runner.StopOnFailure),
		stanza.WithVariables(domain.Variables(cfg.Variables)),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, stanza.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, stanza.WithMetrics(opts.Metrics))
	}
	for _, r := range opts.Reporters {
		engineOpts = append(engineOpts, stanza.WithReporter(r))
	}

	eng := &Engine{}
	var store ports.ResultStore = memory.NewStore()
	switch cfg.Store.Driver {
	case config.DriverFile:
		dir := file.DefaultDir
		if cfg.Store.Path != "" {
			dir = cfg.Resolve(cfg.Store.Path)
		}
		store = file.NewStore(dir)
		logger.Debug("Using file store", "dir", dir)
	case config.DriverRedis:
		rc := cfg.Store.Redis
		rs := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		eng.closers = append(eng.closers, rs.Close)
		store = rs

		reporterOpts := []redis.ReporterOption{}
		if rc.Stream != "" {
			reporterOpts = append(reporterOpts, redis.WithStream(rc.Stream))
		} else if rc.Prefix != "" {
			reporterOpts = append(reporterOpts, redis.WithStream(rc.Prefix+"outcomes"))
		}
		engineOpts = append(engineOpts, stanza.WithReporter(redis.NewReporter(rs.Client(), reporterOpts...)))
		if cfg.Runner.Lock != "" {
			locker := redis.NewLocker(rs.Client(), rc.Prefix)
			engineOpts = append(engineOpts, stanza.WithLock(locker, cfg.Runner.Lock, cfg.Runner.LockTTL))
		}
		logger.Debug("Using redis store", "addr", rc.Addr, "prefix", rc.Prefix)
	}
	if cfg.Runner.Lock != "" && cfg.Store.Driver != config.DriverRedis {
		logger.Debug("Using in-process run lock", "lock", cfg.Runner.Lock)
		engineOpts = append(engineOpts, stanza.WithLock(memory.NewLocker(), cfg.Runner.Lock, cfg.Runner.LockTTL))
	}

	if len(cfg.Store.Redact) > 0 {
		redact, err := middleware.NewRedactMiddleware(cfg.Store.Redact)
		if err != nil {
			_ = eng.Close()
			return nil, err
		}
		store = redact(store)
	}
	engineOpts = append(engineOpts, stanza.WithStore(store))

	eng.Engine = stanza.New(engineOpts...)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	env := actions.Env{
		Out: out,
		Tools: process.NewRunner(
			process.WithTools(cfg.Tools),
			process.WithBaseDir(cfg.Dir),
		),
	}
	if err := eng.RegisterBuiltins(env); err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("error registering builtins: %w", err)
	}

	decls, err := cfg.LoadDeclarations()
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	if err := eng.Declare(env, decls); err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("error declaring routes: %w", err)
	}

	if err := eng.Seal(); err != nil {
		_ = eng.Close()
		return nil, err
	}
	return eng, nil
}
