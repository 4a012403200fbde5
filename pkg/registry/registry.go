package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/stanza/internal/automaton"
	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/route"
)

// DefaultGroup holds routes registered without a group name.
const DefaultGroup = "default"

// Group is a named, ordered bucket of routes. Order is kept for display only
// and never affects which route a search selects.
type Group struct {
	Name   string
	routes []*route.Route
}

// Routes returns the routes of the group in registration order.
func (g *Group) Routes() []*route.Route {
	return g.routes
}

// Registry manages the declared routes.
//
// Routes are registered during a single-threaded startup phase that ends
// with CalculateRoutesRating. From then on the registry is read-only and
// Search may be called from any number of goroutines without locking.
type Registry struct {
	mu       sync.Mutex
	groups   []*Group
	byName   map[string]*Group
	routes   []*route.Route
	config   route.Config
	strategy Strategy
	logger   *slog.Logger

	rated sync.Once
	ready atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithConfig sets the compilation settings used by Register.
func WithConfig(cfg route.Config) Option {
	return func(r *Registry) {
		r.config = cfg
	}
}

// WithStrategy sets the match selection strategy.
func WithStrategy(s Strategy) Option {
	return func(r *Registry) {
		r.strategy = s
	}
}

// WithLogger sets the logger receiving unmatched and ambiguous diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:   make(map[string]*Group),
		config:   route.DefaultConfig(),
		strategy: StrategyStrict,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register compiles tokens into a route and appends it to the named group.
// An empty group name selects DefaultGroup.
func (r *Registry) Register(group string, tokens []string, action any, opts ...route.Option) (*route.Route, error) {
	opts = append([]route.Option{route.WithAction(action)}, opts...)
	rt, err := route.New(tokens, r.config, opts...)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", tokens, err)
	}
	if err := r.Add(group, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// MustRegister is like Register but panics on error. It is meant for
// hand-written registration tables executed at startup.
func (r *Registry) MustRegister(group string, tokens []string, action any, opts ...route.Option) *route.Route {
	rt, err := r.Register(group, tokens, action, opts...)
	if err != nil {
		panic(err)
	}
	return rt
}

// Add appends an already compiled route to the named group.
func (r *Registry) Add(group string, rt *route.Route) error {
	if r.ready.Load() {
		return domain.ErrRegistrySealed
	}
	if group == "" {
		group = DefaultGroup
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byName[group]
	if !ok {
		g = &Group{Name: group}
		r.byName[group] = g
		r.groups = append(r.groups, g)
	}
	rt.SetGroup(group)
	g.routes = append(g.routes, rt)
	r.routes = append(r.routes, rt)
	return nil
}

// CalculateRoutesRating rates every route by the number of other routes
// whose language strictly contains its own, then seals the registry.
// It runs exactly once; later calls return ErrRegistrySealed.
func (r *Registry) CalculateRoutesRating() error {
	err := domain.ErrRegistrySealed
	r.rated.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		n := len(r.routes)
		subset := make([][]bool, n)
		for i := range subset {
			subset[i] = make([]bool, n)
		}
		fallback := 0
		for i, a := range r.routes {
			for j, b := range r.routes {
				if i == j {
					continue
				}
				sub, err := a.SubsetOf(b)
				if errors.Is(err, automaton.ErrStateLimit) {
					// Approximate containment by structural specificity.
					fallback++
					sub = a.Specificity() >= b.Specificity()
				}
				subset[i][j] = sub
			}
		}

		for i, a := range r.routes {
			rating := 0
			for j := range r.routes {
				if i != j && subset[i][j] && !subset[j][i] {
					rating++
				}
			}
			a.SetRating(rating)
		}

		if fallback > 0 {
			r.logger.Warn("Route containment approximated by structural specificity", "pairs", fallback)
		}
		r.logger.Debug("Route ratings calculated", "routes", n, "groups", len(r.groups))

		r.ready.Store(true)
		err = nil
	})
	return err
}

// Ready reports whether ratings have been calculated and searches are allowed.
func (r *Registry) Ready() bool {
	return r.ready.Load()
}

// Search returns the route selected for compare, a delimiter-joined command,
// by the configured strategy. Failures are *domain.RouteError values wrapping
// domain.ErrNoRouteFound or domain.ErrAmbiguousRoute.
func (r *Registry) Search(compare string) (*route.Route, error) {
	if !r.ready.Load() {
		return nil, domain.ErrRegistryNotReady
	}
	if r.strategy == StrategyLazy {
		return r.searchLazy(compare)
	}
	return r.searchStrict(compare)
}

// searchLazy keeps the best match seen so far and replaces it only on a
// strictly higher rating, so the first registered route wins a tie.
func (r *Registry) searchLazy(compare string) (*route.Route, error) {
	var best *route.Route
	for _, rt := range r.routes {
		if !rt.Match(compare) {
			continue
		}
		if best == nil || rt.Rating() > best.Rating() {
			best = rt
		}
	}
	if best == nil {
		return nil, r.noRoute(compare)
	}
	return best, nil
}

func (r *Registry) searchStrict(compare string) (*route.Route, error) {
	var top []*route.Route
	max := -1
	for _, rt := range r.routes {
		if !rt.Match(compare) {
			continue
		}
		switch {
		case rt.Rating() > max:
			max = rt.Rating()
			top = append(top[:0], rt)
		case rt.Rating() == max:
			top = append(top, rt)
		}
	}

	switch len(top) {
	case 0:
		return nil, r.noRoute(compare)
	case 1:
		return top[0], nil
	default:
		r.logger.Error("Ambiguous route",
			"keyword", compare,
			"rating", max,
			"candidates", routeNames(top),
		)
		return nil, &domain.RouteError{Kind: domain.ErrAmbiguousRoute, Compare: compare, Candidates: top}
	}
}

func (r *Registry) noRoute(compare string) error {
	candidates := r.RoutesByName(r.firstCell(compare))
	r.logger.Warn("No route found",
		"keyword", compare,
		"candidates", routeNames(candidates),
	)
	return &domain.RouteError{Kind: domain.ErrNoRouteFound, Compare: compare, Candidates: candidates}
}

// RoutesByName returns the routes whose first constant token equals name.
func (r *Registry) RoutesByName(name string) []*route.Route {
	var out []*route.Route
	for _, rt := range r.snapshot() {
		if rt.Name() == name {
			out = append(out, rt)
		}
	}
	return out
}

// Routes returns every registered route in registration order.
func (r *Registry) Routes() []*route.Route {
	return r.snapshot()
}

// Groups returns the groups in creation order.
func (r *Registry) Groups() []*Group {
	if r.ready.Load() {
		return r.groups
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Group(nil), r.groups...)
}

// Config returns the compilation settings of the registry.
func (r *Registry) Config() route.Config {
	return r.config
}

// Strategy returns the match selection strategy.
func (r *Registry) Strategy() Strategy {
	return r.strategy
}

func (r *Registry) snapshot() []*route.Route {
	if r.ready.Load() {
		return r.routes
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*route.Route(nil), r.routes...)
}

func routeNames(routes []*route.Route) []string {
	names := make([]string, len(routes))
	for i, rt := range routes {
		names[i] = rt.String()
	}
	return names
}

// firstCell returns the text before the first delimiter of compare.
func (r *Registry) firstCell(compare string) string {
	cut := "\t"
	if r.config.Delimiter == route.DelimiterTabOrSpace {
		cut = "\t "
	}
	if i := strings.IndexAny(compare, cut); i >= 0 {
		return compare[:i]
	}
	return compare
}
