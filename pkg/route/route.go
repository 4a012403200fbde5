package route

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/stanza/internal/automaton"
)

// Route is one declared command shape: an ordered list of items compiled into
// an anchored pattern over the whole compare string, plus an equivalent
// automaton used to compare the specificity of routes.
//
// A Route is immutable after registration except for its rating, which the
// registry assigns exactly once before the first search.
type Route struct {
	tokens      []string
	items       []*Item
	config      Config
	source      string
	pattern     *regexp.Regexp
	automaton   *automaton.Automaton
	rating      int
	group       string
	action      any
	description string
	deprecated  bool
}

// New parses tokens and compiles the resulting route.
func New(tokens []string, cfg Config, opts ...Option) (*Route, error) {
	items, err := ParseTokens(tokens, cfg)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: route has no tokens", ErrInvalidToken)
	}

	r := &Route{
		tokens: append([]string(nil), tokens...),
		items:  items,
		config: cfg,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.compile(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is like New but panics if the route cannot be compiled.
func MustNew(tokens []string, cfg Config, opts ...Option) *Route {
	r, err := New(tokens, cfg, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// compile joins the item patterns with the delimiter. Every item is one
// capture group; parameters after the first item take their delimiter into
// an optional group so trailing parameters may be omitted.
func (r *Route) compile() error {
	delim := r.config.Delimiter.Pattern()

	var b strings.Builder
	b.WriteString("^")
	for i, item := range r.items {
		switch {
		case i == 0:
			fmt.Fprintf(&b, "(%s)", item.body)
		case item.parameter:
			fmt.Fprintf(&b, "(?:%s(%s))?", delim, item.body)
		default:
			fmt.Fprintf(&b, "%s(%s)", delim, item.body)
		}
	}
	b.WriteString("$")
	r.source = b.String()

	pattern, err := regexp.Compile(r.source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if pattern.NumSubexp() != len(r.items) {
		return fmt.Errorf("%w: pattern %q has %d groups for %d items", ErrInvalidToken, r.source, pattern.NumSubexp(), len(r.items))
	}
	r.pattern = pattern

	a, err := automaton.Compile(r.source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	r.automaton = a
	return nil
}

// Match reports whether compare, a delimiter-joined command, belongs to the route.
func (r *Route) Match(compare string) bool {
	return r.pattern.MatchString(compare)
}

// Submatch returns the index pairs of every item group for compare, or nil
// when the route does not match. Pairs of omitted parameters are -1.
func (r *Route) Submatch(compare string) []int {
	loc := r.pattern.FindStringSubmatchIndex(compare)
	if loc == nil {
		return nil
	}
	return loc[2:]
}

// SubsetOf reports whether every command accepted by r is also accepted by other.
func (r *Route) SubsetOf(other *Route) (bool, error) {
	return automaton.Subset(r.automaton, other.automaton)
}

// MoreSpecificThan reports whether the language of r is a strict subset of
// the language of other. When the containment query is too expensive it
// falls back to comparing Specificity scores and returns the answer together
// with automaton.ErrStateLimit.
func (r *Route) MoreSpecificThan(other *Route) (bool, error) {
	sub, err := r.SubsetOf(other)
	if err == nil && sub {
		var super bool
		super, err = other.SubsetOf(r)
		if err == nil {
			return !super, nil
		}
	}
	if errors.Is(err, automaton.ErrStateLimit) {
		return r.Specificity() > other.Specificity(), err
	}
	return false, err
}

// Specificity is a structural approximation of how narrow the route is:
// two points per constant and one per parameter with an explicit content
// pattern or a bounded cell count.
func (r *Route) Specificity() int {
	score := 0
	for _, item := range r.items {
		switch {
		case !item.parameter:
			score += 2
		case !item.HasDefaultContent():
			score++
		}
	}
	return score
}

// Name returns the text of the first constant token, which groups routes
// declaring the same command for diagnostics.
func (r *Route) Name() string {
	for _, item := range r.items {
		if !item.parameter {
			return item.name
		}
	}
	return ""
}

// Items returns the route items in declaration order.
func (r *Route) Items() []*Item {
	return r.items
}

// Parameters returns the parameter items in declaration order.
func (r *Route) Parameters() []*Item {
	var params []*Item
	for _, item := range r.items {
		if item.parameter {
			params = append(params, item)
		}
	}
	return params
}

// Tokens returns the declaration tokens.
func (r *Route) Tokens() []string {
	return r.tokens
}

// Pattern returns the compiled pattern source.
func (r *Route) Pattern() string {
	return r.source
}

// Regexp returns the compiled pattern.
func (r *Route) Regexp() *regexp.Regexp {
	return r.pattern
}

// Config returns the compilation settings of the route.
func (r *Route) Config() Config {
	return r.config
}

// Rating returns the number of registered routes this route is more specific than.
func (r *Route) Rating() int {
	return r.rating
}

// SetRating assigns the rating. Only the registry calls it, once, during startup.
func (r *Route) SetRating(rating int) {
	r.rating = rating
}

// Group returns the name of the registry group holding the route.
func (r *Route) Group() string {
	return r.group
}

// SetGroup records the owning group. Only the registry calls it.
func (r *Route) SetGroup(group string) {
	r.group = group
}

// Action returns the opaque invocation target.
func (r *Route) Action() any {
	return r.action
}

// Description returns the route description.
func (r *Route) Description() string {
	return r.description
}

// Deprecated reports whether the route is deprecated.
func (r *Route) Deprecated() bool {
	return r.deprecated
}

func (r *Route) String() string {
	parts := make([]string, len(r.items))
	for i, item := range r.items {
		parts[i] = item.text
	}
	return strings.Join(parts, " ")
}
