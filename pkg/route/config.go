package route

import (
	"fmt"
	"strings"
)

// DelimiterMode selects which characters separate cells in a compare string.
type DelimiterMode int

const (
	// DelimiterTab separates cells with a single tab.
	DelimiterTab DelimiterMode = iota
	// DelimiterTabOrSpace accepts a tab or a space between cells.
	DelimiterTabOrSpace
)

// Pattern returns the regular expression matching one delimiter.
func (m DelimiterMode) Pattern() string {
	if m == DelimiterTabOrSpace {
		return `[\t ]`
	}
	return `\t`
}

func (m DelimiterMode) String() string {
	if m == DelimiterTabOrSpace {
		return "tab-or-space"
	}
	return "tab"
}

// ParseDelimiterMode parses "tab" or "tab-or-space".
func ParseDelimiterMode(s string) (DelimiterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tab", "tab-only":
		return DelimiterTab, nil
	case "tab-or-space", "loose":
		return DelimiterTabOrSpace, nil
	default:
		return DelimiterTab, fmt.Errorf("unknown delimiter mode %q", s)
	}
}

// Config controls how route tokens are compiled.
type Config struct {
	Delimiter DelimiterMode
	// EscapeConstants quotes constant tokens so that no character is
	// treated as pattern syntax.
	EscapeConstants bool
}

// DefaultConfig returns tab-delimited matching with escaped constants.
func DefaultConfig() Config {
	return Config{
		Delimiter:       DelimiterTab,
		EscapeConstants: true,
	}
}

// Option configures the metadata of a Route.
type Option func(*Route)

// WithAction sets the opaque invocation target of the route.
func WithAction(action any) Option {
	return func(r *Route) {
		r.action = action
	}
}

// WithDescription sets a human readable description.
func WithDescription(desc string) Option {
	return func(r *Route) {
		r.description = desc
	}
}

// WithDeprecated marks the route as deprecated.
func WithDeprecated(deprecated bool) Option {
	return func(r *Route) {
		r.deprecated = deprecated
	}
}
