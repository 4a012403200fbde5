package registry

import (
	"fmt"
	"strings"
)

// Strategy selects how Search resolves several matching routes.
type Strategy int

const (
	// StrategyStrict returns the single best rated match and fails when the
	// best rating is shared.
	StrategyStrict Strategy = iota
	// StrategyLazy returns the first match holding the best rating.
	StrategyLazy
)

func (s Strategy) String() string {
	if s == StrategyLazy {
		return "lazy"
	}
	return "strict"
}

// ParseStrategy parses "lazy" or "strict". An empty string selects strict.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return StrategyStrict, nil
	case "lazy":
		return StrategyLazy, nil
	default:
		return StrategyStrict, fmt.Errorf("unknown matching strategy %q", s)
	}
}
