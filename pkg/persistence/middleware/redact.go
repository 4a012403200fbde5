package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactMiddleware struct {
	next     ports.ResultStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks the text matching any
// of patterns in keyword cells and error messages before they are stored.
// A pattern with a capture group masks only the first group.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ResultStore) ports.ResultStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, result *domain.RunResult) error {
	// The runner keeps using result, so the stored copy is masked instead.
	cloned := *result
	cloned.Error = m.mask(result.Error)
	cloned.Scenarios = make([]domain.ScenarioResult, len(result.Scenarios))
	for i, sc := range result.Scenarios {
		sc.Error = m.mask(sc.Error)
		outcomes := make([]domain.Outcome, len(sc.Outcomes))
		for j, o := range sc.Outcomes {
			o.Keyword = m.mask(o.Keyword)
			o.Error = m.mask(o.Error)
			outcomes[j] = o
		}
		sc.Outcomes = outcomes
		cloned.Scenarios[i] = sc
	}
	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, id string) (*domain.RunResult, error) {
	return m.next.Load(ctx, id)
}

func (m *redactMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) mask(s string) string {
	if s == "" {
		return s
	}
	for _, p := range m.patterns {
		if p.NumSubexp() == 0 {
			s = p.ReplaceAllLiteralString(s, Mask)
			continue
		}
		s = p.ReplaceAllStringFunc(s, func(match string) string {
			loc := p.FindStringSubmatchIndex(match)
			if loc == nil || loc[2] < 0 {
				return match
			}
			return match[:loc[2]] + Mask + match[loc[3]:]
		})
	}
	return s
}
