package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stanza/pkg/domain"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunResult
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunResult),
	}
}

// Save persists a copy of the result in memory.
func (s *Store) Save(ctx context.Context, result *domain.RunResult) error {
	copied := clone(result)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[result.ID] = copied
	return nil
}

// Load retrieves a copy of the result so callers cannot mutate the stored value.
func (s *Store) Load(ctx context.Context, id string) (*domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.data[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return clone(result), nil
}

// Delete removes the result.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored run IDs, most recent first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*domain.RunResult, 0, len(s.data))
	for _, r := range s.data {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

func clone(r *domain.RunResult) *domain.RunResult {
	c := *r
	c.Scenarios = make([]domain.ScenarioResult, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		sc.Outcomes = append([]domain.Outcome(nil), sc.Outcomes...)
		c.Scenarios[i] = sc
	}
	return &c
}
