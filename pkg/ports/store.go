package ports

import (
	"context"

	"github.com/aretw0/stanza/pkg/domain"
)

// ResultStore persists the results of runs.
type ResultStore interface {
	// Save persists the result under result.ID, replacing any previous value.
	Save(ctx context.Context, result *domain.RunResult) error

	// Load retrieves a run result.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, id string) (*domain.RunResult, error)

	// Delete removes a run result. Deleting an unknown run is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of the stored runs, most recent first.
	List(ctx context.Context) ([]string, error)
}
