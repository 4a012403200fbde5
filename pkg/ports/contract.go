package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultStoreContract runs a suite of tests to verify that a ResultStore
// implementation adheres to the interface contract.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	newResult := func(id string) *domain.RunResult {
		now := time.Now().UTC().Truncate(time.Second)
		return &domain.RunResult{
			ID:        id,
			StartedAt: now,
			EndedAt:   now.Add(time.Second),
			Scenarios: []domain.ScenarioResult{{
				Name:   "main",
				Status: domain.StatusSucceeded,
				Outcomes: []domain.Outcome{{
					RunID:    id,
					Scenario: "main",
					Location: "smoke.stanza:1",
					Keyword:  "Open | http://x",
					Route:    "Open [url]",
					Severity: domain.SeverityMajor,
					Status:   domain.StatusSucceeded,
				}},
			}},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		result := newResult(runID)

		err := store.Save(ctx, result)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, runID, loaded.ID)
		assert.True(t, result.StartedAt.Equal(loaded.StartedAt))
		require.Len(t, loaded.Scenarios, 1)
		require.Len(t, loaded.Scenarios[0].Outcomes, 1)
		assert.Equal(t, "Open [url]", loaded.Scenarios[0].Outcomes[0].Route)
		assert.Equal(t, domain.SeverityMajor, loaded.Scenarios[0].Outcomes[0].Severity)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newResult(runID))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, newResult(id1)))
		require.NoError(t, store.Save(ctx, newResult(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
