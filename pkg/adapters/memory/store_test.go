package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunResultStoreContract(t, store)
}

func TestMemoryStore_ListOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &domain.RunResult{ID: "old", StartedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, &domain.RunResult{ID: "new", StartedAt: now}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	result := &domain.RunResult{ID: "r1", Scenarios: []domain.ScenarioResult{{Name: "main"}}}
	require.NoError(t, store.Save(ctx, result))
	result.Scenarios[0].Name = "mutated"

	loaded, err := store.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.Scenarios[0].Name)
}

func TestRecorder(t *testing.T) {
	rec := memory.NewRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Report(ctx, domain.Outcome{Keyword: "a", Status: domain.StatusSucceeded}))
	require.NoError(t, rec.Report(ctx, domain.Outcome{Keyword: "b", Status: domain.StatusSkipped}))

	out := rec.Outcomes()
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].Keyword)

	rec.Reset()
	assert.Empty(t, rec.Outcomes())
}
