package observability_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/stanza/pkg/dispatch"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/observability"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(observability.WithRegistry(prometheus.NewRegistry()))

	reg := registry.NewRegistry()
	reg.MustRegister("UI", []string{"Click", "[locator](id=.*)"}, ports.ActionFunc(func(ctx context.Context, args any) (any, error) {
		return nil, nil
	}))
	require.NoError(t, reg.CalculateRoutesRating())

	d := dispatch.New(reg, dispatch.WithHooks(m.Hooks()))
	ctx := context.Background()

	_, err := d.Dispatch(ctx, domain.NewKeyword("Click", "id=loginBtn"))
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, domain.NewKeyword("Click", "id=logoutBtn"))
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, domain.NewKeyword("Type", "id=loginBtn"))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Matched.WithLabelValues("UI", "Click [locator](id=.*)")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Unrouted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(string(domain.StatusSucceeded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(string(domain.StatusSkipped))))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Unrouted.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), "stanza_keywords_unrouted_total 1"))
	assert.Contains(t, string(body), "go_goroutines")
}
