package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stanza/internal/dto"
	"github.com/aretw0/stanza/pkg/adapters/memory"
	"github.com/aretw0/stanza/pkg/dispatch"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
	"github.com/aretw0/stanza/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() ports.ActionFunc {
	return func(ctx context.Context, args any) (any, error) { return nil, nil }
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *registry.Registry) {
	t.Helper()
	reg := registry.NewRegistry()
	reg.MustRegister("UI", []string{"Click", "[locator](id=.*)"}, noop(), route.WithDescription("Click an element"))
	reg.MustRegister("UI", []string{"Click", "[locator]"}, noop())
	reg.MustRegister("", []string{"Foo", "[x]"}, noop())
	reg.MustRegister("", []string{"Foo", "[y]"}, noop())
	require.NoError(t, reg.CalculateRoutesRating())
	return NewServer(reg, dispatch.New(reg), opts...), reg
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestGetHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	notReady := NewServer(registry.NewRegistry(), nil)
	rec = do(t, notReady.Handler(), "GET", "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), "GET", "/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var routes []dto.RouteInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	require.Len(t, routes, 4)
	assert.Equal(t, "UI", routes[0].Group)
	assert.Equal(t, "Click", routes[0].Name)
	assert.Equal(t, "Click an element", routes[0].Description)
	assert.Equal(t, 1, routes[0].Rating)

	rec = do(t, s.Handler(), "GET", "/routes?name=foo", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	assert.Len(t, routes, 2)
}

func TestMatch(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	t.Run("Cells", func(t *testing.T) {
		rec := do(t, h, "POST", "/match", MatchRequest{Cells: []string{"Click", "id=loginBtn"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res dto.MatchResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, domain.StatusBound, res.Status)
		require.NotNil(t, res.Route)
		assert.Equal(t, "Click [locator](id=.*)", res.Route.Route)
		assert.Equal(t, []dto.ParameterInfo{{Name: "locator", Values: []string{"id=loginBtn"}}}, res.Parameters)
	})

	t.Run("Line", func(t *testing.T) {
		rec := do(t, h, "POST", "/match", MatchRequest{Line: "Click\tcss=.btn"})
		require.Equal(t, http.StatusOK, rec.Code)

		var res dto.MatchResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "Click [locator]", res.Route.Route)
	})

	t.Run("NoRoute", func(t *testing.T) {
		rec := do(t, h, "POST", "/match", MatchRequest{Cells: []string{"Click", "a", "b"}})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var res dto.MatchResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Contains(t, res.Error, "no route found")
		assert.Len(t, res.Candidates, 2)
	})

	t.Run("Ambiguous", func(t *testing.T) {
		rec := do(t, h, "POST", "/match", MatchRequest{Cells: []string{"Foo", "bar"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("BadBody", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/match", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, h, "POST", "/match", MatchRequest{Line: "# comment"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRuns(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Save(context.Background(), &domain.RunResult{ID: "run-1", StartedAt: time.Now()}))
	s, _ := newTestServer(t, WithStore(store))
	h := s.Handler()

	rec := do(t, h, "GET", "/runs/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.ID)

	rec = do(t, h, "GET", "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "GET", "/runs", nil)
	assert.JSONEq(t, `["run-1"]`, rec.Body.String())

	noStore, _ := newTestServer(t)
	rec = do(t, noStore.Handler(), "GET", "/runs/run-1", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestStartRun(t *testing.T) {
	reg := registry.NewRegistry()
	reg.MustRegister("UI", []string{"Click", "[locator]"}, noop())
	require.NoError(t, reg.CalculateRoutesRating())

	streams := NewStreamManager()
	events, unsubscribe := streams.Subscribe(allRuns)
	defer unsubscribe()

	store := memory.NewStore()
	d := dispatch.New(reg, dispatch.WithReporter(streams))
	r := runner.NewRunner(d, runner.WithStore(store), runner.WithIDGenerator(func() string { return "run-9" }))
	h := NewHandler(reg, d, WithRunner(r), WithStore(store), WithStreams(streams))

	rec := do(t, h, "POST", "/runs", RunRequest{Name: "smoke", Script: "*** Login\nClick\tid=go\n"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result domain.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "run-9", result.ID)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "Login", result.Scenarios[0].Name)
	assert.Equal(t, domain.StatusSucceeded, result.Scenarios[0].Status)

	select {
	case msg := <-events:
		assert.Contains(t, msg, `"run_id":"run-9"`)
	default:
		t.Fatal("expected an outcome event")
	}

	rec = do(t, h, "GET", "/runs/run-9", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "POST", "/runs", RunRequest{Script: "# nothing\n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/runs", RunRequest{Script: "Click\tx\t@severity=loud\n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	plain, _ := newTestServer(t)
	rec = do(t, plain.Handler(), "POST", "/runs", RunRequest{Script: "Click\tx\n"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stanza_up 1\n"))
	})
	s, _ := newTestServer(t, WithMetrics(metrics))

	rec := do(t, s.Handler(), "GET", "/metrics", nil)
	assert.Equal(t, "stanza_up 1\n", rec.Body.String())

	plain, _ := newTestServer(t)
	rec = do(t, plain.Handler(), "GET", "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type syncRecorder struct {
	*httptest.ResponseRecorder
	done chan struct{}
}

func TestSubscribeEvents(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder(), done: make(chan struct{})}
	req := httptest.NewRequest("GET", "/events?run=run-7", nil).WithContext(ctx)
	go func() {
		defer close(w.done)
		h.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool {
		s.Streams.mu.RLock()
		defer s.Streams.mu.RUnlock()
		return len(s.Streams.subscribers["run-7"]) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Report(context.Background(), domain.Outcome{RunID: "other", Keyword: "Ignored"}))
	require.NoError(t, s.Report(context.Background(), domain.Outcome{RunID: "run-7", Keyword: "Open | x", Status: domain.StatusSucceeded}))

	require.Eventually(t, func() bool {
		s.Streams.mu.RLock()
		defer s.Streams.mu.RUnlock()
		for ch := range s.Streams.subscribers["run-7"] {
			return len(ch) == 0
		}
		return false
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-w.done

	body := w.Body.String()
	assert.Contains(t, body, "event: ping")
	assert.Contains(t, body, "event: outcome")
	assert.Contains(t, body, `"keyword":"Open | x"`)
	assert.NotContains(t, body, "Ignored")
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe(allRuns)
	sm.Broadcast("any", "hello")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Empty(t, sm.subscribers)
}
