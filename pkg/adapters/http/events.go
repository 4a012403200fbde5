package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aretw0/stanza/pkg/domain"
)

// allRuns subscribes to outcomes of every run.
const allRuns = ""

// StreamManager fans keyword outcomes out to SSE subscribers, keyed by run ID.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a subscriber for runID, or for every run when runID is
// empty. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(runID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 64)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

// Broadcast sends msg to the subscribers of runID and of every run.
// Slow subscribers miss messages instead of blocking the sender.
func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	send := func(key string) {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
			}
		}
	}
	send(allRuns)
	if runID != allRuns {
		send(runID)
	}
}

// Report implements ports.Reporter by broadcasting the outcome as JSON.
func (sm *StreamManager) Report(ctx context.Context, outcome domain.Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	sm.Broadcast(outcome.RunID, string(payload))
	return nil
}

// SubscribeEvents handles GET /events, streaming outcomes as server-sent
// events. The optional run query restricts the stream to one run.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	runID := r.URL.Query().Get("run")
	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected", "run", runID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "run", runID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: outcome\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
