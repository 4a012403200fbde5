package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventKeywordMatched  EventType = "keyword_matched"
	EventKeywordUnrouted EventType = "keyword_unrouted"
	EventKeywordInvoke   EventType = "keyword_invoke"
	EventKeywordFinish   EventType = "keyword_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// KeywordEvent describes a step of a keyword occurrence through the dispatcher.
type KeywordEvent struct {
	EventBase
	Scenario string        `json:"scenario"`
	Location string        `json:"location"`
	Keyword  string        `json:"keyword"`
	Route    string        `json:"route,omitempty"`
	Group    string        `json:"group,omitempty"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for dispatcher observability.
type LifecycleHooks struct {
	OnMatched  func(context.Context, *KeywordEvent)
	OnUnrouted func(context.Context, *KeywordEvent)
	OnInvoke   func(context.Context, *KeywordEvent)
	OnFinish   func(context.Context, *KeywordEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnMatched:  chain(h.OnMatched, other.OnMatched),
		OnUnrouted: chain(h.OnUnrouted, other.OnUnrouted),
		OnInvoke:   chain(h.OnInvoke, other.OnInvoke),
		OnFinish:   chain(h.OnFinish, other.OnFinish),
	}
}

func chain(a, b func(context.Context, *KeywordEvent)) func(context.Context, *KeywordEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *KeywordEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
