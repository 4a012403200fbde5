package ports

import (
	"context"
	"io"
	"time"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/route"
)

// Searcher resolves a delimiter-joined command to the route it belongs to.
type Searcher interface {
	Search(compare string) (*route.Route, error)
}

// Coercer converts the bound parameters of an occurrence into the argument
// value expected by the action of its route.
type Coercer interface {
	Coerce(ctx context.Context, action any, params []domain.KeywordParameter) (any, error)
}

// Action is an invocation target referenced by a route.
type Action interface {
	Invoke(ctx context.Context, args any) (any, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, args any) (any, error)

// Invoke calls f(ctx, args).
func (f ActionFunc) Invoke(ctx context.Context, args any) (any, error) {
	return f(ctx, args)
}

// ArgsProvider is implemented by actions that want their parameters decoded
// into a typed struct. NewArgs returns a pointer to a fresh zero value.
type ArgsProvider interface {
	NewArgs() any
}

// Invoker executes the opaque action reference of a route.
type Invoker interface {
	Invoke(ctx context.Context, action any, args any) (any, error)
}

// Reporter receives the outcome of every keyword occurrence, including
// unrouted and failed ones, before any local recovery decision is made.
type Reporter interface {
	Report(ctx context.Context, outcome domain.Outcome) error
}

// ScriptReader parses a script into scenarios of raw keyword occurrences.
type ScriptReader interface {
	Read(name string, r io.Reader) ([]*domain.Scenario, error)
}

// UnlockFunc releases a lock acquired from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes runs of the same suite across processes.
type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The returned UnlockFunc must be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
