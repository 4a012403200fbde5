// Package middleware wraps a ResultStore to transform run results on their
// way to storage.
package middleware

import "github.com/aretw0/stanza/pkg/ports"

// Middleware allows wrapping a ResultStore to add behavior.
type Middleware func(ports.ResultStore) ports.ResultStore

// Chain applies mws so that the first one sees Save calls first.
func Chain(store ports.ResultStore, mws ...Middleware) ports.ResultStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
