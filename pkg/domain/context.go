package domain

import "context"

type keywordKey struct{}

// WithKeyword returns a context carrying the keyword occurrence being executed.
func WithKeyword(ctx context.Context, k *Keyword) context.Context {
	return context.WithValue(ctx, keywordKey{}, k)
}

// KeywordFrom returns the keyword occurrence carried by ctx, if any.
func KeywordFrom(ctx context.Context) (*Keyword, bool) {
	k, ok := ctx.Value(keywordKey{}).(*Keyword)
	return k, ok
}

type runIDKey struct{}

// WithRunID returns a context carrying the ID of the run being executed.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run ID carried by ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
