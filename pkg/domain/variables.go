package domain

import (
	"context"
	"regexp"
)

// Variables is the variable scope of one scenario. A scenario runs on a
// single goroutine, so the scope is not synchronized.
type Variables map[string]string

var reference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// Expand replaces every ${name} in s with the value of the variable.
// References to undefined variables are left untouched.
func (v Variables) Expand(s string) string {
	if len(v) == 0 {
		return s
	}
	return reference.ReplaceAllStringFunc(s, func(ref string) string {
		name := reference.FindStringSubmatch(ref)[1]
		if val, ok := v[name]; ok {
			return val
		}
		return ref
	})
}

// ExpandKeyword substitutes variables into the data of every cell of k.
// The source text of the cells is kept.
func (v Variables) ExpandKeyword(k *Keyword) {
	for _, d := range k.Items {
		d.Data = v.Expand(d.Source())
	}
}

type variablesKey struct{}

// WithVariables returns a context carrying a scenario variable scope.
func WithVariables(ctx context.Context, v Variables) context.Context {
	return context.WithValue(ctx, variablesKey{}, v)
}

// VariablesFrom returns the variable scope carried by ctx, or nil.
func VariablesFrom(ctx context.Context) Variables {
	v, _ := ctx.Value(variablesKey{}).(Variables)
	return v
}
