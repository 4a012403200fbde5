// Package coerce converts bound keyword parameters into typed action arguments.
package coerce

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// ErrCoercion is returned when a parameter cannot be converted to the type its action expects.
var ErrCoercion = errors.New("parameter coercion failed")

// Coercer implements ports.Coercer on top of mapstructure.
//
// Actions implementing ports.ArgsProvider receive a struct decoded from the
// parameters, using weak typing so "3" fills an int and "1s" a
// time.Duration. Other actions receive the raw parameter map. Single-cell
// parameters decode as strings and multi-cell parameters as string slices.
// Blank parameters are left out so struct defaults survive.
type Coercer struct {
	hooks []mapstructure.DecodeHookFunc
}

// Option configures a Coercer.
type Option func(*Coercer)

// WithDecodeHook appends a mapstructure decode hook, run after the built-in ones.
func WithDecodeHook(hook mapstructure.DecodeHookFunc) Option {
	return func(c *Coercer) {
		c.hooks = append(c.hooks, hook)
	}
}

// New creates a Coercer.
func New(opts ...Option) *Coercer {
	c := &Coercer{
		hooks: []mapstructure.DecodeHookFunc{
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(domain.CellDelimiter),
			joinCells,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Coercer = (*Coercer)(nil)

// Coerce builds the argument value for action.
func (c *Coercer) Coerce(ctx context.Context, action any, params []domain.KeywordParameter) (any, error) {
	input := Map(params)

	provider, ok := action.(ports.ArgsProvider)
	if !ok {
		return input, nil
	}

	target := provider.NewArgs()
	if err := c.Decode(input, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Decode fills target, a pointer, from input using the Coercer decode hooks.
func (c *Coercer) Decode(input map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(c.hooks...),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCoercion, err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", ErrCoercion, err)
	}
	return nil
}

// Map returns the parameters keyed by name. Blank parameters are omitted.
func Map(params []domain.KeywordParameter) map[string]any {
	out := make(map[string]any, len(params))
	for _, p := range params {
		if p.Empty() {
			continue
		}
		if p.Item != nil && p.Item.OccupiedCells() == 1 {
			out[p.Name] = p.Value()
			continue
		}
		out[p.Name] = p.Values()
	}
	return out
}

// joinCells lets a multi-cell parameter fill a string field.
func joinCells(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Slice || to.Kind() != reflect.String {
		return data, nil
	}
	if cells, ok := data.([]string); ok {
		return strings.Join(cells, domain.CellDelimiter), nil
	}
	return data, nil
}
