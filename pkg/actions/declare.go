package actions

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/aretw0/stanza/pkg/coerce"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
)

// RouteDeclaration binds a route shape to a built-in action by name.
//
// Args preset action arguments the route does not bind, or binds but the
// keyword leaves blank. String presets may reference bound parameters as
// ${name}.
type RouteDeclaration struct {
	Group       string         `json:"group" yaml:"group" mapstructure:"group"`
	Tokens      []string       `json:"tokens" yaml:"tokens" mapstructure:"tokens"`
	Action      string         `json:"action" yaml:"action" mapstructure:"action"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Deprecated  bool           `json:"deprecated" yaml:"deprecated" mapstructure:"deprecated"`
	Args        map[string]any `json:"args" yaml:"args" mapstructure:"args"`
}

// Declare registers every declaration on reg. The group defaults to the
// action name.
func Declare(reg *registry.Registry, env Env, decls []RouteDeclaration) error {
	for i, decl := range decls {
		if len(decl.Tokens) == 0 {
			return fmt.Errorf("declaration %d: no tokens", i)
		}
		action, err := Instantiate(decl.Action, env)
		if err != nil {
			return fmt.Errorf("declaration %d (%s): %w", i, strings.Join(decl.Tokens, " "), err)
		}
		if len(decl.Args) > 0 {
			action = WithPresets(action, decl.Args)
		}

		group := decl.Group
		if group == "" {
			group = decl.Action
		}
		_, err = reg.Register(group, decl.Tokens, action,
			route.WithDescription(decl.Description),
			route.WithDeprecated(decl.Deprecated),
		)
		if err != nil {
			return fmt.Errorf("declaration %d (%s): %w", i, strings.Join(decl.Tokens, " "), err)
		}
	}
	return nil
}

// presetAction merges preset arguments under the bound parameters before
// decoding them for the wrapped action.
type presetAction struct {
	inner   ports.Action
	presets map[string]any
	coercer *coerce.Coercer
}

// WithPresets wraps action so that presets fill the arguments left unbound.
func WithPresets(action ports.Action, presets map[string]any) ports.Action {
	return &presetAction{inner: action, presets: presets, coercer: coerce.New()}
}

func (p *presetAction) Invoke(ctx context.Context, args any) (any, error) {
	bound, _ := args.(map[string]any)
	refs := domain.Variables{}
	for k, v := range bound {
		switch v := v.(type) {
		case string:
			refs[k] = v
		case []string:
			refs[k] = strings.Join(v, domain.CellDelimiter)
		}
	}

	input := make(map[string]any, len(p.presets)+len(bound))
	for k, v := range p.presets {
		if s, ok := v.(string); ok {
			v = refs.Expand(s)
		}
		input[k] = v
	}
	maps.Copy(input, bound)

	provider, ok := p.inner.(ports.ArgsProvider)
	if !ok {
		return p.inner.Invoke(ctx, input)
	}
	target := provider.NewArgs()
	if err := p.coercer.Decode(input, target); err != nil {
		return nil, err
	}
	return p.inner.Invoke(ctx, target)
}
