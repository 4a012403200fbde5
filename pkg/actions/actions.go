// Package actions provides the built-in keyword library.
//
// Every action declares the route tokens it answers to. Register adds them
// to a registry in one explicit pass at startup; route declaration files can
// bind extra token shapes to the same actions through Lookup.
package actions

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aretw0/stanza/pkg/adapters/process"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
)

// Group is the registry group holding the built-in routes.
const Group = "builtin"

// Env holds the resources shared by built-in actions.
type Env struct {
	Out   io.Writer
	Tools *process.Runner
}

// Declaration describes one built-in action and its default route.
type Declaration struct {
	// Name identifies the action in route declaration files.
	Name        string
	Tokens      []string
	Description string
	New         func(env Env) ports.Action
}

var declarations = []Declaration{
	{
		Name:        "print",
		Tokens:      []string{"Print", "[message]{0}"},
		Description: "Writes the message cells, separated by spaces, to the output.",
		New:         func(env Env) ports.Action { return &Print{Out: env.Out} },
	},
	{
		Name:        "comment",
		Tokens:      []string{"Comment", "[text]{0}"},
		Description: "Does nothing.",
		New:         func(Env) ports.Action { return Comment{} },
	},
	{
		Name:        "set",
		Tokens:      []string{"Set", `[name]([A-Za-z_][A-Za-z0-9_.-]*)`, "to", "[value]{0}"},
		Description: "Stores a value in the scenario variable scope.",
		New:         func(Env) ports.Action { return Set{} },
	},
	{
		Name:        "assert-equals",
		Tokens:      []string{"Assert", "[actual]", "equals", "[expected]"},
		Description: "Fails unless both values are equal.",
		New:         func(Env) ports.Action { return AssertEquals{} },
	},
	{
		Name:        "assert-contains",
		Tokens:      []string{"Assert", "[actual]", "contains", "[expected]"},
		Description: "Fails unless the actual value contains the expected text.",
		New:         func(Env) ports.Action { return AssertContains{} },
	},
	{
		Name:        "assert-matches",
		Tokens:      []string{"Assert", "[actual]", "matches", "[pattern]"},
		Description: "Fails unless the actual value matches the regular expression.",
		New:         func(Env) ports.Action { return AssertMatches{} },
	},
	{
		Name:        "sleep",
		Tokens:      []string{"Sleep", `[duration](\S+)`},
		Description: "Pauses the scenario for a Go duration such as 250ms.",
		New:         func(Env) ports.Action { return Sleep{} },
	},
	{
		Name:        "fail",
		Tokens:      []string{"Fail", "[message]{0}"},
		Description: "Fails the keyword with the message.",
		New:         func(Env) ports.Action { return Fail{} },
	},
	{
		Name:        "run",
		Tokens:      []string{"Run", `[tool](\S+)`, "[args]{0}"},
		Description: "Executes an allow-listed tool and stores its output in ${result}.",
		New:         func(env Env) ports.Action { return &Run{Tools: env.Tools} },
	},
}

// Declarations returns the built-in declarations sorted by name.
func Declarations() []Declaration {
	out := append([]Declaration(nil), declarations...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the declaration with the given name.
func Lookup(name string) (Declaration, bool) {
	for _, d := range declarations {
		if d.Name == name {
			return d, true
		}
	}
	return Declaration{}, false
}

// Register adds every built-in route to reg under Group.
func Register(reg *registry.Registry, env Env) error {
	env = env.withDefaults()
	for _, d := range declarations {
		_, err := reg.Register(Group, d.Tokens, d.New(env), route.WithDescription(d.Description))
		if err != nil {
			return fmt.Errorf("builtin %s: %w", d.Name, err)
		}
	}
	return nil
}

func (e Env) withDefaults() Env {
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Tools == nil {
		e.Tools = process.NewRunner()
	}
	return e
}

// Instantiate creates the action of the named declaration.
func Instantiate(name string, env Env) (ports.Action, error) {
	d, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	return d.New(env.withDefaults()), nil
}
