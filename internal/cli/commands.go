// Package cli implements the stanza commands on top of the engine, leaving
// flag parsing to cmd/stanza.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/internal/dto"
	"github.com/aretw0/stanza/internal/presentation/graph"
	"github.com/aretw0/stanza/internal/presentation/tui"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/script"
)

var (
	// ErrRunFailed is returned when a run completes with a failed scenario.
	ErrRunFailed = errors.New("run failed")
	// ErrInvalidScripts is returned when a script holds keywords that cannot be routed or bound.
	ErrInvalidScripts = errors.New("scripts have unresolved keywords")
	// ErrNoMatch is returned when a keyword cannot be routed or bound.
	ErrNoMatch = errors.New("keyword did not match")
)

// Output selects how command results are written.
type Output struct {
	W io.Writer
	// JSON writes machine-readable output instead of the terminal view.
	JSON bool
	// Styled enables colours and markdown rendering.
	Styled bool
}

func (o Output) printer() *tui.Printer {
	return tui.NewPrinter(o.W, o.Styled)
}

func (o Output) json(v any) error {
	enc := json.NewEncoder(o.W)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunScripts runs the scenarios of the scripts at paths and prints the summary.
func RunScripts(ctx context.Context, eng *stanza.Engine, paths []string, out Output) (*domain.RunResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no scripts given")
	}
	result, err := eng.RunFiles(ctx, paths...)
	if result == nil {
		return nil, err
	}

	var perr error
	if out.JSON {
		perr = out.json(result)
	} else {
		perr = out.printer().Summary(result)
	}
	switch {
	case err != nil:
		return result, err
	case perr != nil:
		return result, perr
	case !result.Passed():
		return result, ErrRunFailed
	}
	return result, nil
}

// ValidateScripts routes and binds every keyword of the scripts at paths
// without invoking any action, and prints the failures.
func ValidateScripts(ctx context.Context, eng *stanza.Engine, paths []string, out Output) error {
	if len(paths) == 0 {
		return errors.New("no scripts given")
	}
	scenarios, err := stanza.ReadScripts(paths...)
	if err != nil {
		return err
	}
	failed, err := eng.Validate(ctx, scenarios)
	if err != nil {
		return err
	}

	results := make([]dto.MatchResult, len(failed))
	for i, kw := range failed {
		results[i] = dto.NewMatchResult(kw, kw.Err)
	}

	if out.JSON {
		if err := out.json(results); err != nil {
			return err
		}
	} else {
		p := out.printer()
		for i, res := range results {
			if _, err := fmt.Fprintf(out.W, "%s\n", failed[i].Location()); err != nil {
				return err
			}
			if err := p.Match(res); err != nil {
				return err
			}
		}
		total := 0
		for _, sc := range scenarios {
			total += len(sc.Keywords)
		}
		if _, err := fmt.Fprintf(out.W, "%d keywords in %d scenarios, %d unresolved\n", total, len(scenarios), len(failed)); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidScripts, len(failed))
	}
	return nil
}

// ListRoutes prints the registered routes. A non-empty name keeps the routes
// whose first constant token equals it.
func ListRoutes(eng *stanza.Engine, name string, out Output) error {
	routes := eng.Registry().Routes()
	if name != "" {
		routes = eng.Registry().RoutesByName(name)
	}
	infos := dto.NewRouteInfos(routes)
	if out.JSON {
		return out.json(infos)
	}
	return out.printer().Routes(infos)
}

// RouteGraph writes the specificity order of the registered routes as a
// Mermaid flowchart.
func RouteGraph(eng *stanza.Engine, name string, w io.Writer) error {
	routes := eng.Registry().Routes()
	if name != "" {
		routes = eng.Registry().RoutesByName(name)
	}
	_, err := io.WriteString(w, graph.GenerateMermaid(routes))
	return err
}

// MatchKeyword resolves one keyword occurrence and prints how it was routed
// and bound. A single argument is parsed as a script line.
func MatchKeyword(ctx context.Context, eng *stanza.Engine, args []string, out Output) error {
	var kw *domain.Keyword
	if len(args) == 1 {
		parsed, err := script.ParseLine(args[0])
		if err != nil {
			return err
		}
		kw = parsed
	} else {
		kw = domain.NewKeyword(args...)
	}
	if kw == nil {
		return fmt.Errorf("no keyword in %q", strings.Join(args, " "))
	}

	err := eng.Dispatcher().Resolve(ctx, kw)
	res := dto.NewMatchResult(kw, err)

	if out.JSON {
		if perr := out.json(res); perr != nil {
			return perr
		}
	} else if perr := out.printer().Match(res); perr != nil {
		return perr
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	return nil
}
