// Package tui renders route tables and run summaries for the terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/stanza/internal/dto"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes styled output when attached to a terminal and plain text otherwise.
type Printer struct {
	out     io.Writer
	styled  bool
	profile termenv.Profile
	render  func(string) (string, error)
}

// NewPrinter creates a Printer for out. styled enables markdown and colours.
func NewPrinter(out io.Writer, styled bool) *Printer {
	p := &Printer{out: out, styled: styled}
	if styled {
		p.profile = termenv.ColorProfile()
		p.render = NewRenderer()
	}
	return p
}

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

func (p *Printer) markdown(md string) error {
	if p.render != nil {
		rendered, err := p.render(md)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(p.out, md)
	return err
}

// RoutesMarkdown formats routes as a markdown table.
func RoutesMarkdown(routes []dto.RouteInfo) string {
	var b strings.Builder
	b.WriteString("| Group | Route | Rating | Description |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range routes {
		desc := r.Description
		if r.Deprecated {
			desc = strings.TrimSpace("(deprecated) " + desc)
		}
		fmt.Fprintf(&b, "| %s | `%s` | %d | %s |\n", cell(r.Group), r.Route, r.Rating, cell(desc))
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Routes prints the route table.
func (p *Printer) Routes(routes []dto.RouteInfo) error {
	return p.markdown(RoutesMarkdown(routes))
}

// Match prints the resolution of one keyword.
func (p *Printer) Match(res dto.MatchResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.status(res.Status), strings.Join(res.Keyword, " | "))
	if res.Route != nil {
		fmt.Fprintf(&b, "  route:   %s (group %s, rating %d)\n", res.Route.Route, res.Route.Group, res.Route.Rating)
		fmt.Fprintf(&b, "  pattern: %s\n", res.Route.Pattern)
	}
	for _, param := range res.Parameters {
		fmt.Fprintf(&b, "  %s = %q\n", param.Name, strings.Join(param.Values, "\t"))
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "  error:   %s\n", res.Error)
	}
	for _, c := range res.Candidates {
		fmt.Fprintf(&b, "  candidate: %s\n", c.Route)
	}
	_, err := io.WriteString(p.out, b.String())
	return err
}

// Summary prints one line per keyword outcome followed by the run totals.
func (p *Printer) Summary(result *domain.RunResult) error {
	var b strings.Builder
	for _, sc := range result.Scenarios {
		fmt.Fprintf(&b, "%s %s\n", p.status(sc.Status), sc.Name)
		for _, o := range sc.Outcomes {
			fmt.Fprintf(&b, "    %s %s  %s\n", p.status(o.Status), o.Keyword, p.faint(o.Location))
			if o.Error != "" && o.Status != domain.StatusSucceeded {
				fmt.Fprintf(&b, "        %s\n", p.faint(o.Error))
			}
		}
	}

	counts := result.Counts()
	verdict := p.colour("PASSED", "#22c55e")
	if !result.Passed() {
		verdict = p.colour("FAILED", "#ef4444")
	}
	fmt.Fprintf(&b, "\n%s run %s: %d succeeded, %d failed, %d skipped in %s\n",
		verdict, result.ID,
		counts[domain.StatusSucceeded], counts[domain.StatusFailed], counts[domain.StatusSkipped],
		result.EndedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)
	if result.Error != "" {
		fmt.Fprintf(&b, "%s\n", p.colour(result.Error, "#ef4444"))
	}
	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p *Printer) status(s domain.Status) string {
	switch s {
	case domain.StatusSucceeded, domain.StatusBound:
		return p.colour("✔", "#22c55e")
	case domain.StatusFailed:
		return p.colour("✘", "#ef4444")
	case domain.StatusSkipped:
		return p.colour("–", "#eab308")
	}
	return p.colour("•", "#94a3b8")
}

func (p *Printer) colour(s, hex string) string {
	if !p.styled {
		return s
	}
	return termenv.String(s).Foreground(p.profile.Color(hex)).String()
}

func (p *Printer) faint(s string) string {
	if !p.styled {
		return s
	}
	return termenv.String(s).Faint().String()
}
