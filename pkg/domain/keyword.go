package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/stanza/pkg/route"
)

// Status is the position of a keyword occurrence in its lifecycle:
// Unrouted -> Matched -> Bound -> Invoked -> Succeeded | Failed | Skipped.
type Status string

const (
	StatusUnrouted  Status = "unrouted"
	StatusMatched   Status = "matched"
	StatusBound     Status = "bound"
	StatusInvoked   Status = "invoked"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// CellDelimiter joins the cells of an occurrence into its compare string.
const CellDelimiter = "\t"

// DataItem is one cell of a keyword occurrence.
// Source is the text read from the script and never changes; Data is the
// value after variable substitution. Item is nil until binding assigns the
// route item the cell belongs to.
type DataItem struct {
	source string
	Data   string
	Item   *route.Item
}

// NewDataItem creates a cell whose Data starts equal to its source text.
func NewDataItem(source string) *DataItem {
	return &DataItem{source: source, Data: source}
}

// NewDerivedDataItem creates a cell carved out of the cells read as source,
// as happens when a loose delimiter splits one script cell into several.
func NewDerivedDataItem(source, data string) *DataItem {
	return &DataItem{source: source, Data: data}
}

// Source returns the text originally read for the cell.
func (d *DataItem) Source() string {
	return d.source
}

// Bound reports whether a route item has been assigned.
func (d *DataItem) Bound() bool {
	return d.Item != nil
}

// KeywordParameter groups the cells bound to one parameter item, in encounter order.
type KeywordParameter struct {
	Name  string
	Item  *route.Item
	Cells []*DataItem
}

// Values returns the data of every cell of the parameter.
func (p KeywordParameter) Values() []string {
	values := make([]string, len(p.Cells))
	for i, c := range p.Cells {
		values[i] = c.Data
	}
	return values
}

// Value returns the data of a single-cell parameter, or the cells joined by
// the delimiter when the parameter spans several cells.
func (p KeywordParameter) Value() string {
	return strings.Join(p.Values(), CellDelimiter)
}

// Empty reports whether every cell of the parameter is blank.
func (p KeywordParameter) Empty() bool {
	for _, c := range p.Cells {
		if c.Data != "" {
			return false
		}
	}
	return true
}

// Keyword is one occurrence of a command in a script. It is owned by the
// goroutine executing its scenario and is never shared.
type Keyword struct {
	Scenario   string
	File       string
	Line       int
	Severity   Severity
	Items      []*DataItem
	Route      *route.Route
	Parameters []KeywordParameter
	Status     Status
	Err        error
	Duration   time.Duration
}

// NewKeyword creates an unrouted occurrence from raw cells.
func NewKeyword(cells ...string) *Keyword {
	items := make([]*DataItem, len(cells))
	for i, c := range cells {
		items[i] = NewDataItem(c)
	}
	return &Keyword{
		Items:    items,
		Severity: SeverityMajor,
		Status:   StatusUnrouted,
	}
}

// Cells returns the current data of every cell.
func (k *Keyword) Cells() []string {
	cells := make([]string, len(k.Items))
	for i, d := range k.Items {
		cells[i] = d.Data
	}
	return cells
}

// CompareString joins the cell data with the cell delimiter.
func (k *Keyword) CompareString() string {
	return strings.Join(k.Cells(), CellDelimiter)
}

// Unbound returns the cells left without a route item after binding.
func (k *Keyword) Unbound() []*DataItem {
	var out []*DataItem
	for _, d := range k.Items {
		if !d.Bound() {
			out = append(out, d)
		}
	}
	return out
}

// Parameter returns the bound parameter with the given name.
func (k *Keyword) Parameter(name string) (KeywordParameter, bool) {
	for _, p := range k.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return KeywordParameter{}, false
}

// Location returns "file:line" for diagnostics.
func (k *Keyword) Location() string {
	if k.File == "" {
		return fmt.Sprintf("line %d", k.Line)
	}
	return fmt.Sprintf("%s:%d", k.File, k.Line)
}

func (k *Keyword) String() string {
	return strings.Join(k.Cells(), " | ")
}

// Outcome returns the record of the occurrence in its current state.
func (k *Keyword) Outcome(runID string) Outcome {
	o := Outcome{
		RunID:    runID,
		Scenario: k.Scenario,
		Location: k.Location(),
		Keyword:  k.String(),
		Severity: k.Severity,
		Status:   k.Status,
		Duration: k.Duration,
		At:       time.Now(),
	}
	if k.Route != nil {
		o.Route = k.Route.String()
		o.Group = k.Route.Group()
	}
	if k.Err != nil {
		o.Error = k.Err.Error()
	}
	return o
}

// Scenario is an ordered list of keyword occurrences executed sequentially.
type Scenario struct {
	Name     string
	File     string
	Keywords []*Keyword
}
