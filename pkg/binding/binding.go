// Package binding aligns the cells of a keyword occurrence onto the items of
// the route it matched and groups them into named parameters.
package binding

import (
	"strings"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/route"
)

// Bind assigns a route item to every cell of a matched occurrence.
//
// Cells are aligned on the item spans reported by the route pattern. When the
// spans do not fall on cell boundaries, as happens when the route accepts
// spaces as delimiters inside a tab-separated cell, the cells are split again
// along the spans. Data the route does not match is aligned by position with
// Align.
//
// Omitted parameters receive a blank cell so that every item is assigned.
// Cells that cannot be aligned keep a nil Item and show up in the result;
// callers treat them as a binding failure.
func Bind(rt *route.Route, data []*domain.DataItem) ([]*domain.DataItem, []domain.KeywordParameter) {
	compare := joinData(data)
	loc := rt.Submatch(compare)
	if loc == nil {
		items := Align(rt, data)
		return items, Parameters(items)
	}

	items, ok := alignSubmatch(rt, data, loc)
	if !ok {
		items = split(rt, data, compare, loc)
	}
	return items, Parameters(items)
}

// Parameters groups the cells bound to parameter items, in encounter order.
func Parameters(items []*domain.DataItem) []domain.KeywordParameter {
	var params []domain.KeywordParameter
	index := make(map[*route.Item]int)
	for _, d := range items {
		if d.Item == nil || !d.Item.IsParameter() {
			continue
		}
		i, ok := index[d.Item]
		if !ok {
			i = len(params)
			index[d.Item] = i
			params = append(params, domain.KeywordParameter{Name: d.Item.Name(), Item: d.Item})
		}
		params[i].Cells = append(params[i].Cells, d)
	}
	return params
}

// Unbound returns the source text of every cell left without a route item.
func Unbound(items []*domain.DataItem) []string {
	var out []string
	for _, d := range items {
		if !d.Bound() {
			out = append(out, d.Source())
		}
	}
	return out
}

// alignSubmatch maps each item group of the route pattern onto the cells it
// spans. It reports false when a group boundary falls inside a cell.
func alignSubmatch(rt *route.Route, data []*domain.DataItem, loc []int) ([]*domain.DataItem, bool) {
	starts := make(map[int]int, len(data))
	ends := make(map[int]int, len(data))
	offset := 0
	for i, d := range data {
		starts[offset] = i
		ends[offset+len(d.Data)] = i
		offset += len(d.Data) + len(domain.CellDelimiter)
	}

	type span struct{ first, last int }
	spans := make([]span, len(rt.Items()))
	covered := 0
	for j := range rt.Items() {
		s, e := loc[2*j], loc[2*j+1]
		if s < 0 {
			spans[j] = span{-1, -1}
			continue
		}
		first, ok := starts[s]
		if !ok {
			return nil, false
		}
		last, ok := ends[e]
		if !ok || last < first {
			return nil, false
		}
		spans[j] = span{first, last}
		covered += last - first + 1
	}
	if covered != len(data) {
		return nil, false
	}

	out := make([]*domain.DataItem, 0, len(rt.Items()))
	for j, item := range rt.Items() {
		sp := spans[j]
		if sp.first < 0 {
			out = append(out, blank(item))
			continue
		}
		for c := sp.first; c <= sp.last; c++ {
			data[c].Item = item
			out = append(out, data[c])
		}
	}
	return out, true
}

// split builds one new cell per item group of the matched compare string.
// Each new cell keeps the source of the script cells its span was cut from.
func split(rt *route.Route, data []*domain.DataItem, compare string, loc []int) []*domain.DataItem {
	out := make([]*domain.DataItem, 0, len(rt.Items()))
	for j, item := range rt.Items() {
		s, e := loc[2*j], loc[2*j+1]
		if s < 0 {
			out = append(out, blank(item))
			continue
		}
		d := domain.NewDerivedDataItem(sourceOf(data, s, e), compare[s:e])
		d.Item = item
		out = append(out, d)
	}
	return out
}

// sourceOf joins the sources of the cells overlapping compare[s:e].
func sourceOf(data []*domain.DataItem, s, e int) string {
	var parts []string
	offset := 0
	for _, d := range data {
		end := offset + len(d.Data)
		if (s < end && e > offset) || (s == e && s >= offset && s <= end) {
			parts = append(parts, d.Source())
		}
		offset = end + len(domain.CellDelimiter)
	}
	return strings.Join(parts, domain.CellDelimiter)
}

// Align binds cells to items by position, for data the route pattern does
// not match; Bind uses the pattern spans otherwise.
//
// A cell that literally matches the next constant of the route is a
// recognized anchor. When the position before a parameter was the previous
// anchor, or a blank inserted for it, and the current cell is a recognized
// anchor, the parameter is treated as omitted and receives a blank cell. The
// blank is only inserted while the occurrence has fewer cells left than the
// route has items left, so a constant's text can still be a value. Missing
// trailing cells are padded with blanks. Cells remaining after the last item
// are appended unbound.
func Align(rt *route.Route, data []*domain.DataItem) []*domain.DataItem {
	items := rt.Items()
	out := make([]*domain.DataItem, 0, len(items))
	di := 0
	anchored := false

	for pos, item := range items {
		available := len(data) - di
		if available <= 0 {
			out = append(out, blank(item))
			anchored = false
			continue
		}

		if !item.IsParameter() {
			data[di].Item = item
			out = append(out, data[di])
			di++
			anchored = true
			continue
		}

		if next := nextConstant(items, pos); anchored && next != nil &&
			next.MatchesLiteral(data[di].Data) && available < len(items)-pos {
			out = append(out, blank(item))
			continue
		}
		anchored = false

		take := available - constantsAfter(items, pos)
		if k := item.OccupiedCells(); k > 0 && take > k {
			take = k
		}
		if take < 1 {
			out = append(out, blank(item))
			continue
		}
		for ; take > 0; take-- {
			data[di].Item = item
			out = append(out, data[di])
			di++
		}
	}

	return append(out, data[di:]...)
}

func joinData(data []*domain.DataItem) string {
	cells := make([]string, len(data))
	for i, d := range data {
		cells[i] = d.Data
	}
	return strings.Join(cells, domain.CellDelimiter)
}

func nextConstant(items []*route.Item, pos int) *route.Item {
	for _, it := range items[pos+1:] {
		if !it.IsParameter() {
			return it
		}
	}
	return nil
}

func constantsAfter(items []*route.Item, pos int) int {
	n := 0
	for _, it := range items[pos+1:] {
		if !it.IsParameter() {
			n++
		}
	}
	return n
}

func blank(item *route.Item) *domain.DataItem {
	d := domain.NewDataItem("")
	d.Item = item
	return d
}
