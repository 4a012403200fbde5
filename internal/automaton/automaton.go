package automaton

import (
	"errors"
	"fmt"
	"regexp/syntax"
	"slices"
	"unicode"
)

// DefaultStateLimit bounds the number of product states explored by Subset.
const DefaultStateLimit = 1 << 16

// ErrStateLimit is returned when a containment query explores more states than allowed.
var ErrStateLimit = errors.New("automaton state limit exceeded")

// Automaton is a nondeterministic finite automaton over runes, compiled from
// a regular expression. The expression is matched against the whole input:
// unanchored expressions are implicitly anchored at both ends.
type Automaton struct {
	expr   string
	prog   *syntax.Prog
	bounds []rune
}

// Compile parses expr with Perl syntax and builds its automaton.
func Compile(expr string) (*Automaton, error) {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	return &Automaton{
		expr:   expr,
		prog:   prog,
		bounds: boundaries(prog),
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Automaton {
	a, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the source expression.
func (a *Automaton) String() string {
	return a.expr
}

// Accepts reports whether the automaton accepts the whole of s.
func (a *Automaton) Accepts(s string) bool {
	set := newSet(a.prog.Start)
	start := true
	for _, r := range s {
		closed := a.closure(set, contextFlags(start, false))
		set = a.step(closed, r)
		if len(set) == 0 {
			return false
		}
		start = false
	}
	return a.accepting(set, start)
}

// Subset reports whether the language of a is contained in the language of b,
// exploring the product automaton for a string accepted by a and rejected by b.
func Subset(a, b *Automaton) (bool, error) {
	return SubsetLimit(a, b, DefaultStateLimit)
}

// SubsetLimit is Subset with an explicit bound on explored product states.
func SubsetLimit(a, b *Automaton, limit int) (bool, error) {
	alphabet := mergeBounds(a.bounds, b.bounds)

	type pair struct {
		left, right []uint32
		start       bool
	}

	queue := []pair{{left: newSet(a.prog.Start), right: newSet(b.prog.Start), start: true}}
	seen := map[string]struct{}{key(queue[0].left, queue[0].right, true): {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if a.accepting(cur.left, cur.start) && !b.accepting(cur.right, cur.start) {
			return false, nil
		}

		flags := contextFlags(cur.start, false)
		left := a.closure(cur.left, flags)
		right := b.closure(cur.right, flags)

		for _, r := range alphabet {
			nextLeft := a.step(left, r)
			if len(nextLeft) == 0 {
				continue
			}
			nextRight := b.step(right, r)
			k := key(nextLeft, nextRight, false)
			if _, ok := seen[k]; ok {
				continue
			}
			if len(seen) >= limit {
				return false, ErrStateLimit
			}
			seen[k] = struct{}{}
			queue = append(queue, pair{left: nextLeft, right: nextRight})
		}
	}
	return true, nil
}

// Equivalent reports whether a and b accept the same language.
func Equivalent(a, b *Automaton) (bool, error) {
	ab, err := Subset(a, b)
	if err != nil || !ab {
		return false, err
	}
	return Subset(b, a)
}

// contextFlags returns the empty-width assertions that hold at a position.
// Word boundaries are treated as always satisfiable.
func contextFlags(start, end bool) syntax.EmptyOp {
	flags := syntax.EmptyWordBoundary | syntax.EmptyNoWordBoundary
	if start {
		flags |= syntax.EmptyBeginText | syntax.EmptyBeginLine
	}
	if end {
		flags |= syntax.EmptyEndText | syntax.EmptyEndLine
	}
	return flags
}

func (a *Automaton) accepting(set []uint32, start bool) bool {
	for _, pc := range a.closure(set, contextFlags(start, true)) {
		if a.prog.Inst[pc].Op == syntax.InstMatch {
			return true
		}
	}
	return false
}

// closure follows every non-consuming instruction reachable from set and
// returns the sorted set of rune-consuming and match instructions.
func (a *Automaton) closure(set []uint32, flags syntax.EmptyOp) []uint32 {
	visited := make(map[uint32]bool, len(set)*2)
	stack := slices.Clone(set)
	var out []uint32

	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[pc] {
			continue
		}
		visited[pc] = true

		inst := &a.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			stack = append(stack, inst.Out, inst.Arg)
		case syntax.InstCapture, syntax.InstNop:
			stack = append(stack, inst.Out)
		case syntax.InstEmptyWidth:
			if syntax.EmptyOp(inst.Arg)&^flags == 0 {
				stack = append(stack, inst.Out)
			}
		case syntax.InstMatch, syntax.InstRune, syntax.InstRune1, syntax.InstRuneAny, syntax.InstRuneAnyNotNL:
			out = append(out, pc)
		}
	}
	slices.Sort(out)
	return out
}

func (a *Automaton) step(closed []uint32, r rune) []uint32 {
	var next []uint32
	for _, pc := range closed {
		inst := &a.prog.Inst[pc]
		if inst.Op == syntax.InstMatch {
			continue
		}
		if matchRune(inst, r) {
			next = append(next, inst.Out)
		}
	}
	slices.Sort(next)
	return slices.Compact(next)
}

func matchRune(inst *syntax.Inst, r rune) bool {
	switch inst.Op {
	case syntax.InstRuneAny:
		return true
	case syntax.InstRuneAnyNotNL:
		return r != '\n'
	case syntax.InstRune1:
		return r == inst.Rune[0]
	default:
		return inst.MatchRune(r)
	}
}

func newSet(pc int) []uint32 {
	return []uint32{uint32(pc)}
}

func key(left, right []uint32, start bool) string {
	buf := make([]byte, 0, 4*(len(left)+len(right))+2)
	if start {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, pc := range left {
		buf = append(buf, byte(pc>>24), byte(pc>>16), byte(pc>>8), byte(pc))
	}
	buf = append(buf, 0xff, 0xff, 0xff, 0xff)
	for _, pc := range right {
		buf = append(buf, byte(pc>>24), byte(pc>>16), byte(pc>>8), byte(pc))
	}
	return string(buf)
}

// boundaries collects the points where the behaviour of at least one
// instruction of prog changes. Every rune in [b[i], b[i+1]) is matched by
// exactly the same instructions, so b[i] represents its whole interval.
func boundaries(prog *syntax.Prog) []rune {
	points := []rune{0, '\n', '\n' + 1}
	for i := range prog.Inst {
		inst := &prog.Inst[i]
		switch inst.Op {
		case syntax.InstRune1:
			points = append(points, inst.Rune[0], inst.Rune[0]+1)
		case syntax.InstRune:
			if len(inst.Rune) == 1 {
				r := inst.Rune[0]
				points = append(points, r, r+1)
				if syntax.Flags(inst.Arg)&syntax.FoldCase != 0 {
					for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
						points = append(points, f, f+1)
					}
				}
				continue
			}
			for j := 0; j+1 < len(inst.Rune); j += 2 {
				points = append(points, inst.Rune[j], inst.Rune[j+1]+1)
			}
		}
	}
	return normalize(points)
}

func mergeBounds(a, b []rune) []rune {
	return normalize(append(slices.Clone(a), b...))
}

func normalize(points []rune) []rune {
	out := points[:0]
	for _, p := range points {
		if p >= 0 && p <= unicode.MaxRune {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
