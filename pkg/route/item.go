package route

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidToken is returned when a route token cannot be compiled.
var ErrInvalidToken = errors.New("invalid route token")

// MaxOccupiedCells bounds the cell count of a parameter token.
const MaxOccupiedCells = 1000

// anyCell is the content pattern of a parameter declared without one.
// It accepts any text that does not cross a cell boundary.
const anyCell = `[^\t]*`

// paramToken matches "[name](contentPattern){cellCount}".
var paramToken = regexp.MustCompile(`^\[([^\[\]]+)\](?:\((.*)\))?(?:\{(\d+)\})?$`)

// Item is one token of a route: a literal constant or a named parameter.
// Items are immutable once parsed.
type Item struct {
	parameter bool
	name      string
	text      string
	content   string
	occupied  int
	body      string
	literal   *regexp.Regexp
}

// ParseItem parses one route token. Parameters use the syntax
// "[name](contentPattern){cellCount}" where the pattern and the count are
// optional; any other token is a constant.
func ParseItem(token string, cfg Config) (*Item, error) {
	if m := paramToken.FindStringSubmatch(token); m != nil {
		return parseParameter(token, m, cfg)
	}
	return parseConstant(token, cfg)
}

// ParseTokens parses a route declaration, dropping empty tokens.
func ParseTokens(tokens []string, cfg Config) ([]*Item, error) {
	items := make([]*Item, 0, len(tokens))
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		item, err := ParseItem(tok, cfg)
		if err != nil {
			return nil, err
		}
		if item.parameter {
			if seen[item.name] {
				return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidToken, item.name)
			}
			seen[item.name] = true
		}
		items = append(items, item)
	}
	return items, nil
}

func parseParameter(token string, m []string, cfg Config) (*Item, error) {
	name := strings.TrimSpace(m[1])
	if name == "" {
		return nil, fmt.Errorf("%w: empty parameter name in %q", ErrInvalidToken, token)
	}

	content := anyCell
	if m[2] != "" {
		stripped, err := nonCapturing(m[2])
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", ErrInvalidToken, name, err)
		}
		content = stripped
	}

	occupied := 1
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil || n > MaxOccupiedCells {
			return nil, fmt.Errorf("%w: parameter %q: bad cell count %q", ErrInvalidToken, name, m[3])
		}
		occupied = n
	}

	return &Item{
		parameter: true,
		name:      name,
		text:      token,
		content:   content,
		occupied:  occupied,
		body:      repeatCells(content, occupied, cfg.Delimiter),
	}, nil
}

func parseConstant(token string, cfg Config) (*Item, error) {
	body := regexp.QuoteMeta(token)
	if !cfg.EscapeConstants {
		stripped, err := nonCapturing(token)
		if err != nil {
			return nil, fmt.Errorf("%w: constant %q: %v", ErrInvalidToken, token, err)
		}
		body = stripped
	}

	literal, err := regexp.Compile(`^(?:` + body + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: constant %q: %v", ErrInvalidToken, token, err)
	}

	return &Item{
		name:    token,
		text:    token,
		body:    body,
		literal: literal,
	}, nil
}

// repeatCells builds the pattern for a parameter spanning up to n cells,
// or any number of cells when n is zero. Every cell must satisfy content.
func repeatCells(content string, n int, mode DelimiterMode) string {
	cell := `(?:` + content + `)`
	switch {
	case n == 1:
		return cell
	case n == 0:
		return cell + `(?:` + mode.Pattern() + cell + `)*`
	default:
		return cell + `(?:` + mode.Pattern() + cell + `){0,` + strconv.Itoa(n-1) + `}`
	}
}

// nonCapturing rewrites every capture group of expr as a plain group so that
// the group count of a compiled route stays equal to its item count. Wildcards
// and character classes are narrowed to exclude the tab, so a pattern stays
// inside one cell like the default content does.
func nonCapturing(expr string) (string, error) {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return "", err
	}
	return stripCaptures(re).String(), nil
}

func stripCaptures(re *syntax.Regexp) *syntax.Regexp {
	for re.Op == syntax.OpCapture {
		re = re.Sub[0]
	}
	switch re.Op {
	case syntax.OpAnyCharNotNL:
		re.Op = syntax.OpCharClass
		re.Rune = []rune{0, '\t' - 1, '\n' + 1, unicode.MaxRune}
	case syntax.OpAnyChar:
		re.Op = syntax.OpCharClass
		re.Rune = []rune{0, '\t' - 1, '\t' + 1, unicode.MaxRune}
	case syntax.OpCharClass:
		re.Rune = withoutRune(re.Rune, '\t')
	}
	for i, sub := range re.Sub {
		re.Sub[i] = stripCaptures(sub)
	}
	return re
}

// withoutRune removes r from a sorted list of rune ranges.
func withoutRune(ranges []rune, r rune) []rune {
	out := make([]rune, 0, len(ranges)+2)
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if r < lo || r > hi {
			out = append(out, lo, hi)
			continue
		}
		if lo < r {
			out = append(out, lo, r-1)
		}
		if r < hi {
			out = append(out, r+1, hi)
		}
	}
	return out
}

// IsParameter reports whether the item is a named parameter.
func (i *Item) IsParameter() bool {
	return i.parameter
}

// Name returns the parameter name, or the literal text of a constant.
func (i *Item) Name() string {
	return i.name
}

// Token returns the declaration token the item was parsed from.
func (i *Item) Token() string {
	return i.text
}

// ContentPattern returns the per-cell content pattern of a parameter.
func (i *Item) ContentPattern() string {
	return i.content
}

// HasDefaultContent reports whether the parameter was declared without a content pattern.
func (i *Item) HasDefaultContent() bool {
	return i.parameter && i.content == anyCell
}

// OccupiedCells returns how many cells a parameter consumes; zero means all remaining cells.
func (i *Item) OccupiedCells() int {
	return i.occupied
}

// Pattern returns the regular expression matched by the item, without delimiters or groups.
func (i *Item) Pattern() string {
	return i.body
}

// MatchesLiteral reports whether cell is matched by a constant item.
// It is always false for parameters.
func (i *Item) MatchesLiteral(cell string) bool {
	if i.parameter {
		return false
	}
	return i.literal.MatchString(cell)
}

func (i *Item) String() string {
	return i.text
}
