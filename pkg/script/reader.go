// Package script reads keyword scripts.
//
// A script is UTF-8 text with one keyword occurrence per line and cells
// separated by tabs. Blank lines are ignored and lines whose first cell
// starts with '#' are comments. A line "*** <name>" starts a new scenario;
// lines before the first header belong to the scenario "main". A trailing
// cell "@severity=<level>" sets the validation level of the occurrence.
package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stanza/pkg/domain"
)

// DefaultScenario names the scenario of lines preceding any header.
const DefaultScenario = "main"

const (
	headerPrefix   = "***"
	severityPrefix = "@severity="
	maxLineSize    = 1 << 20
)

// Reader implements ports.ScriptReader for tab-delimited text scripts.
type Reader struct{}

// NewReader creates a script reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read parses a script. Scenarios without keywords are dropped.
func (Reader) Read(name string, r io.Reader) ([]*domain.Scenario, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	current := &domain.Scenario{Name: DefaultScenario, File: name}
	scenarios := []*domain.Scenario{current}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, headerPrefix) {
			title := strings.TrimSpace(strings.Trim(line, "*"))
			if title == "" {
				return nil, fmt.Errorf("%s:%d: scenario header without a name", name, lineNo)
			}
			current = &domain.Scenario{Name: title, File: name}
			scenarios = append(scenarios, current)
			continue
		}

		kw, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
		if kw == nil {
			continue
		}
		kw.Scenario = current.Name
		kw.File = name
		kw.Line = lineNo
		current.Keywords = append(current.Keywords, kw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out := scenarios[:0]
	for _, s := range scenarios {
		if len(s.Keywords) > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

// ParseLine turns one script line into a keyword occurrence. It returns nil
// for blank and comment lines. Scenario headers are not recognized.
func ParseLine(line string) (*domain.Keyword, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	cells := strings.Split(line, domain.CellDelimiter)
	if strings.HasPrefix(strings.TrimSpace(cells[0]), "#") {
		return nil, nil
	}
	cells = trimTrailing(cells)

	severity := domain.SeverityMajor
	if last := cells[len(cells)-1]; strings.HasPrefix(last, severityPrefix) {
		sev, err := domain.ParseSeverity(strings.TrimPrefix(last, severityPrefix))
		if err != nil {
			return nil, err
		}
		severity = sev
		cells = trimTrailing(cells[:len(cells)-1])
	}
	if len(cells) == 0 || (len(cells) == 1 && cells[0] == "") {
		return nil, nil
	}

	kw := domain.NewKeyword(cells...)
	kw.Severity = severity
	return kw, nil
}

// ReadFile parses the script at path.
func (r Reader) ReadFile(path string) ([]*domain.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.Read(filepath.Base(path), f)
}

func trimTrailing(cells []string) []string {
	for len(cells) > 1 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
