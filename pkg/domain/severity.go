package domain

import (
	"fmt"
	"strings"
)

// Severity is the validation level declared by a keyword occurrence. An
// invocation failure aborts the scenario when the occurrence severity reaches
// the configured threshold.
type Severity int

const (
	SeverityTrivial Severity = iota + 1
	SeverityMinor
	SeverityMajor
	SeverityCritical
	SeverityBlocker
)

var severityNames = map[Severity]string{
	SeverityTrivial:  "trivial",
	SeverityMinor:    "minor",
	SeverityMajor:    "major",
	SeverityCritical: "critical",
	SeverityBlocker:  "blocker",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for sev, name := range severityNames {
		if name == want {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}
