package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/stanza/internal/dto"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutesMarkdown(t *testing.T) {
	md := RoutesMarkdown([]dto.RouteInfo{
		{Group: "ui", Route: "Click [locator](id=.*)", Rating: 1, Description: "a|b"},
		{Group: "ui", Route: "Tap [x]", Deprecated: true},
	})
	assert.Contains(t, md, "| ui | `Click [locator](id=.*)` | 1 | a\\|b |")
	assert.Contains(t, md, "(deprecated)")
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	require.NoError(t, p.Routes([]dto.RouteInfo{{Group: "g", Route: "Open [url]"}}))
	assert.Contains(t, buf.String(), "| g | `Open [url]` | 0 |")

	buf.Reset()
	require.NoError(t, p.Match(dto.MatchResult{
		Keyword:    []string{"Open", "x"},
		Status:     domain.StatusBound,
		Route:      &dto.RouteInfo{Group: "g", Route: "Open [url]", Pattern: "^(Open)(?:\t([^\t]*))?$"},
		Parameters: []dto.ParameterInfo{{Name: "url", Values: []string{"x"}}},
	}))
	assert.Contains(t, buf.String(), "✔ Open | x")
	assert.Contains(t, buf.String(), `url = "x"`)

	buf.Reset()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Summary(&domain.RunResult{
		ID:        "run-1",
		StartedAt: start,
		EndedAt:   start.Add(1500 * time.Millisecond),
		Scenarios: []domain.ScenarioResult{{
			Name:   "main",
			Status: domain.StatusFailed,
			Outcomes: []domain.Outcome{
				{Keyword: "Print | hi", Location: "a.stanza:1", Status: domain.StatusSucceeded},
				{Keyword: "Fail | boom", Location: "a.stanza:2", Status: domain.StatusFailed, Error: "boom"},
			},
		}},
	}))
	out := buf.String()
	assert.Contains(t, out, "✘ main")
	assert.Contains(t, out, "Fail | boom  a.stanza:2")
	assert.Contains(t, out, "FAILED run run-1: 1 succeeded, 1 failed, 0 skipped in 1.5s")
}
