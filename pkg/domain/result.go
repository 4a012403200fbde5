package domain

import "time"

// Outcome is the record of one keyword occurrence handed to reporters.
type Outcome struct {
	RunID    string        `json:"run_id,omitempty"`
	Scenario string        `json:"scenario"`
	Location string        `json:"location"`
	Keyword  string        `json:"keyword"`
	Route    string        `json:"route,omitempty"`
	Group    string        `json:"group,omitempty"`
	Severity Severity      `json:"severity"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// ScenarioResult aggregates the outcomes of one scenario.
type ScenarioResult struct {
	Name     string    `json:"name"`
	File     string    `json:"file,omitempty"`
	Status   Status    `json:"status"`
	Outcomes []Outcome `json:"outcomes"`
	Error    string    `json:"error,omitempty"`
}

// Counts returns how many outcomes ended in each status.
func (s ScenarioResult) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, o := range s.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// RunResult aggregates a whole run.
type RunResult struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Aborted   bool             `json:"aborted"`
	Error     string           `json:"error,omitempty"`
}

// Passed reports whether the run finished without aborting and with every scenario succeeded.
func (r *RunResult) Passed() bool {
	if r.Aborted {
		return false
	}
	for _, s := range r.Scenarios {
		if s.Status == StatusFailed {
			return false
		}
	}
	return true
}

// Counts sums the outcome counts of every scenario.
func (r *RunResult) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, s := range r.Scenarios {
		for st, n := range s.Counts() {
			counts[st] += n
		}
	}
	return counts
}
