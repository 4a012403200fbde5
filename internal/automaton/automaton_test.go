package automaton_test

import (
	"testing"

	"github.com/aretw0/stanza/internal/automaton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomaton_Accepts(t *testing.T) {
	a := automaton.MustCompile(`^(Click)(?:\t(\d+))?$`)

	assert.True(t, a.Accepts("Click"))
	assert.True(t, a.Accepts("Click\t42"))
	assert.False(t, a.Accepts("Click\t"))
	assert.False(t, a.Accepts("Click\tabc"))
}

func TestAutomaton_AcceptsAgreesWithRegexp(t *testing.T) {
	tests := []struct {
		expr  string
		input string
		want  bool
	}{
		{`^(Open)(?:\t([^\t]*))?$`, "Open\thttp://x", true},
		{`^(Open)(?:\t([^\t]*))?$`, "Open\ta\tb", false},
		{`^(Open)(?:\t([^\t]*))?$`, "open", false},
		{`(?i)^open$`, "OPEN", true},
		{`^a.c$`, "a\nc", false},
		{`^a.c$`, "abc", true},
		{`^\pL+$`, "ÄÖü", true},
		{`^\pL+$`, "a1", false},
		{`^(id=.*)$`, "id=loginBtn", true},
		{`^x{2,3}$`, "xxxx", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr+"/"+tt.input, func(t *testing.T) {
			a, err := automaton.Compile(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Accepts(tt.input))
		})
	}
}

func TestSubset(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"digits within anything", `^(Click)(?:\t(\d+))?$`, `^(Click)(?:\t([^\t]*))?$`, true},
		{"anything not within digits", `^(Click)(?:\t([^\t]*))?$`, `^(Click)(?:\t(\d+))?$`, false},
		{"equal languages", `^(Foo)(?:\t([^\t]*))?$`, `^(Foo)(?:\t([^\t]*))?$`, true},
		{"different constants", `^(Open)$`, `^(Close)$`, false},
		{"one parameter within two", `^(Open)(?:\t([^\t]*))?$`, `^(Open)(?:\t([^\t]*))?(?:\t([^\t]*))?$`, true},
		{"two parameters not within one", `^(Open)(?:\t([^\t]*))?(?:\t([^\t]*))?$`, `^(Open)(?:\t([^\t]*))?$`, false},
		{"case folding", `^(open)$`, `(?i)^(OPEN)$`, true},
		{"case folding reversed", `(?i)^(OPEN)$`, `^(open)$`, false},
		{"prefix pattern", `^(Click)\t(id=[a-z]+)$`, `^(Click)\t(id=.*)$`, true},
		{"empty language", `^a[^\x00-\x{10FFFF}]$`, `^b$`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := automaton.Subset(automaton.MustCompile(tt.a), automaton.MustCompile(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEquivalent(t *testing.T) {
	eq, err := automaton.Equivalent(automaton.MustCompile(`^a(b|c)$`), automaton.MustCompile(`^a[bc]$`))
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = automaton.Equivalent(automaton.MustCompile(`^a+$`), automaton.MustCompile(`^a*$`))
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestSubsetLimit(t *testing.T) {
	a := automaton.MustCompile(`^[a-z]{0,30}$`)
	b := automaton.MustCompile(`^[a-y]*z?[a-z]*$`)

	_, err := automaton.SubsetLimit(a, b, 2)
	assert.ErrorIs(t, err, automaton.ErrStateLimit)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := automaton.Compile(`(`)
	assert.Error(t, err)
}
