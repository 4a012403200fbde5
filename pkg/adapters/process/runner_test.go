package process

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	runner := NewRunner(WithTools([]ProcessConfig{
		{Name: "greet", Command: "sh", Args: []string{"-c", "echo hello $STANZA_ARG_1"}},
		{Name: "env", Command: "sh", Args: []string{"-c", "echo $GREETING"}, Environment: map[string]string{"GREETING": "hi"}},
		{Name: "broken", Command: "sh", Args: []string{"-c", "echo bad >&2; exit 3"}},
	}))

	t.Run("Executes Registered Command", func(t *testing.T) {
		out, err := runner.Execute(context.Background(), "greet", []string{"world"})
		require.NoError(t, err)
		assert.Equal(t, "hello world", out)
	})

	t.Run("Arguments Are Not Flags", func(t *testing.T) {
		out, err := runner.Execute(context.Background(), "greet", []string{"; rm -rf /"})
		require.NoError(t, err)
		assert.Equal(t, "hello ; rm -rf /", out)
	})

	t.Run("Tool Environment", func(t *testing.T) {
		out, err := runner.Execute(context.Background(), "env", nil)
		require.NoError(t, err)
		assert.Equal(t, "hi", out)
	})

	t.Run("Failure Includes Stderr", func(t *testing.T) {
		_, err := runner.Execute(context.Background(), "broken", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad")
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Execute(context.Background(), "hacker_script", nil)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	assert.Equal(t, []string{"broken", "env", "greet"}, runner.Tools())
}
