package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// ErrNotRegistered is returned for commands missing from the allow-list.
var ErrNotRegistered = errors.New("process not registered")

// EnvPrefix prefixes the environment variables carrying keyword arguments.
const EnvPrefix = "STANZA_ARG_"

// Runner executes allow-listed local processes for the Run keyword.
// Keyword arguments never reach the command line: they are passed as
// environment variables STANZA_ARG_1..n and STANZA_ARGS, so a script cannot
// inject flags into a registered command.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithTools populates the allow-list from configuration.
func WithTools(tools []ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for _, tool := range tools {
			if tool.Name == "" {
				continue
			}
			r.registry[tool.Name] = tool
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ProcessConfig{
		Name:    name,
		Command: command,
		Args:    args,
	}
}

// Tools returns the registered tool names, sorted.
func (r *Runner) Tools() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named tool and returns its trimmed standard output.
func (r *Runner) Execute(ctx context.Context, name string, args []string) (string, error) {
	proc, ok := r.registry[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir

	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	for i, a := range args {
		env = append(env, EnvPrefix+strconv.Itoa(i+1)+"="+a)
	}
	env = append(env, "STANZA_ARGS="+strings.Join(args, "\t"))
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("process %s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
