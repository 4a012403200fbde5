package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/stanza/pkg/adapters/process"
	"github.com/aretw0/stanza/pkg/domain"
)

var (
	// ErrAssertion is returned by failed Assert keywords.
	ErrAssertion = errors.New("assertion failed")
	// ErrFailed is returned by the Fail keyword.
	ErrFailed = errors.New("failed")
	// ErrNoScope is returned when a keyword needs variables outside a scenario.
	ErrNoScope = errors.New("no variable scope")
)

// ResultVariable receives the output of the Run keyword.
const ResultVariable = "result"

// Print writes its message to Out.
type Print struct {
	Out io.Writer
}

type messageArgs struct {
	Message []string `mapstructure:"message"`
}

func (p *Print) NewArgs() any { return &messageArgs{} }

func (p *Print) Invoke(ctx context.Context, args any) (any, error) {
	msg := strings.Join(args.(*messageArgs).Message, " ")
	if _, err := fmt.Fprintln(p.Out, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Comment does nothing.
type Comment struct{}

func (Comment) Invoke(context.Context, any) (any, error) { return nil, nil }

// Set assigns a scenario variable.
type Set struct{}

type setArgs struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

func (Set) NewArgs() any { return &setArgs{} }

func (Set) Invoke(ctx context.Context, args any) (any, error) {
	a := args.(*setArgs)
	vars := domain.VariablesFrom(ctx)
	if vars == nil {
		return nil, ErrNoScope
	}
	vars[a.Name] = a.Value
	return a.Value, nil
}

type compareArgs struct {
	Actual   string `mapstructure:"actual"`
	Expected string `mapstructure:"expected"`
	Pattern  string `mapstructure:"pattern"`
}

// AssertEquals fails unless actual and expected are equal.
type AssertEquals struct{}

func (AssertEquals) NewArgs() any { return &compareArgs{} }

func (AssertEquals) Invoke(ctx context.Context, args any) (any, error) {
	a := args.(*compareArgs)
	if a.Actual != a.Expected {
		return nil, fmt.Errorf("%w: %q does not equal %q", ErrAssertion, a.Actual, a.Expected)
	}
	return nil, nil
}

// AssertContains fails unless actual contains expected.
type AssertContains struct{}

func (AssertContains) NewArgs() any { return &compareArgs{} }

func (AssertContains) Invoke(ctx context.Context, args any) (any, error) {
	a := args.(*compareArgs)
	if !strings.Contains(a.Actual, a.Expected) {
		return nil, fmt.Errorf("%w: %q does not contain %q", ErrAssertion, a.Actual, a.Expected)
	}
	return nil, nil
}

// AssertMatches fails unless actual matches the regular expression pattern.
type AssertMatches struct{}

func (AssertMatches) NewArgs() any { return &compareArgs{} }

func (AssertMatches) Invoke(ctx context.Context, args any) (any, error) {
	a := args.(*compareArgs)
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", a.Pattern, err)
	}
	if !re.MatchString(a.Actual) {
		return nil, fmt.Errorf("%w: %q does not match %q", ErrAssertion, a.Actual, a.Pattern)
	}
	return nil, nil
}

// Sleep pauses until the duration elapses or ctx is done.
type Sleep struct{}

type sleepArgs struct {
	Duration time.Duration `mapstructure:"duration"`
}

func (Sleep) NewArgs() any { return &sleepArgs{} }

func (Sleep) Invoke(ctx context.Context, args any) (any, error) {
	timer := time.NewTimer(args.(*sleepArgs).Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

// Fail always fails with its message.
type Fail struct{}

func (Fail) NewArgs() any { return &messageArgs{} }

func (Fail) Invoke(ctx context.Context, args any) (any, error) {
	msg := strings.Join(args.(*messageArgs).Message, " ")
	if msg == "" {
		return nil, ErrFailed
	}
	return nil, fmt.Errorf("%w: %s", ErrFailed, msg)
}

// Run executes an allow-listed tool and stores its output in the
// ResultVariable of the scenario scope.
type Run struct {
	Tools *process.Runner
}

type runArgs struct {
	Tool string   `mapstructure:"tool"`
	Args []string `mapstructure:"args"`
}

func (r *Run) NewArgs() any { return &runArgs{} }

func (r *Run) Invoke(ctx context.Context, args any) (any, error) {
	a := args.(*runArgs)
	out, err := r.Tools.Execute(ctx, a.Tool, a.Args)
	if err != nil {
		return nil, err
	}
	if vars := domain.VariablesFrom(ctx); vars != nil {
		vars[ResultVariable] = out
	}
	return out, nil
}
