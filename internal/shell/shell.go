// Package shell is the subprocess boundary: every external tool the
// pipeline drives (builder, gpg, codesign scripts, host package manager)
// goes through the Runner interface so stage logic can be tested against
// a recording fake.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Cmd describes a single external invocation.
type Cmd struct {
	Name  string
	Args  []string
	Dir   string            // working directory; empty = inherit
	Env   map[string]string // appended to the process environment
	Stdin io.Reader         // nil = no stdin
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes external commands.
//
// Run streams the tool's output through unmodified so failures surface the
// tool's own text; Output captures stdout for commands whose output is
// parsed.
type Runner interface {
	Run(ctx context.Context, c Cmd) error
	Output(ctx context.Context, c Cmd) (string, error)
}

// ExecRunner is the os/exec-backed Runner. The zero value streams to the
// process's stdout and stderr.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	cmd := r.build(ctx, c)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, c Cmd) (string, error) {
	cmd := r.build(ctx, c)
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.Name, err)
	}
	return string(out), nil
}

func (r *ExecRunner) build(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	if len(c.Env) > 0 {
		env := os.Environ()
		for k, v := range c.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	return cmd
}
