package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestExecRunnerOutput(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Output(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("Output = %q, want hello", out)
	}
}

func TestExecRunnerRunStreams(t *testing.T) {
	var buf bytes.Buffer
	r := &ExecRunner{Stdout: &buf, Stderr: &buf}
	if err := r.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo streamed"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), "streamed") {
		t.Errorf("stdout not streamed: %q", buf.String())
	}
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	var buf bytes.Buffer
	r := &ExecRunner{Stdout: &buf, Stderr: &buf}
	err := r.Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "exit 3"}})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}

func TestExecRunnerStdin(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Output(context.Background(), Cmd{
		Name:  "cat",
		Stdin: strings.NewReader("piped\n"),
	})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if out != "piped\n" {
		t.Errorf("stdin not forwarded: %q", out)
	}
}

func TestExecRunnerDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	r := &ExecRunner{}
	out, err := r.Output(context.Background(), Cmd{
		Name: "sh",
		Args: []string{"-c", "pwd && echo $RELFORGE_TEST_VAR"},
		Dir:  dir,
		Env:  map[string]string{"RELFORGE_TEST_VAR": "set"},
	})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.HasSuffix(lines[0], strings.TrimPrefix(dir, "/private")) && lines[0] != dir {
		// macOS tempdirs resolve under /private.
		t.Errorf("working dir = %q, want %q", lines[0], dir)
	}
	if lines[1] != "set" {
		t.Errorf("env var = %q, want set", lines[1])
	}
}

func TestCmdString(t *testing.T) {
	c := Cmd{Name: "git", Args: []string{"add", "path"}}
	if got := c.String(); got != "git add path" {
		t.Errorf("String() = %q", got)
	}
}
