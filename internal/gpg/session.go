// Package gpg stages a signing credential into a running gpg-agent so the
// pipeline's unattended signing calls never prompt. The passphrase lives
// only in memory and is only ever piped to the agent's preset-passphrase
// helper — it is never logged and never written to disk.
package gpg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/relforge/internal/shell"
)

// DefaultPresetHelper is where gnupg installs the preset-passphrase binary
// on Debian-like systems.
const DefaultPresetHelper = "/usr/lib/gnupg/gpg-preset-passphrase"

// Session records a staged credential: the signer identity and the subkeys
// (keygrips) whose passphrase the agent now holds. It is process-scoped
// and never persisted.
type Session struct {
	Signer   string
	Keygrips []string
}

// SessionManager restarts the user's gpg-agent with preset capability and
// submits the passphrase for every subkey of a signer.
type SessionManager struct {
	Run shell.Runner

	// PresetHelper overrides the preset-passphrase binary path.
	PresetHelper string

	// RuntimeDir, when set, is swept for stale agent sockets between the
	// kill and the restart. Removal failures are reported on Out, not
	// fatal — a stale socket usually just delays the fresh agent.
	RuntimeDir string

	// Out receives non-fatal diagnostics. Nil discards them.
	Out io.Writer
}

// Stage tears down any existing agent, starts a fresh one with unattended
// preset enabled, and presets the passphrase for every keygrip belonging
// to signer. Any keygrip that cannot be preset makes the session unusable,
// so the first preset failure is fatal.
func (m *SessionManager) Stage(ctx context.Context, signer, passphrase string) (*Session, error) {
	// A dying agent is the goal here; absence is not an error.
	_ = m.Run.Run(ctx, shell.Cmd{Name: "gpgconf", Args: []string{"--kill", "gpg-agent"}})

	m.sweepStaleSockets()

	err := m.Run.Run(ctx, shell.Cmd{
		Name: "gpg-agent",
		Args: []string{"--daemon", "--allow-preset-passphrase"},
	})
	if err != nil {
		return nil, fmt.Errorf("starting gpg-agent: %w", err)
	}

	keygrips, err := m.listKeygrips(ctx, signer)
	if err != nil {
		return nil, err
	}
	if len(keygrips) == 0 {
		return nil, fmt.Errorf("no keygrips found for signer %s", signer)
	}

	helper := m.PresetHelper
	if helper == "" {
		helper = DefaultPresetHelper
	}

	for _, keygrip := range keygrips {
		err := m.Run.Run(ctx, shell.Cmd{
			Name:  helper,
			Args:  []string{"--preset", keygrip},
			Stdin: strings.NewReader(passphrase + "\n"),
		})
		if err != nil {
			return nil, fmt.Errorf("presetting passphrase for keygrip %s: %w", keygrip, err)
		}
	}

	return &Session{Signer: signer, Keygrips: keygrips}, nil
}

func (m *SessionManager) listKeygrips(ctx context.Context, signer string) ([]string, error) {
	out, err := m.Run.Output(ctx, shell.Cmd{
		Name: "gpg",
		Args: []string{"--fingerprint", "--with-keygrip", signer},
	})
	if err != nil {
		return nil, fmt.Errorf("listing keygrips for %s: %w", signer, err)
	}
	return ParseKeygrips(out), nil
}

// sweepStaleSockets removes leftover agent sockets that can outlive a
// killed agent and block the restart.
func (m *SessionManager) sweepStaleSockets() {
	if m.RuntimeDir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(m.RuntimeDir, "*gpg-agent*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && m.Out != nil {
			fmt.Fprintf(m.Out, "error clearing stale agent socket %s: %v\n", path, err)
		}
	}
}

// DefaultRuntimeDir returns the gnupg runtime directory for the current
// user if it exists, or "" when there is nothing to sweep.
func DefaultRuntimeDir() string {
	dir := fmt.Sprintf("/run/user/%d/gnupg", os.Getuid())
	if _, err := os.Stat(dir); err != nil {
		return ""
	}
	return dir
}

// ParseKeygrips extracts keygrip values from gpg --with-keygrip output.
// Lines look like "      Keygrip = 1531C8084D16DC4C36911D1585B28CB8C03B7B66".
func ParseKeygrips(output string) []string {
	var grips []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[0] == "Keygrip" && fields[1] == "=" {
			grips = append(grips, fields[2])
		}
	}
	return grips
}
