package gpg

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PassphraseSource supplies the signing passphrase. It is an explicit
// dependency so headless runs and tests never touch a terminal.
type PassphraseSource interface {
	Passphrase() (string, error)
}

// Static wraps a passphrase already supplied (e.g. via a flag).
type Static string

func (s Static) Passphrase() (string, error) {
	return string(s), nil
}

// TerminalPrompt reads the passphrase from the controlling terminal with
// echo disabled.
type TerminalPrompt struct {
	Prompt string
}

func (p *TerminalPrompt) Passphrase() (string, error) {
	prompt := p.Prompt
	if prompt == "" {
		prompt = "GPG passphrase: "
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal — pass the passphrase explicitly")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(secret), nil
}
