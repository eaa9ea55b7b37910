// Package builder adapts the deterministic build toolchain (gbuild, gsign,
// gverify) behind narrow interfaces so the pipeline's control logic can be
// tested against fakes.
package builder

import (
	"context"
	"strconv"

	"github.com/bianoble/relforge/internal/shell"
)

// Binding is an ordered name=value pair passed to the builder
// (commit and repository-URL bindings).
type Binding struct {
	Name  string
	Value string
}

// BuildOptions configures one gbuild invocation. SkipImage and Upgrade
// select the signature-apply mode used by the sign stage, which reuses a
// previously built environment instead of constructing a new one.
type BuildOptions struct {
	Jobs       int
	MemoryMiB  int
	FetchTags  bool
	SkipImage  bool
	Upgrade    bool
	Commits    []Binding
	URLs       []Binding
	Descriptor string
}

// AttestOptions configures one gsign invocation, which records a signer's
// attestation of a build's outputs under Destination/<Release>/<Signer>/.
type AttestOptions struct {
	SignProgram string
	Signer      string
	Release     string
	Destination string
	Descriptor  string
}

// VerifyOptions configures one gverify invocation against the ledger.
type VerifyOptions struct {
	Destination string
	Release     string
	Descriptor  string
}

/// Invoker is the toolchain seam. Exit status is the only contract: a nil
// error means the tool exited zero.
type Invoker interface {
	Build(ctx context.Context, opts BuildOptions) error
	Attest(ctx context.Context, opts AttestOptions) error
	Verify(ctx context.Context, opts VerifyOptions) error
}

// CLI invokes the toolchain binaries from a builder checkout.
type CLI struct {
	Dir string // builder checkout; bin/ holds the tools
	Run shell.Runner
}

func (c *CLI) Build(ctx context.Context, opts BuildOptions) error {
	var args []string
	if opts.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(opts.Jobs))
	}
	if opts.MemoryMiB > 0 {
		args = append(args, "-m", strconv.Itoa(opts.MemoryMiB))
	}
	if opts.SkipImage {
		args = append(args, "--skip-image")
	}
	if opts.Upgrade {
		args = append(args, "--upgrade")
	}
	if opts.FetchTags {
		args = append(args, "--fetch-tags")
	}
	for _, b := range opts.Commits {
		args = append(args, "--commit", b.Name+"="+b.Value)
	}
	for _, b := range opts.URLs {
		args = append(args, "--url", b.Name+"="+b.Value)
	}
	args = append(args, opts.Descriptor)

	return c.Run.Run(ctx, shell.Cmd{Dir: c.Dir, Name: "bin/gbuild", Args: args})
}

func (c *CLI) Attest(ctx context.Context, opts AttestOptions) error {
	args := []string{
		"-p", opts.SignProgram,
		"--signer", opts.Signer,
		"--release", opts.Release,
		"--destination", opts.Destination,
		opts.Descriptor,
	}
	return c.Run.Run(ctx, shell.Cmd{Dir: c.Dir, Name: "bin/gsign", Args: args})
}

func (c *CLI) Verify(ctx context.Context, opts VerifyOptions) error {
	args := []string{
		"-v",
		"-d", opts.Destination,
		"-r", opts.Release,
		opts.Descriptor,
	}
	return c.Run.Run(ctx, shell.Cmd{Dir: c.Dir, Name: "bin/gverify", Args: args})
}
