// Package pipeline orchestrates the release stages: it resolves which
// stages run for a request, enforces their order and data dependencies,
// fans each stage out across the enabled targets, and aggregates failures.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bianoble/relforge/internal/artifact"
	"github.com/bianoble/relforge/internal/builder"
	"github.com/bianoble/relforge/internal/config"
	"github.com/bianoble/relforge/internal/gpg"
	"github.com/bianoble/relforge/internal/ledger"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/internal/shell"
)

// LedgerClient is the signature ledger seam.
type LedgerClient interface {
	Pull(ctx context.Context) error
	Commit(version string, entries []ledger.Entry, message string) (string, error)
}

// DetachedSigs is the detached-signatures repository seam.
type DetachedSigs interface {
	ResetBranch(version string) error
	ClearWorktree() error
	ImportArchive(ctx context.Context, archive string) error
	AddAll() error
	Commit(message string) (string, error)
	SignedTag(ctx context.Context, name, message string) error
	Push(ctx context.Context, tag string) error
}

// CredentialStager stages the signing credential for unattended use.
type CredentialStager interface {
	Stage(ctx context.Context, signer, passphrase string) (*gpg.Session, error)
}

// Pipeline wires the stage executors to their collaborators. Every
// external system sits behind an interface so the control logic tests
// against fakes.
type Pipeline struct {
	Config  *config.Config
	Workdir string

	Builder    builder.Invoker
	Ledger     LedgerClient
	Sigs       DetachedSigs
	Creds      CredentialStager
	Passphrase gpg.PassphraseSource
	Run        shell.Runner
	Resolver   *artifact.Resolver

	// Out receives progress lines. Nil discards them.
	Out io.Writer

	// Clone, Fetch, and Refresh back the git and download plumbing; nil
	// selects the real implementations.
	Clone   func(ctx context.Context, url, dir string) error
	Fetch   func(ctx context.Context, url, dest, sha256 string) error
	Refresh func(ctx context.Context, dir string) error

	// DockerServiceFile marks a host-managed docker install. Empty selects
	// the systemd default.
	DockerServiceFile string

	// Setenv and LookupEnv default to the os package; tests override them.
	Setenv    func(key, value string) error
	LookupEnv func(key string) (string, bool)

	// passphrase is sourced at most once per process and held only in
	// memory.
	passphrase    string
	havePassphrase bool
}

// Execute runs the requested stages in their fixed order: environment
// normalization, pull-request resolution, build, codesign, sign, verify,
// package. A stage's fatal failure stops the run; later stages never see
// a failed predecessor's half-state.
func (p *Pipeline) Execute(ctx context.Context, req *request.Release) error {
	if err := p.normalizeEnv(req); err != nil {
		return err
	}

	if req.Stages.Setup {
		if err := p.Setup(ctx, req); err != nil {
			return err
		}
	}

	if req.Stages.NeedsSigning() {
		if err := p.acquirePassphrase(); err != nil {
			return err
		}
	}

	if !req.Stages.Any() {
		return nil
	}

	if req.IsPullRequest {
		sourceDir := filepath.Join(p.inputsDir(), p.Config.Project)
		head, err := ledger.ResolvePullHead(ctx, sourceDir, req.RepositoryURL, req.Version)
		if err != nil {
			return err
		}
		if err := req.ResolvePullRequest(head); err != nil {
			return err
		}
	}

	p.printf("commit: %s\n", req.CommitRef)
	p.printf("version: %s\n", req.Version)

	// Refresh the toolchain before any stage that invokes it.
	if req.Stages.Build || req.Stages.Sign || req.Stages.Codesign {
		refresh := p.Refresh
		if refresh == nil {
			refresh = ledger.PullTree
		}
		if err := refresh(ctx, p.builderDir()); err != nil {
			return fmt.Errorf("refreshing builder checkout: %w", err)
		}
	}

	if req.Stages.Build {
		if _, err := p.Build(ctx, req); err != nil {
			return err
		}
	}
	if req.Stages.Codesign {
		if err := p.Codesign(ctx, req); err != nil {
			return err
		}
	}
	if req.Stages.Sign {
		if _, err := p.Sign(ctx, req); err != nil {
			return err
		}
	}
	if req.Stages.Verify {
		result, err := p.Verify(ctx, req)
		if err != nil {
			return err
		}
		if !result.OK() {
			return fmt.Errorf("verification failed")
		}
	}
	if req.Stages.Package {
		if err := p.Package(ctx, req); err != nil {
			return err
		}
	}

	p.printf("\nDONE\n")
	return nil
}

// normalizeEnv writes the mutually exclusive isolation indicators into the
// process environment — all three every time, so a stale export cannot
// shadow the chosen mode.
func (p *Pipeline) normalizeEnv(req *request.Release) error {
	lookup := p.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	setenv := p.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}

	env := request.IsolationEnv(req.Isolation, lookup)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := setenv(k, env[k]); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}

// acquirePassphrase sources the signing passphrase exactly once.
func (p *Pipeline) acquirePassphrase() error {
	if p.havePassphrase {
		return nil
	}
	if p.Passphrase == nil {
		return fmt.Errorf("no passphrase source configured")
	}
	secret, err := p.Passphrase.Passphrase()
	if err != nil {
		return err
	}
	p.passphrase = secret
	p.havePassphrase = true
	return nil
}

// stageCredentials re-stages the credential session. Each signing stage
// gets a fresh agent populated from the in-memory passphrase.
func (p *Pipeline) stageCredentials(ctx context.Context, signer string) error {
	if err := p.acquirePassphrase(); err != nil {
		return err
	}
	if _, err := p.Creds.Stage(ctx, signer, p.passphrase); err != nil {
		return fmt.Errorf("staging credentials for %s: %w", signer, err)
	}
	return nil
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

func (p *Pipeline) builderDir() string {
	return filepath.Join(p.Workdir, p.Config.Builder.Dir)
}

func (p *Pipeline) outDir() string {
	return filepath.Join(p.builderDir(), "build", "out")
}

func (p *Pipeline) inputsDir() string {
	return filepath.Join(p.builderDir(), "inputs")
}

func (p *Pipeline) ledgerDir() string {
	return filepath.Join(p.Workdir, p.Config.Ledger.Dir)
}

func (p *Pipeline) releaseDir(version string) string {
	return filepath.Join(p.Workdir, p.Config.ReleasesDir, version)
}

func (p *Pipeline) signingDir(version string) string {
	return filepath.Join(p.Workdir, "signing", version)
}

// dests binds the artifact table's destination kinds to real directories.
func (p *Pipeline) dests(version string) map[artifact.DestKind]string {
	return map[artifact.DestKind]string{
		artifact.DestRelease: p.releaseDir(version),
		artifact.DestInputs:  p.inputsDir(),
	}
}

// descriptor returns the builder descriptor file for a target, either the
// build descriptor or the signature-apply one.
func (p *Pipeline) descriptor(target request.Target, signerPhase bool) string {
	d := p.Config.Descriptors
	switch target {
	case request.TargetLinux:
		return d.Linux
	case request.TargetWindows:
		if signerPhase {
			return d.WindowsSigner
		}
		return d.Windows
	case request.TargetMacOS:
		if signerPhase {
			return d.MacOSSigner
		}
		return d.MacOS
	}
	return ""
}

// buildPhase is the unsigned attestation phase label for a target.
func buildPhase(target request.Target) string {
	switch target {
	case request.TargetLinux:
		return "linux"
	case request.TargetWindows:
		return "win-unsigned"
	case request.TargetMacOS:
		return "osx-unsigned"
	}
	return ""
}

// signPhase is the signed attestation phase label for a target.
func signPhase(target request.Target) string {
	switch target {
	case request.TargetWindows:
		return "win-signed"
	case request.TargetMacOS:
		return "osx-signed"
	}
	return ""
}
