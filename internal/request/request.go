// Package request defines the immutable description of a single release
// pipeline invocation: which version to build, for which targets, through
// which stages, under which isolation mode.
package request

import (
	"fmt"
	"strings"
)

// Isolation selects the environment the builder runs its guests in.
// The type makes the modes mutually exclusive by construction.
type Isolation string

const (
	IsolationLXC    Isolation = "lxc"
	IsolationKVM    Isolation = "kvm"
	IsolationDocker Isolation = "docker"
)

// Target is one of the three supported operating-system build outputs.
type Target string

const (
	TargetLinux   Target = "linux"
	TargetWindows Target = "windows"
	TargetMacOS   Target = "macos"
)

// Targets is the build target matrix, each target independently enabled.
type Targets struct {
	Linux   bool
	Windows bool
	MacOS   bool
}

// ParseTargets derives the target matrix from an OS selector string:
// 'l' enables linux, 'w' windows, 'm' macos. Unknown characters are an error.
func ParseTargets(selector string) (Targets, error) {
	var t Targets
	for _, c := range selector {
		switch c {
		case 'l':
			t.Linux = true
		case 'w':
			t.Windows = true
		case 'm':
			t.MacOS = true
		default:
			return Targets{}, fmt.Errorf("unknown OS selector %q — use l, w, m", string(c))
		}
	}
	return t, nil
}

// Enabled returns the enabled targets in the fixed build order
// (linux, windows, macos).
func (t Targets) Enabled() []Target {
	var out []Target
	if t.Linux {
		out = append(out, TargetLinux)
	}
	if t.Windows {
		out = append(out, TargetWindows)
	}
	if t.MacOS {
		out = append(out, TargetMacOS)
	}
	return out
}

// Has reports whether a target is enabled.
func (t Targets) Has(target Target) bool {
	switch target {
	case TargetLinux:
		return t.Linux
	case TargetWindows:
		return t.Windows
	case TargetMacOS:
		return t.MacOS
	}
	return false
}

// Stages is the set of requested pipeline stages. The sets are not
// mutually exclusive; a single run may execute several stages in order.
type Stages struct {
	Setup    bool
	Build    bool
	Sign     bool
	Codesign bool
	Verify   bool
	Package  bool
}

// Any reports whether at least one stage past host setup is requested.
func (s Stages) Any() bool {
	return s.Build || s.Sign || s.Codesign || s.Verify || s.Package
}

// NeedsSigning reports whether any requested stage invokes the signer and
// therefore needs a staged credential session.
func (s Stages) NeedsSigning() bool {
	return s.Build || s.Sign || s.Codesign || s.Package
}

// Options carries the raw CLI inputs used to construct a Release.
type Options struct {
	Signer        string
	Version       string
	IsCommitRef   bool // version is a commit or branch, not a tag name
	IsPullRequest bool // version is a pull request number
	RepositoryURL string
	OSSelector    string
	Stages        Stages
	CommitLedger  bool
	DetachSign    bool
	Jobs          int
	MemoryMiB     int
	Isolation     Isolation
}

// Release is the immutable request handed to every stage executor.
// CommitRef is computed exactly once, at construction; pull-request
// resolution is the only sanctioned later rewrite (ResolvePullRequest).
type Release struct {
	Version       string
	CommitRef     string
	IsCommitRef   bool
	IsPullRequest bool
	RepositoryURL string
	Targets       Targets
	Stages        Stages
	Signer        string

	// CommitLedger gates all ledger commits. When false, stages still
	// produce entries in the ledger working tree but never commit them.
	CommitLedger bool

	// DetachSign replaces the builder's signing program with a no-op so an
	// unsigned attestation manifest can be produced for later out-of-band
	// signing.
	DetachSign bool

	Jobs      int
	MemoryMiB int
	Isolation Isolation
}

// New validates the options and constructs a Release.
func New(opts Options) (*Release, error) {
	if opts.Signer == "" {
		return nil, fmt.Errorf("missing signer")
	}
	if opts.Version == "" {
		return nil, fmt.Errorf("missing version")
	}
	if opts.IsCommitRef && opts.IsPullRequest {
		return nil, fmt.Errorf("cannot have both commit and pull")
	}

	targets, err := ParseTargets(opts.OSSelector)
	if err != nil {
		return nil, err
	}

	switch opts.Isolation {
	case IsolationLXC, IsolationKVM, IsolationDocker:
	case "":
		opts.Isolation = IsolationLXC
	default:
		return nil, fmt.Errorf("unknown isolation mode %q", opts.Isolation)
	}

	// Tag names get a leading 'v' for the revision identifier; raw commit
	// or branch references are used verbatim.
	commitRef := opts.Version
	if !opts.IsCommitRef {
		commitRef = "v" + opts.Version
	}

	return &Release{
		Version:       opts.Version,
		CommitRef:     commitRef,
		IsCommitRef:   opts.IsCommitRef,
		IsPullRequest: opts.IsPullRequest,
		RepositoryURL: opts.RepositoryURL,
		Targets:       targets,
		Stages:        opts.Stages,
		Signer:        opts.Signer,
		CommitLedger:  opts.CommitLedger,
		DetachSign:    opts.DetachSign,
		Jobs:          opts.Jobs,
		MemoryMiB:     opts.MemoryMiB,
		Isolation:     opts.Isolation,
	}, nil
}

// ResolvePullRequest rewrites the request after the pull request's merge
// head has been fetched: CommitRef becomes the merge-head hash and Version
// becomes "pull-<n>". Must run before any stage consumes CommitRef.
func (r *Release) ResolvePullRequest(mergeHead string) error {
	if !r.IsPullRequest {
		return fmt.Errorf("version %q is not a pull request number", r.Version)
	}
	if mergeHead == "" {
		return fmt.Errorf("empty merge head for pull request %s", r.Version)
	}
	r.CommitRef = mergeHead
	r.Version = "pull-" + r.Version
	r.IsPullRequest = false
	return nil
}

// SignProgram returns the signing program the builder's attestation call
// should use: a real detached-signature command, or a no-op when the run
// only produces an unsigned manifest.
func (r *Release) SignProgram() string {
	if r.DetachSign {
		return "true"
	}
	return "gpg --batch --yes --detach-sign"
}

// String summarizes the request for progress output.
func (r *Release) String() string {
	var names []string
	for _, t := range r.Targets.Enabled() {
		names = append(names, string(t))
	}
	return fmt.Sprintf("%s (%s) for %s", r.Version, r.CommitRef, strings.Join(names, ", "))
}
