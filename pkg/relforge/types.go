// Package relforge holds the public result types produced by the release
// pipeline, for embedding the pipeline in other Go programs and for the
// CLI's reporting.
package relforge

// TargetFailure records one target whose build or sign sequence failed.
// The run continues to the remaining targets; the failures accumulate.
type TargetFailure struct {
	Target string
	Err    error
}

func (f TargetFailure) Error() string {
	return f.Target + ": " + f.Err.Error()
}

func (f TargetFailure) Unwrap() error {
	return f.Err
}

// BuildResult holds the outcome of a build or sign stage across targets.
type BuildResult struct {
	// Artifacts are the destination paths of every file moved into the
	// release tree, in move order.
	Artifacts []string

	// Failed collects per-target failures. Empty means every enabled
	// target succeeded.
	Failed []TargetFailure

	// LedgerCommit is the ledger commit hash, when entries were committed.
	LedgerCommit string
}

// OK reports whether every target succeeded.
func (r *BuildResult) OK() bool {
	return len(r.Failed) == 0
}

// ProbeResult is the outcome of one verification probe against the ledger.
type ProbeResult struct {
	Release    string // release label, e.g. "1.2.3-win-unsigned"
	Descriptor string
	OK         bool
}

// VerifyResult aggregates the fixed probe set. All probes always run;
// the aggregate fails if any probe failed.
type VerifyResult struct {
	Probes []ProbeResult
}

// OK reports whether every probe passed.
func (r *VerifyResult) OK() bool {
	for _, p := range r.Probes {
		if !p.OK {
			return false
		}
	}
	return true
}
