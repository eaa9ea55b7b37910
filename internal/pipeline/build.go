package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/bianoble/relforge/internal/artifact"
	"github.com/bianoble/relforge/internal/builder"
	"github.com/bianoble/relforge/internal/ledger"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/pkg/relforge"
)

// Build produces unsigned artifacts for every enabled target in the fixed
// order. Targets are independent: one target's failure does not stop the
// next, but any failure marks the stage failed and suppresses the ledger
// commit. On success with commits enabled, all unsigned-phase entries go
// into a single batched commit.
func (p *Pipeline) Build(ctx context.Context, req *request.Release) (*relforge.BuildResult, error) {
	if err := os.MkdirAll(p.releaseDir(req.Version), 0755); err != nil {
		return nil, fmt.Errorf("creating release directory: %w", err)
	}

	result := &relforge.BuildResult{}
	for _, target := range req.Targets.Enabled() {
		p.printf("\nBuilding %s %s\n", req.Version, target)
		artifacts, err := p.buildTarget(ctx, req, target)
		if err != nil {
			p.printf("Building %s %s FAILED: %v\n", req.Version, target, err)
			result.Failed = append(result.Failed, relforge.TargetFailure{Target: string(target), Err: err})
			continue
		}
		result.Artifacts = append(result.Artifacts, artifacts...)
	}

	if !result.OK() {
		return result, fmt.Errorf("build failed for %d of %d targets", len(result.Failed), len(req.Targets.Enabled()))
	}

	if req.CommitLedger {
		var entries []ledger.Entry
		for _, target := range req.Targets.Enabled() {
			entries = append(entries, ledger.Entry{Phase: buildPhase(target), Signer: req.Signer})
		}
		p.printf("\nCommitting %s unsigned sigs\n", req.Version)
		hash, err := p.Ledger.Commit(req.Version, entries, ledger.UnsignedMessage(req.Version, req.Signer))
		if err != nil {
			return result, err
		}
		result.LedgerCommit = hash
	}

	return result, nil
}

// buildTarget runs the three-step pattern for one target: invoke the
// builder, stage credentials and attest the outputs, then move the
// target's files into the release tree. The first failing step is fatal
// to this target; nothing is moved for a failed target.
func (p *Pipeline) buildTarget(ctx context.Context, req *request.Release, target request.Target) ([]string, error) {
	desc := p.descriptor(target, false)

	err := p.Builder.Build(ctx, builder.BuildOptions{
		Jobs:       req.Jobs,
		MemoryMiB:  req.MemoryMiB,
		FetchTags:  true,
		Commits:    []builder.Binding{{Name: p.Config.Project, Value: req.CommitRef}},
		URLs:       []builder.Binding{{Name: p.Config.Project, Value: req.RepositoryURL}},
		Descriptor: desc,
	})
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", target, err)
	}

	if err := p.stageCredentials(ctx, req.Signer); err != nil {
		return nil, err
	}

	err = p.Builder.Attest(ctx, builder.AttestOptions{
		SignProgram: req.SignProgram(),
		Signer:      req.Signer,
		Release:     req.Version + "-" + buildPhase(target),
		Destination: p.ledgerDir(),
		Descriptor:  desc,
	})
	if err != nil {
		return nil, fmt.Errorf("attesting %s: %w", target, err)
	}

	moves, err := p.Resolver.Moves(artifact.StageBuild, target, req.Version)
	if err != nil {
		return nil, err
	}
	return artifact.Apply(p.outDir(), moves, p.dests(req.Version))
}
