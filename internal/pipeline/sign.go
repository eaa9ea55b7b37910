package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bianoble/relforge/internal/artifact"
	"github.com/bianoble/relforge/internal/builder"
	"github.com/bianoble/relforge/internal/ledger"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/pkg/relforge"
)

// Sign applies previously produced detached signatures to the windows and
// macos unsigned artifacts: the unsigned archive is staged into the
// builder's inputs under a fixed name, the builder re-runs in
// signature-apply mode bound to signature=<commitRef>, the result is
// attested, and the finished artifact moves into the release tree. Any
// step failing is fatal to the stage. Signed-phase ledger entries commit
// as one batch.
func (p *Pipeline) Sign(ctx context.Context, req *request.Release) (*relforge.BuildResult, error) {
	if err := p.stageCredentials(ctx, req.Signer); err != nil {
		return nil, err
	}

	result := &relforge.BuildResult{}
	var entries []ledger.Entry

	for _, target := range []request.Target{request.TargetWindows, request.TargetMacOS} {
		if !req.Targets.Has(target) {
			continue
		}
		p.printf("\nSigning %s %s\n", req.Version, target)
		artifacts, err := p.signTarget(ctx, req, target)
		if err != nil {
			return result, fmt.Errorf("signing %s: %w", target, err)
		}
		result.Artifacts = append(result.Artifacts, artifacts...)
		entries = append(entries, ledger.Entry{Phase: signPhase(target), Signer: req.Signer})
	}

	if req.CommitLedger && len(entries) > 0 {
		p.printf("\nCommitting %s signed sigs\n", req.Version)
		hash, err := p.Ledger.Commit(req.Version, entries, ledger.SignedMessage(req.Version, req.Signer))
		if err != nil {
			return result, err
		}
		result.LedgerCommit = hash
	}

	return result, nil
}

func (p *Pipeline) signTarget(ctx context.Context, req *request.Release, target request.Target) ([]string, error) {
	// The signature-apply descriptor expects the unsigned archive under a
	// version-independent name.
	versioned := fmt.Sprintf("%s-%s-%s.tar.gz", p.Config.Project, req.Version, unsignedSuffix(target))
	fixed := fmt.Sprintf("%s-%s.tar.gz", p.Config.Project, unsignedSuffix(target))
	src := filepath.Join(p.inputsDir(), versioned)
	dst := filepath.Join(p.inputsDir(), fixed)
	if err := copyFile(src, dst); err != nil {
		return nil, fmt.Errorf("staging unsigned archive: %w", err)
	}

	desc := p.descriptor(target, true)

	err := p.Builder.Build(ctx, builder.BuildOptions{
		SkipImage:  true,
		Upgrade:    true,
		FetchTags:  true,
		Commits:    []builder.Binding{{Name: "signature", Value: req.CommitRef}},
		Descriptor: desc,
	})
	if err != nil {
		return nil, err
	}

	err = p.Builder.Attest(ctx, builder.AttestOptions{
		SignProgram: req.SignProgram(),
		Signer:      req.Signer,
		Release:     req.Version + "-" + signPhase(target),
		Destination: p.ledgerDir(),
		Descriptor:  desc,
	})
	if err != nil {
		return nil, err
	}

	moves, err := p.Resolver.Moves(artifact.StageSign, target, req.Version)
	if err != nil {
		return nil, err
	}
	return artifact.Apply(p.outDir(), moves, p.dests(req.Version))
}

func unsignedSuffix(target request.Target) string {
	if target == request.TargetWindows {
		return "win-unsigned"
	}
	return "osx-unsigned"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
