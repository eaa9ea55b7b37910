package pipeline

import (
	"context"

	"github.com/bianoble/relforge/internal/builder"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/pkg/relforge"
)

// Verify pulls the ledger and checks the five fixed (target, phase)
// combinations against what the builder reproduces. Every probe always
// runs — a failing probe never short-circuits the rest — and the aggregate
// fails if any probe failed. Verification audits the full ledger, so the
// probe set does not depend on this run's target matrix.
func (p *Pipeline) Verify(ctx context.Context, req *request.Release) (*relforge.VerifyResult, error) {
	if err := p.Ledger.Pull(ctx); err != nil {
		return nil, err
	}

	d := p.Config.Descriptors
	probes := []builder.VerifyOptions{
		{Release: req.Version + "-linux", Descriptor: d.Linux},
		{Release: req.Version + "-win-unsigned", Descriptor: d.Windows},
		{Release: req.Version + "-osx-unsigned", Descriptor: d.MacOS},
		{Release: req.Version + "-win-signed", Descriptor: d.WindowsSigner},
		{Release: req.Version + "-osx-signed", Descriptor: d.MacOSSigner},
	}

	result := &relforge.VerifyResult{}
	for _, probe := range probes {
		probe.Destination = p.ledgerDir()
		p.printf("\nVerifying %s\n", probe.Release)

		err := p.Builder.Verify(ctx, probe)
		if err != nil {
			p.printf("Verifying %s FAILED\n", probe.Release)
		}
		result.Probes = append(result.Probes, relforge.ProbeResult{
			Release:    probe.Release,
			Descriptor: probe.Descriptor,
			OK:         err == nil,
		})
	}

	return result, nil
}
