package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/internal/shell"
)

// Codesign runs the external code-signing procedure over the unsigned
// windows binaries and lands the resulting detached-signature archive in
// the detached-sigs repository on a force-reset per-version branch. With
// commits enabled, the branch is committed, tagged with a signed tag, and
// pushed.
func (p *Pipeline) Codesign(ctx context.Context, req *request.Release) error {
	if err := p.stageCredentials(ctx, req.Signer); err != nil {
		return err
	}

	if req.Targets.Windows {
		p.printf("\nCode-signing %s windows\n", req.Version)

		signDir := p.signingDir(req.Version)
		unsignedDir := filepath.Join(signDir, "unsigned")
		if err := os.MkdirAll(unsignedDir, 0755); err != nil {
			return fmt.Errorf("creating signing directory: %w", err)
		}

		n, err := copyGlob(filepath.Join(p.releaseDir(req.Version), "*-unsigned.exe"), unsignedDir)
		if err != nil {
			return fmt.Errorf("staging unsigned binaries: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("no unsigned windows binaries found for %s — run the build stage first", req.Version)
		}

		scripts := filepath.Join(p.Workdir, p.Config.Codesign.MaintainerDir, "win-codesign*")
		if _, err := copyGlob(scripts, signDir); err != nil {
			return fmt.Errorf("staging codesign scripts: %w", err)
		}

		err = p.Run.Run(ctx, shell.Cmd{
			Dir:  signDir,
			Name: p.Config.Codesign.Script,
			Args: []string{
				"-pkcs12", filepath.Join(p.Workdir, p.Config.Codesign.PKCS12),
				"-readpass", filepath.Join(p.Workdir, p.Config.Codesign.PassFile),
			},
		})
		if err != nil {
			return fmt.Errorf("creating detached signatures: %w", err)
		}

		if err := p.Sigs.ResetBranch(req.Version); err != nil {
			return err
		}
		if err := p.Sigs.ClearWorktree(); err != nil {
			return err
		}
		if err := p.Sigs.ImportArchive(ctx, filepath.Join(signDir, "signature-win.tar.gz")); err != nil {
			return fmt.Errorf("importing signature archive: %w", err)
		}
		if err := p.Sigs.AddAll(); err != nil {
			return err
		}
	}

	if req.CommitLedger {
		if _, err := p.Sigs.Commit("point to " + req.Version); err != nil {
			return err
		}
		tag := "v" + req.Version
		if err := p.Sigs.SignedTag(ctx, tag, tag); err != nil {
			return fmt.Errorf("tagging %s: %w", tag, err)
		}
		if err := p.Sigs.Push(ctx, tag); err != nil {
			return fmt.Errorf("pushing %s: %w", tag, err)
		}
	}

	return nil
}

// copyGlob copies every file matching pattern into destDir, returning the
// number of files copied.
func copyGlob(pattern, destDir string) (int, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, err
	}
	copied := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return copied, err
		}
		if info.IsDir() {
			continue
		}
		if err := copyFile(match, filepath.Join(destDir, filepath.Base(match))); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}
