package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/relforge/internal/artifact"
	"github.com/bianoble/relforge/internal/request"
	"github.com/bianoble/relforge/internal/shell"
)

const manifestName = "SHA256SUMS"

// Package finalizes the release directory: partitions the flat artifact
// set into category subdirectories, generates and clear-signs the checksum
// manifest over the release subset, re-partitions the release subset by
// platform, and detach-signs every file in every platform subdirectory.
// All partition passes are glob-table driven and harmless to re-run.
func (p *Pipeline) Package(ctx context.Context, req *request.Release) error {
	if err := p.stageCredentials(ctx, req.Signer); err != nil {
		return err
	}

	p.printf("\nSigning and packaging release\n")

	dir := p.releaseDir(req.Version)
	if err := artifact.ApplyLocal(dir, artifact.CategoryMoves()); err != nil {
		return err
	}
	if err := artifact.MoveRemainingFiles(dir, "release"); err != nil {
		return err
	}

	releaseDir := filepath.Join(dir, "release")
	if err := os.MkdirAll(releaseDir, 0755); err != nil {
		return fmt.Errorf("creating release subset directory: %w", err)
	}
	if err := artifact.WriteChecksumManifest(releaseDir, manifestName); err != nil {
		return err
	}
	err := p.Run.Run(ctx, shell.Cmd{
		Dir:  releaseDir,
		Name: "gpg",
		Args: []string{"--digest-algo", "sha256", "--clearsign", manifestName},
	})
	if err != nil {
		return fmt.Errorf("clear-signing manifest: %w", err)
	}
	// Only the signed manifest ships.
	if err := os.Remove(filepath.Join(releaseDir, manifestName)); err != nil {
		return fmt.Errorf("removing plaintext manifest: %w", err)
	}

	if err := artifact.ApplyLocal(releaseDir, artifact.PlatformMoves(p.Config.Project, req.Version)); err != nil {
		return err
	}

	return p.detachSignTree(ctx, releaseDir)
}

// detachSignTree produces an armored detached signature for every regular
// file in every subdirectory of root. Existing signature files are
// skipped so re-running does not sign signatures.
func (p *Pipeline) detachSignTree(ctx context.Context, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Dir(path) == root {
			return nil
		}
		if strings.HasSuffix(path, ".asc") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		err = p.Run.Run(ctx, shell.Cmd{
			Dir:  root,
			Name: "gpg",
			Args: []string{"--digest-algo", "sha256", "--armor", "--detach-sign", rel},
		})
		if err != nil {
			return fmt.Errorf("signing %s: %w", rel, err)
		}
		return nil
	})
}
