package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/bianoble/relforge/internal/shell"
)

// DetachedClient manages the detached-signatures repository: each release
// gets a force-reset branch holding the unpacked signature archive, a
// signed tag, and a push.
//
// Tagging and pushing shell out to the git CLI: the tag signature must be
// produced by gpg-agent (where the credential session lives), and the push
// uses whatever remote credentials the ambient git configuration carries.
type DetachedClient struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
	Run         shell.Runner
}

// ResetBranch checks out a branch named after the version, creating it or
// force-resetting it to the current HEAD (git checkout -B semantics).
func (d *DetachedClient) ResetBranch(version string) error {
	repo, err := gogit.PlainOpen(d.Dir)
	if err != nil {
		return fmt.Errorf("opening detached-sigs repo %s: %w", d.Dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("detached-sigs worktree: %w", err)
	}

	branch := plumbing.NewBranchReferenceName(version)
	if _, refErr := repo.Reference(branch, false); refErr == nil {
		head, err := repo.Head()
		if err != nil {
			return fmt.Errorf("detached-sigs HEAD: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewHashReference(branch, head.Hash())); err != nil {
			return fmt.Errorf("resetting branch %s: %w", version, err)
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branch, Force: true}); err != nil {
			return fmt.Errorf("checking out branch %s: %w", version, err)
		}
		return nil
	}

	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branch, Create: true, Force: true}); err != nil {
		return fmt.Errorf("creating branch %s: %w", version, err)
	}
	return nil
}

// ClearWorktree removes everything except the repository metadata, so the
// imported archive fully replaces the previous release's signatures.
func (d *DetachedClient) ClearWorktree() error {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return fmt.Errorf("reading detached-sigs dir: %w", err)
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(d.Dir, e.Name())); err != nil {
			return fmt.Errorf("clearing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// ImportArchive unpacks a signature archive into the working tree.
func (d *DetachedClient) ImportArchive(ctx context.Context, archive string) error {
	return d.Run.Run(ctx, shell.Cmd{
		Dir:  d.Dir,
		Name: "tar",
		Args: []string{"xf", archive},
	})
}

// AddAll stages the entire working tree, deletions included.
func (d *DetachedClient) AddAll() error {
	repo, err := gogit.PlainOpen(d.Dir)
	if err != nil {
		return fmt.Errorf("opening detached-sigs repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("detached-sigs worktree: %w", err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging detached sigs: %w", err)
	}
	return nil
}

// Commit records the staged signature set.
func (d *DetachedClient) Commit(message string) (string, error) {
	repo, err := gogit.PlainOpen(d.Dir)
	if err != nil {
		return "", fmt.Errorf("opening detached-sigs repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("detached-sigs worktree: %w", err)
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  d.AuthorName,
			Email: d.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing detached sigs: %w", err)
	}
	return hash.String(), nil
}

// SignedTag creates a GPG-signed tag on HEAD.
func (d *DetachedClient) SignedTag(ctx context.Context, name, message string) error {
	return d.Run.Run(ctx, shell.Cmd{
		Dir:  d.Dir,
		Name: "git",
		Args: []string{"tag", "-s", name, "-m", message, "HEAD"},
	})
}

// Push publishes the release tag (and any other tags) to origin.
func (d *DetachedClient) Push(ctx context.Context, tag string) error {
	return d.Run.Run(ctx, shell.Cmd{
		Dir:  d.Dir,
		Name: "git",
		Args: []string{"push", "--set-upstream", "origin", tag, "--tags"},
	})
}
