// Package ledger wraps the git-backed repositories the pipeline
// collaborates with: the signature ledger (append-only per-version,
// per-signer attestations) and the detached-signatures repository.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Entry identifies one attestation directory in the ledger:
// <version>-<phase>/<signer>.
type Entry struct {
	Phase  string // "linux", "win-unsigned", "osx-signed", ...
	Signer string
}

// Path returns the entry's directory path relative to the ledger root.
func (e Entry) Path(version string) string {
	return version + "-" + e.Phase + "/" + e.Signer
}

// UnsignedMessage is the commit message template for unsigned-phase entries.
func UnsignedMessage(version, signer string) string {
	return fmt.Sprintf("Add %s unsigned sigs for %s", version, signer)
}

// SignedMessage is the commit message template for signed-phase entries.
func SignedMessage(version, signer string) string {
	return fmt.Sprintf("Add %s signed binary sigs for %s", version, signer)
}

// Client operates on the signature ledger's working tree. Entries are
// append-only: re-running a stage adds a new commit on top, never rewrites
// history.
type Client struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Pull fast-forwards the ledger from its origin. Already-up-to-date is
// success.
func (c *Client) Pull(ctx context.Context) error {
	return pullTree(ctx, c.Dir)
}

// Commit stages every entry directory for version and records them in a
// single commit — one commit per stage invocation, however many entries.
// It refuses to commit when the working tree carries modifications outside
// the entry paths, since staging would then be ambiguous.
func (c *Client) Commit(version string, entries []Entry, message string) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no ledger entries to commit for %s", version)
	}

	repo, err := gogit.PlainOpen(c.Dir)
	if err != nil {
		return "", fmt.Errorf("opening ledger %s: %w", c.Dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("ledger worktree: %w", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path(version)
	}

	if err := c.checkClean(wt, paths); err != nil {
		return "", err
	}

	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return "", fmt.Errorf("staging ledger entry %s: %w", p, err)
		}
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  c.AuthorName,
			Email: c.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing ledger entries: %w", err)
	}
	return hash.String(), nil
}

// checkClean rejects tracked modifications and staged changes outside the
// entry paths. Untracked files elsewhere are tolerated — they cannot make
// the batched commit pick up unintended content.
func (c *Client) checkClean(wt *gogit.Worktree, entryPaths []string) error {
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("ledger status: %w", err)
	}

	for path, st := range status {
		if underAny(path, entryPaths) {
			continue
		}
		if st.Staging == gogit.Untracked && st.Worktree == gogit.Untracked {
			continue
		}
		if st.Staging != gogit.Unmodified || st.Worktree != gogit.Unmodified {
			return fmt.Errorf("ledger working tree has local modifications (%s) — resolve them before committing entries", path)
		}
	}
	return nil
}

func underAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// pullTree fast-forwards an existing checkout from origin.
func pullTree(ctx context.Context, dir string) error {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", dir, err)
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pulling %s: %w", dir, err)
	}
	return nil
}

// PullTree refreshes an arbitrary git checkout (e.g. the builder tree).
func PullTree(ctx context.Context, dir string) error {
	return pullTree(ctx, dir)
}

// CloneTree clones url into dir. A dir that already holds a repository is
// left as-is, so setup can re-run safely.
func CloneTree(ctx context.Context, url, dir string) error {
	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{URL: url})
	if errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cloning %s: %w", url, err)
	}
	return nil
}
