package ledger

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// ResolvePullHead fetches a pull request's merge ref from url into the
// repository at repoDir and returns the merge-head commit hash. Fetching
// over plain git transport keeps this working against any forge that
// exposes refs/pull/<n>/merge.
func ResolvePullHead(ctx context.Context, repoDir, url, number string) (string, error) {
	repo, err := gogit.PlainOpen(repoDir)
	if err != nil {
		return "", fmt.Errorf("opening source checkout %s: %w", repoDir, err)
	}

	local := plumbing.ReferenceName(fmt.Sprintf("refs/pull/%s/merge", number))
	refspec := gitconfig.RefSpec(fmt.Sprintf("+refs/pull/%s/merge:%s", number, local))

	remote, err := repo.CreateRemoteAnonymous(&gitconfig.RemoteConfig{
		Name:  "anonymous",
		URLs:  []string{url},
		Fetch: []gitconfig.RefSpec{refspec},
	})
	if err != nil {
		return "", fmt.Errorf("configuring pull request remote: %w", err)
	}

	err = remote.FetchContext(ctx, &gogit.FetchOptions{RefSpecs: []gitconfig.RefSpec{refspec}})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("fetching pull request %s: %w", number, err)
	}

	ref, err := repo.Reference(local, true)
	if err != nil {
		return "", fmt.Errorf("resolving pull request %s merge head: %w", number, err)
	}
	return ref.Hash().String(), nil
}
