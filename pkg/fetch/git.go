package fetch

import (
	"context"

	"github.com/go-git/go-git/v5"
)

// GitFetcher clones a git/https package location. Implemented with
// go-git/v5 so the whole fetch path stays pure Go with no system git
// dependency, the grounding the ecosystem's go-git library is chosen for
// in the first place.
type GitFetcher interface {
	Clone(ctx context.Context, location, dest string) error
}

type goGitFetcher struct{}

// NewGoGitFetcher returns the go-git-backed GitFetcher.
func NewGoGitFetcher() GitFetcher { return &goGitFetcher{} }

func (g *goGitFetcher) Clone(ctx context.Context, location, dest string) error {
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:   location,
		Depth: 1,
	})
	return err
}
