package manifest

import (
	"log/slog"

	ggit "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/docstage/internal/logfields"
)

// Revision returns the HEAD commit hash of the git repository enclosing dir, or "" when dir
// is not inside a repository or HEAD cannot be resolved.
func Revision(dir string) string {
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("Source is not inside a git repository", logfields.Path(dir))
		return ""
	}

	ref, err := repo.Head()
	if err != nil {
		slog.Debug("Cannot resolve HEAD", logfields.Path(dir), logfields.Error(err))
		return ""
	}
	return ref.Hash().String()
}
