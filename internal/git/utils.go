package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
)

// findGitRepositoryPath walks up from sourceFolder to the first folder holding a repository.
func findGitRepositoryPath(sourceFolder string) (string, error) {
	if sourceFolder == "" {
		return "", ErrNoSourceFolder
	}

	for {
		_, err := git.PlainOpen(sourceFolder)
		if err == nil {
			return sourceFolder, nil
		}

		// move up one level
		parent := filepath.Dir(sourceFolder)
		if parent == sourceFolder {
			break
		}
		sourceFolder = parent
	}

	return "", ErrNotRepository
}

// normalizeRemote turns an ssh or https remote into an https repository URL
// and an owner/name pair. Remotes the parser does not understand are kept as
// they are with the .git suffix removed, as are local paths that parse without
// a host.
func normalizeRemote(remote string) (string, string) {
	info, err := vcsurl.Parse(remote)
	if err != nil || info.Host == "" {
		return strings.TrimSuffix(remote, ".git"), ""
	}
	return fmt.Sprintf("https://%s/%s", info.Host, info.FullName), info.FullName
}
