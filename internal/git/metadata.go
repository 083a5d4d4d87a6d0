package git

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes the checkout an analysis was run on.
type RepositoryMetadata struct {
	BranchName     *string
	CommitHash     *string
	RepositoryURL  *string // https form of the origin remote
	RepositoryName *string // owner/name form of the origin remote
	Subfolder      string
	RepoRootFolder string
}

// CollectRepositoryMetadata collects branch name, commit hash and origin of
// the repository containing sourceFolder.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, ErrNoSourceFolder
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{
		RepoRootFolder: filepath.Clean(sourceFolder),
	}

	repoRootFolder, err := findGitRepositoryPath(sourceFolder)
	if err != nil {
		return md, err
	}
	md.RepoRootFolder = filepath.Clean(repoRootFolder)

	repo, err := git.PlainOpen(repoRootFolder)
	if err != nil {
		return md, fmt.Errorf("failed to open repository: %w", err)
	}

	if rel, err := filepath.Rel(repoRootFolder, sourceFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			branchName := head.Name().Short()
			md.BranchName = &branchName
		}
		hash := head.Hash().String()
		md.CommitHash = &hash
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			repoURL, fullName := normalizeRemote(cfg.URLs[0])
			md.RepositoryURL = &repoURL
			if fullName != "" {
				md.RepositoryName = &fullName
			}
		}
	}

	return md, nil
}
