package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectRepositoryMetadata(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "svc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "svc", "main.go"), []byte("package main\n"), 0o644))
	_, err = wt.Add("svc/main.go")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:scan-io-git/sonar-sync.git"},
	})
	require.NoError(t, err)

	md, err := CollectRepositoryMetadata(filepath.Join(root, "svc"))
	require.NoError(t, err)

	wantRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(wantRoot), md.RepoRootFolder)
	assert.Equal(t, "svc", md.Subfolder)
	require.NotNil(t, md.CommitHash)
	assert.Equal(t, hash.String(), *md.CommitHash)
	require.NotNil(t, md.BranchName)
	assert.Equal(t, "master", *md.BranchName)
	require.NotNil(t, md.RepositoryURL)
	assert.Equal(t, "https://github.com/scan-io-git/sonar-sync", *md.RepositoryURL)
	require.NotNil(t, md.RepositoryName)
	assert.Equal(t, "scan-io-git/sonar-sync", *md.RepositoryName)
}

func TestCollectRepositoryMetadataErrors(t *testing.T) {
	_, err := CollectRepositoryMetadata("")
	assert.ErrorIs(t, err, ErrNoSourceFolder)

	_, err = CollectRepositoryMetadata(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestNormalizeRemote(t *testing.T) {
	tests := []struct {
		remote   string
		wantURL  string
		wantName string
	}{
		{"https://github.com/owner/repo.git", "https://github.com/owner/repo", "owner/repo"},
		{"git@github.com:owner/repo.git", "https://github.com/owner/repo", "owner/repo"},
		{"/srv/git/local.git", "/srv/git/local", ""},
		{"/srv/git/owner/repo", "/srv/git/owner/repo", ""},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			gotURL, gotName := normalizeRemote(tt.remote)
			assert.Equal(t, tt.wantURL, gotURL)
			assert.Equal(t, tt.wantName, gotName)
		})
	}
}
