package searchissues

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/sonar-sync/internal/ci"
	internalcmd "github.com/scan-io-git/sonar-sync/internal/cmd"
	"github.com/scan-io-git/sonar-sync/internal/config"
	cmderrors "github.com/scan-io-git/sonar-sync/internal/errors"
	"github.com/scan-io-git/sonar-sync/internal/issues"
	"github.com/scan-io-git/sonar-sync/internal/sarif"
)

const searchBody = `{
  "total": 1,
  "paging": {"pageIndex": 1, "pageSize": 500, "total": 1},
  "issues": [{
    "key": "AX-1",
    "rule": "java:S2076",
    "hash": "f00d",
    "message": "Make sure that \"cmd\" is sanitized",
    "type": "VULNERABILITY",
    "severity": "CRITICAL",
    "status": "OPEN",
    "component": "my-app:src/main/java/App.java",
    "project": "my-app",
    "line": 42,
    "creationDate": "2023-01-05T10:00:00+0000",
    "updateDate": "2023-01-06T11:30:00+0000",
    "debt": "30min"
  }],
  "components": [{"key": "my-app", "name": "My App", "qualifier": "TRK"}]
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/issues/search":
			assert.Equal(t, "my-app", r.URL.Query().Get("componentKeys"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(searchBody))
		case "/api/server/version":
			_, _ = w.Write([]byte("9.9.1.69595"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    RunOptions
		wantErr bool
	}{
		{"csv default", RunOptions{Format: "csv"}, false},
		{"upper case format", RunOptions{Format: "SARIF"}, false},
		{"unknown format", RunOptions{Format: "xml"}, true},
		{"upload without output", RunOptions{Format: "json", Upload: true}, true},
		{"source folder without sarif", RunOptions{Format: "csv", SourceFolder: "."}, true},
		{"bad filter", RunOptions{Format: "json", Filter: internalcmd.SearchFilter{Types: []string{"NOPE"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunJSONToStdout(t *testing.T) {
	srv := newServer(t)
	cfg := &config.Config{Sonar: config.Sonar{URL: srv.URL}}
	o := &RunOptions{Format: FormatJSON, Filter: internalcmd.SearchFilter{Projects: []string{"my-app"}}}

	var out bytes.Buffer
	require.NoError(t, run(o, cfg, hclog.NewNullLogger(), &out))

	var found []issues.Issue
	require.NoError(t, json.Unmarshal(out.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "AX-1", found[0].Key)
	assert.Equal(t, "My App", found[0].ProjectName)
}

func TestRunCSVToFile(t *testing.T) {
	srv := newServer(t)
	cfg := &config.Config{Sonar: config.Sonar{URL: srv.URL}}
	dir := t.TempDir()
	o := &RunOptions{Format: FormatCSV, OutputPath: dir, Filter: internalcmd.SearchFilter{Projects: []string{"my-app"}}}

	var out bytes.Buffer
	require.NoError(t, run(o, cfg, hclog.NewNullLogger(), &out))
	assert.Empty(t, out.String())

	files, err := filepath.Glob(filepath.Join(dir, "search-issues_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, issues.CSVHeader(), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "AX-1;java:S2076;VULNERABILITY;CRITICAL;OPEN;"))
}

func TestRunUploadWithoutBucket(t *testing.T) {
	srv := newServer(t)
	cfg := &config.Config{Sonar: config.Sonar{URL: srv.URL}}
	o := &RunOptions{Format: FormatJSON, OutputPath: t.TempDir(), Upload: true, Filter: internalcmd.SearchFilter{Projects: []string{"my-app"}}}

	err := run(o, cfg, hclog.NewNullLogger(), &bytes.Buffer{})
	var cmdErr *cmderrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, cmderrors.ExitCommandFailure, cmdErr.ExitCode)
}

func TestRunWithoutServer(t *testing.T) {
	err := run(&RunOptions{Format: FormatCSV}, &config.Config{}, hclog.NewNullLogger(), &bytes.Buffer{})
	var cmdErr *cmderrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, cmderrors.ExitArgsError, cmdErr.ExitCode)
}

func TestRenderSARIF(t *testing.T) {
	issue := &issues.Issue{
		Key: "AX-1", Rule: "java:S2076", Message: "m", Type: issues.TypeVulnerability,
		Severity: "BLOCKER", Status: "OPEN", Component: "my-app:App.java", Project: "my-app",
	}
	data, err := render([]*issues.Issue{issue}, FormatSARIF, sarif.ToolMetadata{Version: "9.9"}, nil)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2.1.0", doc["version"])
	runs, ok := doc["runs"].([]interface{})
	require.True(t, ok)
	assert.Len(t, runs, 1)
}

func TestRenderEmptyJSON(t *testing.T) {
	data, err := render(nil, FormatJSON, sarif.ToolMetadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestApplyCIEnvironment(t *testing.T) {
	lookup := func(vars map[string]string) ci.LookupFunc {
		return func(key string) string { return vars[key] }
	}
	github := map[string]string{
		"GITHUB_REPOSITORY": "acme/app",
		"GITHUB_REF":        "refs/pull/42/merge",
	}

	o := &RunOptions{}
	applyCIEnvironment(o, lookup(github), hclog.NewNullLogger())
	assert.Equal(t, "42", o.Filter.PullRequest)
	assert.Empty(t, o.Filter.Branch)

	o = &RunOptions{Filter: internalcmd.SearchFilter{Branch: "main"}}
	applyCIEnvironment(o, lookup(github), hclog.NewNullLogger())
	assert.Equal(t, "main", o.Filter.Branch)
	assert.Empty(t, o.Filter.PullRequest)

	o = &RunOptions{}
	applyCIEnvironment(o, lookup(map[string]string{"GITLAB_CI": "true", "CI_COMMIT_REF_NAME": "develop"}), hclog.NewNullLogger())
	assert.Equal(t, "develop", o.Filter.Branch)
}

func TestProvenanceFromCI(t *testing.T) {
	vars := map[string]string{
		"GITHUB_REPOSITORY": "acme/app",
		"GITHUB_SERVER_URL": "https://github.com",
		"GITHUB_SHA":        "abc123",
		"GITHUB_REF":        "refs/heads/main",
	}
	lookup := func(key string) string { return vars[key] }

	assert.Nil(t, provenance(&RunOptions{}, lookup, hclog.NewNullLogger()))

	meta := provenance(&RunOptions{FromCI: true, SourceFolder: t.TempDir()}, lookup, hclog.NewNullLogger())
	require.NotNil(t, meta)
	require.NotNil(t, meta.BranchName)
	assert.Equal(t, "main", *meta.BranchName)
	require.NotNil(t, meta.RepositoryURL)
	assert.Equal(t, "https://github.com/acme/app", *meta.RepositoryURL)
}
