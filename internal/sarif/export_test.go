package sarif

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/sonar-sync/internal/git"
	"github.com/scan-io-git/sonar-sync/internal/issues"
)

func TestNewReport(t *testing.T) {
	line := 12
	found := []*issues.Issue{
		{
			Key: "AX2", Rule: "go:S2", Type: issues.TypeBug, Severity: "BLOCKER", Status: "OPEN",
			Project: "proj", Component: "proj:cmd/main.go", Message: "Fix me", Line: &line, Debt: "1h",
		},
		{
			Key: "AX1", Rule: "go:S1", Type: issues.TypeSecurityHotspot, Status: "TO_REVIEW",
			Project: "proj", Component: "proj:internal/db.go", Message: "Review this", Hash: "abc",
		},
		{
			Key: "AX3", Rule: "go:S2", Type: issues.TypeBug, Severity: "MINOR", Status: "OPEN",
			Project: "proj", Component: "proj", Message: "Project level",
		},
	}
	repoURL, commit, branch := "https://github.com/owner/repo", "0123abcd", "main"
	meta := &git.RepositoryMetadata{RepositoryURL: &repoURL, CommitHash: &commit, BranchName: &branch}

	report, err := NewReport(found, ToolMetadata{Version: "9.9.1", ServerURL: "https://sonar.local"}, meta)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name    string `json:"name"`
					Version string `json:"version"`
					Rules   []struct {
						ID                   string `json:"id"`
						DefaultConfiguration struct {
							Level string `json:"level"`
						} `json:"defaultConfiguration"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string                 `json:"ruleId"`
				Level     string                 `json:"level"`
				Message   struct{ Text string }  `json:"message"`
				Props     map[string]interface{} `json:"properties"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region *struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
			VersionControlProvenance []struct {
				RepositoryURI string `json:"repositoryUri"`
				RevisionID    string `json:"revisionId"`
				Branch        string `json:"branch"`
			} `json:"versionControlProvenance"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "SonarQube", run.Tool.Driver.Name)
	assert.Equal(t, "9.9.1", run.Tool.Driver.Version)
	require.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "go:S1", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "go:S2", run.Tool.Driver.Rules[1].ID)
	assert.Equal(t, "error", run.Tool.Driver.Rules[1].DefaultConfiguration.Level)

	require.Len(t, run.Results, 3)
	hotspot := run.Results[0]
	assert.Equal(t, "go:S1", hotspot.RuleID)
	assert.Equal(t, "warning", hotspot.Level)
	assert.Equal(t, "internal/db.go", hotspot.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Nil(t, hotspot.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, "abc", hotspot.Props["hash"])

	bug := run.Results[1]
	assert.Equal(t, "error", bug.Level)
	assert.Equal(t, "Fix me", bug.Message.Text)
	require.NotNil(t, bug.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 12, bug.Locations[0].PhysicalLocation.Region.StartLine)
	assert.Equal(t, "AX2", bug.Props["key"])
	assert.Equal(t, float64(60), bug.Props["debtMinutes"])
	assert.Equal(t, "https://sonar.local/project/issues?id=proj&issues=AX2", bug.Props["url"])

	assert.Equal(t, "note", run.Results[2].Level)
	assert.Equal(t, "proj", run.Results[2].Locations[0].PhysicalLocation.ArtifactLocation.URI)

	require.Len(t, run.VersionControlProvenance, 1)
	assert.Equal(t, repoURL, run.VersionControlProvenance[0].RepositoryURI)
	assert.Equal(t, commit, run.VersionControlProvenance[0].RevisionID)
	assert.Equal(t, branch, run.VersionControlProvenance[0].Branch)
}

func TestLevel(t *testing.T) {
	tests := map[string]string{
		"BLOCKER":  "error",
		"CRITICAL": "error",
		"MAJOR":    "warning",
		"MINOR":    "note",
		"INFO":     "note",
		"":         "warning",
	}
	for severity, want := range tests {
		assert.Equal(t, want, Level(&issues.Issue{Severity: severity}), severity)
	}
}
