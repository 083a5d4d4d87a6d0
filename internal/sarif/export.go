package sarif

import (
	"io"
	"sort"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/sonar-sync/internal/git"
	"github.com/scan-io-git/sonar-sync/internal/issues"
)

const (
	toolName = "SonarQube"
	toolURI  = "https://www.sonarsource.com/products/sonarqube/"
)

// Report wraps a SARIF log built from server issues.
type Report struct {
	*sarif.Report
}

// ToolMetadata identifies the server the issues come from.
type ToolMetadata struct {
	Version   string
	ServerURL string
}

// NewReport converts issues into a single-run SARIF 2.1.0 report. meta may be
// nil; when given it is recorded as version control provenance.
func NewReport(found []*issues.Issue, tool ToolMetadata, meta *git.RepositoryMetadata) (*Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	if tool.Version != "" {
		version := tool.Version
		run.Tool.Driver.Version = &version
	}
	if provenance := versionControl(meta); provenance != nil {
		run.VersionControlProvenance = []*sarif.VersionControlDetails{provenance}
	}

	sorted := make([]*issues.Issue, len(found))
	copy(sorted, found)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rule < sorted[j].Rule })

	rules := map[string]bool{}
	for _, issue := range sorted {
		level := Level(issue)
		rule := run.AddRule(issue.Rule)
		// The first issue of a rule sets its defaults; AddRule returns the
		// existing rule for later ones.
		if !rules[issue.Rule] {
			rules[issue.Rule] = true
			rule.WithDescription(issue.Rule).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level}).
				WithProperties(sarif.Properties{"type": issue.Type})
		}

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(issue.Message)).
			WithLevel(level).
			WithLocations([]*sarif.Location{location(issue)})
		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("key", issue.Key)
		result.Add("type", issue.Type)
		result.Add("severity", issue.Severity)
		result.Add("status", issue.Status)
		result.Add("project", issue.Project)
		result.Add("debtMinutes", issues.DebtMinutes(issue.Debt))
		if issue.Hash != "" {
			result.Add("hash", issue.Hash)
		}
		if tool.ServerURL != "" {
			result.Add("url", issue.URL(tool.ServerURL))
		}
		run.AddResult(result)
	}

	report.AddRun(run)
	return &Report{Report: report}, nil
}

// Write renders the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	return r.PrettyWrite(w)
}

// Level maps a server severity to a SARIF level. Hotspots have no severity
// and always need a review, so they are warnings.
func Level(issue *issues.Issue) string {
	switch strings.ToUpper(issue.Severity) {
	case "BLOCKER", "CRITICAL":
		return "error"
	case "MAJOR":
		return "warning"
	case "MINOR", "INFO":
		return "note"
	default:
		return "warning"
	}
}

// ArtifactPath strips the project key prefix from a component key.
func ArtifactPath(issue *issues.Issue) string {
	if rest, ok := strings.CutPrefix(issue.Component, issue.Project+":"); ok {
		return rest
	}
	return issue.Component
}

func location(issue *issues.Issue) *sarif.Location {
	physical := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithUri(ArtifactPath(issue)))
	if issue.Line != nil {
		physical.WithRegion(sarif.NewRegion().WithStartLine(*issue.Line))
	}
	return sarif.NewLocation().WithPhysicalLocation(physical)
}

func versionControl(meta *git.RepositoryMetadata) *sarif.VersionControlDetails {
	if meta == nil || meta.RepositoryURL == nil {
		return nil
	}
	return &sarif.VersionControlDetails{
		RepositoryURI: meta.RepositoryURL,
		RevisionID:    meta.CommitHash,
		Branch:        meta.BranchName,
	}
}
