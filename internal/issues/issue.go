package issues

import (
	"net/url"
	"time"

	"github.com/scan-io-git/sonar-sync/internal/sonar"
	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

// Issue types.
const (
	TypeBug             = "BUG"
	TypeVulnerability   = "VULNERABILITY"
	TypeCodeSmell       = "CODE_SMELL"
	TypeSecurityHotspot = "SECURITY_HOTSPOT"
)

// Issue is a snapshot of one server issue. It changes only when re-read or
// after a successful state-changing call made through Service.
type Issue struct {
	Key          string    `json:"key"`
	Rule         string    `json:"rule"`
	Hash         string    `json:"hash,omitempty"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	Severity     string    `json:"severity,omitempty"`
	Status       string    `json:"status"`
	Resolution   string    `json:"resolution,omitempty"`
	Component    string    `json:"component"`
	Project      string    `json:"project"`
	ProjectName  string    `json:"projectName,omitempty"`
	CreationDate string    `json:"creationDate"`
	UpdateDate   string    `json:"updateDate"`
	Created      time.Time `json:"-"`
	Debt         string    `json:"debt,omitempty"`
	Line         *int      `json:"line,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Assignee     string    `json:"assignee,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	PullRequest  string    `json:"pullRequest,omitempty"`

	timeline       changelog.Timeline
	timelineLoaded bool
	comments       []sonar.Comment
	commentsLoaded bool
}

// NewIssue builds an Issue from a search record. projectName may be empty.
func NewIssue(rec sonar.IssueRecord, projectName string) (*Issue, error) {
	key := deref(rec.Key)
	required := []struct {
		field string
		value *string
	}{
		{"key", rec.Key},
		{"rule", rec.Rule},
		{"message", rec.Message},
		{"type", rec.Type},
		{"status", rec.Status},
		{"component", rec.Component},
		{"project", rec.Project},
		{"creationDate", rec.CreationDate},
		{"updateDate", rec.UpdateDate},
	}
	for _, r := range required {
		if r.value == nil {
			return nil, &DataIntegrityError{Issue: key, Field: r.field}
		}
	}

	created, err := changelog.ParseDate(*rec.CreationDate)
	if err != nil {
		return nil, &DataIntegrityError{Issue: key, Field: "creationDate", Err: err}
	}

	debt := deref(rec.Debt)
	if debt == "" {
		debt = deref(rec.Effort)
	}
	if projectName == "" {
		projectName = *rec.Project
	}

	return &Issue{
		Key:          key,
		Rule:         *rec.Rule,
		Hash:         deref(rec.Hash),
		Message:      *rec.Message,
		Type:         *rec.Type,
		Severity:     deref(rec.Severity),
		Status:       *rec.Status,
		Resolution:   deref(rec.Resolution),
		Component:    *rec.Component,
		Project:      *rec.Project,
		ProjectName:  projectName,
		CreationDate: *rec.CreationDate,
		UpdateDate:   *rec.UpdateDate,
		Created:      created,
		Debt:         debt,
		Line:         rec.Line,
		Tags:         rec.Tags,
		Assignee:     rec.Assignee,
		Branch:       rec.Branch,
		PullRequest:  rec.PullRequest,

		comments:       rec.Comments,
		commentsLoaded: true,
	}, nil
}

// IsHotspot reports whether the issue is a security hotspot.
func (i *Issue) IsHotspot() bool {
	return i.Type == TypeSecurityHotspot
}

// URL returns the link to the issue in the server UI.
func (i *Issue) URL(serverURL string) string {
	q := url.Values{}
	q.Set("id", i.Project)
	q.Set("issues", i.Key)
	if i.Branch != "" {
		q.Set("branch", i.Branch)
	}
	if i.PullRequest != "" {
		q.Set("pullRequest", i.PullRequest)
	}
	return serverURL + "/project/issues?" + q.Encode()
}

// validate checks the fields sibling matching relies on.
func (i *Issue) validate() error {
	if i == nil {
		return &DataIntegrityError{Field: "issue"}
	}
	switch {
	case i.Key == "":
		return &DataIntegrityError{Field: "key"}
	case i.Rule == "":
		return &DataIntegrityError{Issue: i.Key, Field: "rule"}
	case i.Component == "":
		return &DataIntegrityError{Issue: i.Key, Field: "component"}
	}
	return nil
}

func (i *Issue) invalidate() {
	i.timeline = nil
	i.timelineLoaded = false
	i.comments = nil
	i.commentsLoaded = false
}

// scope returns the branch or pull request search parameters of the issue.
func (i *Issue) scope() map[string]string {
	params := map[string]string{}
	if i.Branch != "" {
		params["branch"] = i.Branch
	}
	if i.PullRequest != "" {
		params["pullRequest"] = i.PullRequest
	}
	return params
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
