package sonar

import (
	"fmt"
	"strings"
)

// Paging is the paging block of search responses.
type Paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

// SearchResponse is the body of api/issues/search.
type SearchResponse struct {
	Total      int           `json:"total"`
	Paging     Paging        `json:"paging"`
	Issues     []IssueRecord `json:"issues"`
	Components []Component   `json:"components"`
}

// ProjectName returns the name of the project component with the given key, or the key itself.
func (r *SearchResponse) ProjectName(projectKey string) string {
	for _, c := range r.Components {
		if c.Key == projectKey && (c.Qualifier == "TRK" || c.Qualifier == "") {
			return c.Name
		}
	}
	return projectKey
}

// IssueRecord is one raw issue as found in search results. Pointer fields
// distinguish absent values from empty ones.
type IssueRecord struct {
	Key          *string   `json:"key"`
	Rule         *string   `json:"rule"`
	Hash         *string   `json:"hash"`
	Message      *string   `json:"message"`
	Type         *string   `json:"type"`
	Severity     *string   `json:"severity"`
	Status       *string   `json:"status"`
	Resolution   *string   `json:"resolution"`
	Component    *string   `json:"component"`
	Project      *string   `json:"project"`
	CreationDate *string   `json:"creationDate"`
	UpdateDate   *string   `json:"updateDate"`
	Debt         *string   `json:"debt"`
	Effort       *string   `json:"effort"`
	Line         *int      `json:"line"`
	Author       string    `json:"author"`
	Assignee     string    `json:"assignee"`
	Tags         []string  `json:"tags"`
	Branch       string    `json:"branch"`
	PullRequest  string    `json:"pullRequest"`
	Comments     []Comment `json:"comments"`
}

// Comment is an issue comment.
type Comment struct {
	Key       string `json:"key"`
	Login     string `json:"login"`
	HTMLText  string `json:"htmlText"`
	Markdown  string `json:"markdown"`
	CreatedAt string `json:"createdAt"`
}

// Component is an entry of the components block of search responses.
type Component struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Qualifier string `json:"qualifier"`
	Path      string `json:"path"`
}

// Project is a project as returned by api/projects/search.
type Project struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	Qualifier        string `json:"qualifier"`
	LastAnalysisDate string `json:"lastAnalysisDate"`
}

// CustomMeasure is a manually entered measure (servers before 9.0 only).
type CustomMeasure struct {
	ID          string `json:"id"`
	ProjectKey  string `json:"projectKey"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Metric      struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"metric"`
}

// ErrorList is the error body returned by the web API.
type ErrorList struct {
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("sonar API request failed with status code %d", e.Status)
	}
	return fmt.Sprintf("sonar API request failed with status code %d: %s", e.Status, strings.Join(e.Messages, "; "))
}
