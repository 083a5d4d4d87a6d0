package sonar

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

// MaxSearchResults is the number of issues the server returns for one query at most.
const MaxSearchResults = 10000

// searchParams lists the api/issues/search parameters forwarded to the server.
var searchParams = map[string]struct{}{
	"additionalFields": {}, "asc": {}, "assigned": {}, "assignees": {}, "authors": {},
	"componentKeys": {}, "createdAfter": {}, "createdAt": {}, "createdBefore": {},
	"createdInLast": {}, "directories": {}, "facetMode": {}, "facets": {}, "fileUuids": {},
	"issues": {}, "languages": {}, "onComponentOnly": {}, "p": {}, "ps": {}, "resolutions": {},
	"resolved": {}, "rules": {}, "s": {}, "severities": {}, "sinceLeakPeriod": {},
	"statuses": {}, "tags": {}, "types": {}, "branch": {}, "pullRequest": {},
}

// SearchParams keeps the allowed, non-empty parameters and always asks for comments.
func SearchParams(params map[string]string) map[string]string {
	out := map[string]string{"additionalFields": "comments"}
	for k, v := range params {
		if v == "" {
			continue
		}
		if _, ok := searchParams[k]; ok {
			out[k] = v
		}
	}
	if !strings.Contains(out["additionalFields"], "comments") {
		out["additionalFields"] += ",comments"
	}
	return out
}

// SearchIssues runs one api/issues/search query. Unknown parameters are dropped.
func (c *Client) SearchIssues(params map[string]string) (*SearchResponse, error) {
	resp, err := c.get("/api/issues/search", SearchParams(params))
	if err != nil {
		return nil, fmt.Errorf("error searching issues: %w", err)
	}

	var result SearchResponse
	if err := unmarshalResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Paging.Total == 0 && result.Total != 0 {
		result.Paging.Total = result.Total
	}
	return &result, nil
}

// GetChangelog returns the raw history of an issue.
func (c *Client) GetChangelog(issueKey string) ([]changelog.Entry, error) {
	resp, err := c.get("/api/issues/changelog", map[string]string{"issue": issueKey})
	if err != nil {
		return nil, fmt.Errorf("error fetching changelog of %s: %w", issueKey, err)
	}

	var result struct {
		Changelog []changelog.Entry `json:"changelog"`
	}
	if err := unmarshalResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Changelog, nil
}

// GetComments returns the comments of an issue. scope may carry the branch or
// pullRequest the issue belongs to.
func (c *Client) GetComments(issueKey string, scope map[string]string) ([]Comment, error) {
	params := map[string]string{"issues": issueKey}
	for k, v := range scope {
		params[k] = v
	}
	result, err := c.SearchIssues(params)
	if err != nil {
		return nil, fmt.Errorf("error fetching comments of %s: %w", issueKey, err)
	}
	for _, issue := range result.Issues {
		if issue.Key != nil && *issue.Key == issueKey {
			return issue.Comments, nil
		}
	}
	return nil, nil
}

func (c *Client) AddComment(issueKey, text string) error {
	return c.postAction("/api/issues/add_comment", map[string]string{"issue": issueKey, "text": text})
}

func (c *Client) SetSeverity(issueKey, severity string) error {
	return c.postAction("/api/issues/set_severity", map[string]string{"issue": issueKey, "severity": severity})
}

// Assign sets the assignee. An empty login unassigns the issue.
func (c *Client) Assign(issueKey, login string) error {
	return c.postAction("/api/issues/assign", map[string]string{"issue": issueKey, "assignee": login})
}

// SetTags replaces the tags of an issue with a comma separated list.
func (c *Client) SetTags(issueKey, tags string) error {
	return c.postAction("/api/issues/set_tags", map[string]string{"issue": issueKey, "tags": tags})
}

func (c *Client) SetType(issueKey, issueType string) error {
	return c.postAction("/api/issues/set_type", map[string]string{"issue": issueKey, "type": issueType})
}

// DoTransition applies a workflow transition such as confirm, reopen or wontfix.
func (c *Client) DoTransition(issueKey, transition string) error {
	return c.postAction("/api/issues/do_transition", map[string]string{"issue": issueKey, "transition": transition})
}
