package issues

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

var (
	defaultSeverities = []string{"INFO", "MINOR", "MAJOR", "CRITICAL", "BLOCKER"}
	defaultTypes      = []string{TypeCodeSmell, TypeVulnerability, TypeBug, TypeSecurityHotspot}
)

// SearchAll returns every issue matching params, working around the cap on
// results per query. Projects come from componentKeys, or are all projects
// of the server when it is not set.
func (s *Service) SearchAll(params map[string]string) ([]*Issue, error) {
	projects, err := s.projectKeys(params)
	if err != nil {
		return nil, err
	}

	var result []*Issue
	for _, project := range projects {
		found, err := s.searchProject(project, params)
		if err != nil {
			return nil, fmt.Errorf("searching issues of project %s: %w", project, err)
		}
		result = append(result, found...)
	}

	s.logger.Info("issue search done", "projects", len(projects), "issues", len(result))
	return result, nil
}

func (s *Service) projectKeys(params map[string]string) ([]string, error) {
	if keys := params["componentKeys"]; keys != "" {
		var out []string
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out, nil
	}

	projects, err := s.api.SearchProjects()
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Key)
	}
	return out, nil
}

// searchProject walks the creation date range of one project in windows
// small enough for each query to stay under the result cap.
func (s *Service) searchProject(project string, filter map[string]string) ([]*Issue, error) {
	params := copyParams(filter)
	params["componentKeys"] = project

	oldest, total, err := s.edgeIssue(params, true)
	if err != nil {
		return nil, err
	}
	if oldest == nil {
		s.logger.Debug("project has no issues", "project", project)
		return nil, nil
	}
	newest, _, err := s.edgeIssue(params, false)
	if err != nil {
		return nil, err
	}

	start := day(oldest.Created)
	end := day(newest.Created)
	sliceDays := int(end.Sub(start).Hours()/24) + 1
	if total > s.maxResults {
		sliceDays = (s.maxResults * sliceDays) / (total * 4)
	}
	s.logger.Debug("slicing project search", "project", project, "days", sliceDays, "from", start.Format(dayLayout), "to", end.Format(dayLayout), "total", total)

	var result []*Issue
	for !start.After(end) {
		width := sliceDays
		for {
			stop := start.AddDate(0, 0, width)
			params["createdAfter"] = start.Format(dayLayout)
			params["createdBefore"] = stop.Format(dayLayout)

			found, err := s.searchWindow(params)
			var tooMany *TooManyIssuesError
			switch {
			case err == nil:
				s.logger.Debug("window accepted", "project", project, "from", params["createdAfter"], "to", params["createdBefore"], "issues", len(found))
				result = append(result, found...)
			case errors.As(err, &tooMany) && width == 0:
				found, err = s.searchDay(params, filter)
				if err != nil {
					return nil, err
				}
				result = append(result, found...)
			case errors.As(err, &tooMany):
				width /= 2
				s.logger.Debug("reslicing with a thinner window", "project", project, "days", width, "total", tooMany.Total)
				continue
			default:
				return nil, err
			}
			start = stop.AddDate(0, 0, 1)
			break
		}
	}

	s.logger.Debug("project search done", "project", project, "issues", len(result))
	return result, nil
}

// edgeIssue returns the oldest (or newest) issue matching params along with the match count.
func (s *Service) edgeIssue(params map[string]string, oldest bool) (*Issue, int, error) {
	p := copyParams(params)
	p["s"] = "CREATION_DATE"
	p["asc"] = strconv.FormatBool(oldest)
	p["ps"] = "1"
	p["p"] = "1"

	resp, err := s.api.SearchIssues(p)
	if err != nil {
		return nil, 0, err
	}
	if resp.Paging.Total == 0 || len(resp.Issues) == 0 {
		return nil, 0, nil
	}
	found, err := issuesFromResponse(resp)
	if err != nil {
		return nil, 0, err
	}
	return found[0], resp.Paging.Total, nil
}

// searchWindow fetches every issue of one window, or returns a
// *TooManyIssuesError when the window holds at least the result cap.
func (s *Service) searchWindow(params map[string]string) ([]*Issue, error) {
	found, total, err := s.searchPages(params, true)
	if err != nil {
		return nil, err
	}
	if total >= s.maxResults {
		return nil, &TooManyIssuesError{Total: total, Params: copyParams(params)}
	}
	return found, nil
}

// searchDay splits one saturated day by severity and type. Lists given in
// the filter restrict the partition.
func (s *Service) searchDay(params, filter map[string]string) ([]*Issue, error) {
	severities := listOr(filter["severities"], defaultSeverities)
	types := listOr(filter["types"], defaultTypes)
	s.logger.Debug("searching daily issues", "project", params["componentKeys"], "day", params["createdAfter"], "severities", severities, "types", types)

	p := copyParams(params)
	var result []*Issue
	for _, severity := range severities {
		for _, issueType := range types {
			p["severities"] = severity
			p["types"] = issueType
			found, total, err := s.searchPages(p, false)
			if err != nil {
				return nil, err
			}
			if total >= s.maxResults {
				s.logger.Warn("daily partition hits the search cap, results are incomplete",
					"project", p["componentKeys"], "day", p["createdAfter"], "severity", severity, "type", issueType,
					"total", total, "fetched", len(found))
			}
			result = append(result, found...)
		}
	}
	s.logger.Info("daily issues fetched", "project", params["componentKeys"], "day", params["createdAfter"], "issues", len(result))
	return result, nil
}

// searchPages reads a query page by page, up to maxPages, and returns the
// issues along with the total the server reported. With stopAtCap it gives
// up after the first page when the total reaches the result cap.
func (s *Service) searchPages(params map[string]string, stopAtCap bool) ([]*Issue, int, error) {
	p := copyParams(params)
	p["ps"] = strconv.Itoa(s.pageSize)

	var result []*Issue
	total := 0
	for page := 1; page <= s.maxPages; page++ {
		p["p"] = strconv.Itoa(page)
		resp, err := s.api.SearchIssues(p)
		if err != nil {
			return nil, 0, err
		}
		found, err := issuesFromResponse(resp)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, found...)
		total = resp.Paging.Total
		if stopAtCap && total >= s.maxResults {
			return nil, total, nil
		}

		pages := (total + s.pageSize - 1) / s.pageSize
		if page >= pages || len(found) == 0 {
			return result, total, nil
		}
	}

	if total > len(result) {
		s.logger.Warn("search truncated after the maximum number of pages",
			"maxPages", s.maxPages, "total", total, "fetched", len(result))
	}
	return result, total, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func listOr(value string, fallback []string) []string {
	if value == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+4)
	for k, v := range params {
		out[k] = v
	}
	return out
}
