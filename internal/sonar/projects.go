package sonar

import (
	"fmt"
	"strconv"
)

const projectsPageSize = 500

// SearchProjects lists every project visible to the token.
func (c *Client) SearchProjects() ([]Project, error) {
	var result []Project
	page := 1
	c.Logger.Debug("fetching list of projects")

	for {
		c.Logger.Debug("fetching page of projects", "page", page, "pageSize", projectsPageSize)
		resp, err := c.get("/api/projects/search", map[string]string{
			"p":  strconv.Itoa(page),
			"ps": strconv.Itoa(projectsPageSize),
		})
		if err != nil {
			return nil, fmt.Errorf("error fetching projects: %w", err)
		}

		var body struct {
			Paging     Paging    `json:"paging"`
			Components []Project `json:"components"`
		}
		if err := unmarshalResponse(resp, &body); err != nil {
			return nil, err
		}

		result = append(result, body.Components...)
		if len(body.Components) == 0 || page*projectsPageSize >= body.Paging.Total {
			break
		}
		page++
	}

	c.Logger.Debug("successfully fetched all projects", "totalProjects", len(result))
	return result, nil
}
