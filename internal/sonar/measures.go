package sonar

import (
	"fmt"
)

// SearchCustomMeasures returns the custom measures of a project, optionally restricted to one metric.
func (c *Client) SearchCustomMeasures(projectKey, metricKey string) ([]CustomMeasure, error) {
	resp, err := c.get("/api/custom_measures/search", map[string]string{"projectKey": projectKey, "ps": "500"})
	if err != nil {
		return nil, fmt.Errorf("error searching custom measures: %w", err)
	}

	var body struct {
		CustomMeasures []CustomMeasure `json:"customMeasures"`
	}
	if err := unmarshalResponse(resp, &body); err != nil {
		return nil, err
	}
	if metricKey == "" {
		return body.CustomMeasures, nil
	}

	var result []CustomMeasure
	for _, m := range body.CustomMeasures {
		if m.Metric.Key == metricKey {
			result = append(result, m)
		}
	}
	return result, nil
}

// UpdateCustomMeasure sets the value of a project's custom measure, creating it when missing.
// An empty description leaves the current one untouched.
func (c *Client) UpdateCustomMeasure(projectKey, metricKey, value, description string) error {
	existing, err := c.SearchCustomMeasures(projectKey, metricKey)
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		c.Logger.Debug("creating custom measure", "project", projectKey, "metric", metricKey)
		form := map[string]string{"projectKey": projectKey, "metricKey": metricKey, "value": value}
		if description != "" {
			form["description"] = description
		}
		return c.postAction("/api/custom_measures/create", form)
	}

	form := map[string]string{"id": existing[0].ID, "value": value}
	if description != "" {
		form["description"] = description
	}
	c.Logger.Debug("updating custom measure", "project", projectKey, "metric", metricKey, "id", existing[0].ID)
	return c.postAction("/api/custom_measures/update", form)
}

// CustomMeasuresSupported fails with ErrUnsupportedVersion on servers where custom measures were removed.
func (c *Client) CustomMeasuresSupported() error {
	v, err := c.ServerVersion()
	if err != nil {
		return err
	}
	if v.AtLeast(9, 0, 0) {
		return fmt.Errorf("%w: custom measures are no longer supported after 8.9.x, server is %s", ErrUnsupportedVersion, v)
	}
	c.Logger.Warn("custom measures are deprecated in 8.9 and lower and are dropped starting from 9.0", "version", v.String())
	return nil
}
