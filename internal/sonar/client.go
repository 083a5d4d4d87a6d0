package sonar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/sonar-sync/internal/config"
	"github.com/scan-io-git/sonar-sync/internal/httpclient"
)

// Client talks to a SonarQube server over its web API.
type Client struct {
	RestyClient *resty.Client
	BaseURL     string
	Logger      hclog.Logger
}

// AuthInfo holds authentication details for the server.
type AuthInfo struct {
	Token string // user token, sent as the basic auth login with an empty password
}

// New initializes a client for the server at baseURL.
func New(globalConfig *config.Config, logger hclog.Logger, baseURL string, auth AuthInfo) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("sonar url is not set")
	}

	restyClient := httpclient.New(logger, globalConfig)
	if auth.Token != "" {
		restyClient.SetBasicAuth(auth.Token, "")
	}

	return &Client{
		RestyClient: restyClient,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Logger:      logger,
	}, nil
}

// resolveURL constructs the full URL by checking if the path is absolute or relative.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.BaseURL + path
}

// headersBuilder returns a common request builder with the necessary headers.
func (c *Client) headersBuilder() *resty.Request {
	return c.RestyClient.R().
		SetHeader("Accept", "application/json")
}

// get sends a GET request using the client's base URL, path, and query parameters provided.
func (c *Client) get(path string, queryParams map[string]string) (*resty.Response, error) {
	c.Logger.Trace("GET", "path", path, "params", queryParams)
	return c.headersBuilder().
		SetQueryParams(queryParams).
		Get(c.resolveURL(path))
}

// post sends a form encoded POST request, which is what state-changing web API endpoints expect.
func (c *Client) post(path string, form map[string]string) (*resty.Response, error) {
	c.Logger.Trace("POST", "path", path, "params", form)
	return c.headersBuilder().
		SetFormData(form).
		Post(c.resolveURL(path))
}

// checkResponse turns a non-2xx response into an *APIError.
func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() < 300 {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	var errorList ErrorList
	if err := json.Unmarshal(resp.Body(), &errorList); err == nil && len(errorList.Errors) > 0 {
		for _, e := range errorList.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Msg)
		}
	} else if body := strings.TrimSpace(resp.String()); body != "" {
		apiErr.Messages = []string{body}
	}
	return apiErr
}

// unmarshalResponse is a generic function to parse JSON body from response into the provided type.
// It also checks the HTTP response code and API error messages.
func unmarshalResponse[T any](resp *resty.Response, out *T) error {
	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// postAction sends a state-changing request that returns nothing of interest.
func (c *Client) postAction(path string, form map[string]string) error {
	resp, err := c.post(path, form)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", path, err)
	}
	return checkResponse(resp)
}
