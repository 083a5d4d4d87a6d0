package sonar

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/sonar-sync/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&config.Config{}, hclog.NewNullLogger(), srv.URL+"/", AuthInfo{Token: "squ_test"})
	require.NoError(t, err)
	c.RestyClient.SetRetryCount(0)
	return c
}

func TestSearchIssues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/issues/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "comments", q.Get("additionalFields"))
		assert.Equal(t, "proj", q.Get("componentKeys"))
		assert.Empty(t, q.Get("bogus"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "squ_test", user)
		assert.Empty(t, pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total": 1,
			"paging": {"pageIndex": 1, "pageSize": 100, "total": 1},
			"issues": [{"key": "AX1", "rule": "go:S100", "line": 12, "comments": [{"login": "bob", "markdown": "hi", "createdAt": "2023-01-01T00:00:00+0000"}]}],
			"components": [{"key": "proj", "name": "Project", "qualifier": "TRK"}]
		}`))
	})

	resp, err := c.SearchIssues(map[string]string{"componentKeys": "proj", "bogus": "x", "types": ""})
	require.NoError(t, err)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, "AX1", *resp.Issues[0].Key)
	assert.Equal(t, 12, *resp.Issues[0].Line)
	assert.Nil(t, resp.Issues[0].Hash)
	assert.Equal(t, 1, resp.Paging.Total)
	assert.Equal(t, "Project", resp.ProjectName("proj"))
	assert.Equal(t, "other", resp.ProjectName("other"))
	assert.Len(t, resp.Issues[0].Comments, 1)
}

func TestGetCommentsKeepsBranchScope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "AX1", q.Get("issues"))
		assert.Equal(t, "feature/x", q.Get("branch"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total": 1,
			"paging": {"pageIndex": 1, "pageSize": 100, "total": 1},
			"issues": [{"key": "AX1", "comments": [{"login": "bob", "markdown": "on branch", "createdAt": "2023-01-01T00:00:00+0000"}]}]
		}`))
	})

	comments, err := c.GetComments("AX1", map[string]string{"branch": "feature/x"})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "on branch", comments[0].Markdown)
}

func TestSearchParams(t *testing.T) {
	got := SearchParams(map[string]string{"additionalFields": "rules", "branch": "dev", "foo": "bar"})
	assert.Equal(t, map[string]string{"additionalFields": "rules,comments", "branch": "dev"}, got)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"msg":"Issue with key 'nope' does not exist"}]}`))
	})

	_, err := c.GetChangelog("nope")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, []string{"Issue with key 'nope' does not exist"}, apiErr.Messages)
}

func TestGetChangelog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AX1", r.URL.Query().Get("issue"))
		_, _ = w.Write([]byte(`{"changelog":[{"user":"alice","creationDate":"2023-02-01T10:00:00+0100","diffs":[{"key":"severity","oldValue":"MAJOR","newValue":"BLOCKER"}]}]}`))
	})

	entries, err := c.GetChangelog("AX1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].User)
	require.Len(t, entries[0].Diffs, 1)
	assert.Equal(t, "BLOCKER", *entries[0].Diffs[0].NewValue)
}

func TestStateChangingCalls(t *testing.T) {
	type call struct{ path, form string }
	var calls []call

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		calls = append(calls, call{r.URL.Path, r.PostForm.Encode()})
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.AddComment("K", "hello"))
	require.NoError(t, c.SetSeverity("K", "MINOR"))
	require.NoError(t, c.Assign("K", ""))
	require.NoError(t, c.SetTags("K", "a,b"))
	require.NoError(t, c.SetType("K", "BUG"))
	require.NoError(t, c.DoTransition("K", "wontfix"))

	assert.Equal(t, []call{
		{"/api/issues/add_comment", "issue=K&text=hello"},
		{"/api/issues/set_severity", "issue=K&severity=MINOR"},
		{"/api/issues/assign", "assignee=&issue=K"},
		{"/api/issues/set_tags", "issue=K&tags=a%2Cb"},
		{"/api/issues/set_type", "issue=K&type=BUG"},
		{"/api/issues/do_transition", "issue=K&transition=wontfix"},
	}, calls)
}

func TestSearchProjectsPaginates(t *testing.T) {
	pages := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("p") == "1" {
			body := `{"paging":{"pageIndex":1,"pageSize":500,"total":501},"components":[`
			for i := 0; i < 500; i++ {
				if i > 0 {
					body += ","
				}
				body += `{"key":"p","name":"P"}`
			}
			_, _ = w.Write([]byte(body + `]}`))
			return
		}
		_, _ = w.Write([]byte(`{"paging":{"pageIndex":2,"pageSize":500,"total":501},"components":[{"key":"last","name":"Last"}]}`))
	})

	projects, err := c.SearchProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 501)
	assert.Equal(t, "last", projects[500].Key)
	assert.Equal(t, 2, pages)
}

func TestServerVersion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("8.9.10.61524"))
	})

	v, err := c.ServerVersion()
	require.NoError(t, err)
	assert.Equal(t, "8.9.10.61524", v.String())
	assert.False(t, v.AtLeast(9, 0, 0))
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"9.0", true},
		{"9.9.1.69595", true},
		{"10.2", true},
		{"8.9.10", false},
		{"7", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			v, err := ParseVersion(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.AtLeast(9, 0, 0))
		})
	}

	_, err := ParseVersion("nine")
	assert.Error(t, err)
}

func TestUpdateCustomMeasure(t *testing.T) {
	var posted []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/custom_measures/search":
			_, _ = w.Write([]byte(`{"customMeasures":[{"id":"42","projectKey":"proj","value":"1","metric":{"key":"team"}},{"id":"43","metric":{"key":"other"}}]}`))
		default:
			assert.NoError(t, r.ParseForm())
			posted = append(posted, r.URL.Path+"?"+r.PostForm.Encode())
		}
	})

	require.NoError(t, c.UpdateCustomMeasure("proj", "team", "7", ""))
	require.NoError(t, c.UpdateCustomMeasure("proj", "missing", "3", "created"))

	assert.Equal(t, []string{
		"/api/custom_measures/update?id=42&value=7",
		"/api/custom_measures/create?description=created&metricKey=missing&projectKey=proj&value=3",
	}, posted)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(&config.Config{}, hclog.NewNullLogger(), "", AuthInfo{})
	assert.Error(t, err)
}

func TestCustomMeasuresSupported(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"8.9.10.61524", false},
		{"9.0.0.45539", true},
		{"10.4", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			var measureCalls int
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/server/version" {
					measureCalls++
				}
				_, _ = w.Write([]byte(tt.version))
			})

			err := c.CustomMeasuresSupported()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedVersion)
			} else {
				assert.NoError(t, err)
			}
			assert.Zero(t, measureCalls)
		})
	}
}
