package issues

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/sonar-sync/internal/sonar"
	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

// API is the subset of the server web API the issue engine relies on.
type API interface {
	SearchIssues(params map[string]string) (*sonar.SearchResponse, error)
	SearchProjects() ([]sonar.Project, error)
	GetChangelog(issueKey string) ([]changelog.Entry, error)
	GetComments(issueKey string, scope map[string]string) ([]sonar.Comment, error)
	AddComment(issueKey, text string) error
	SetSeverity(issueKey, severity string) error
	Assign(issueKey, login string) error
	SetTags(issueKey, tags string) error
	SetType(issueKey, issueType string) error
	DoTransition(issueKey, transition string) error
}

// Service runs searches, history reconstruction, matching and replication against one server.
type Service struct {
	api            API
	logger         hclog.Logger
	serverURL      string
	addLinkComment bool

	maxResults int
	pageSize   int
	maxPages   int
}

// Option configures a Service.
type Option func(*Service)

// WithLinkComment controls whether replication starts with a comment linking back to the source issue.
func WithLinkComment(enabled bool) Option {
	return func(s *Service) {
		s.addLinkComment = enabled
	}
}

// WithSearchLimits overrides the server result cap, the page size and the number of pages read per query.
func WithSearchLimits(maxResults, pageSize, maxPages int) Option {
	return func(s *Service) {
		s.maxResults = maxResults
		s.pageSize = pageSize
		s.maxPages = maxPages
	}
}

// NewService creates a Service. serverURL is used to build issue links.
func NewService(api API, logger hclog.Logger, serverURL string, opts ...Option) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Service{
		api:            api,
		logger:         logger,
		serverURL:      serverURL,
		addLinkComment: true,
		maxResults:     sonar.MaxSearchResults,
		pageSize:       500,
		maxPages:       20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeline returns the merged history and comments of an issue, technical
// events included. The result is cached on the issue; force bypasses the
// cache and re-reads comments even when the search record carried them.
func (s *Service) Timeline(issue *Issue, force bool) (changelog.Timeline, error) {
	if issue.timelineLoaded && !force {
		return issue.timeline, nil
	}

	entries, err := s.api.GetChangelog(issue.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch changelog of %s: %w", issue.Key, err)
	}

	history := make([]changelog.Event, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Diffs) == 0 {
			s.logger.Debug("skipping changelog entry without diffs", "issue", issue.Key, "date", entry.CreationDate)
			continue
		}
		ev, err := changelog.FromEntry(entry)
		if err != nil {
			return nil, &DataIntegrityError{Issue: issue.Key, Field: "changelog.creationDate", Err: err}
		}
		if ev.Kind == changelog.KindUnknown {
			s.logger.Warn("could not determine changelog event type", "issue", issue.Key, "diffs", fmt.Sprintf("%+v", entry.Diffs))
		}
		history = append(history, ev)
	}

	comments := issue.comments
	if force || !issue.commentsLoaded {
		comments, err = s.api.GetComments(issue.Key, issue.scope())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch comments of %s: %w", issue.Key, err)
		}
	}

	commentEvents := make([]changelog.Event, 0, len(comments))
	for _, c := range comments {
		date, err := changelog.ParseDate(c.CreatedAt)
		if err != nil {
			return nil, &DataIntegrityError{Issue: issue.Key, Field: "comments.createdAt", Err: err}
		}
		commentEvents = append(commentEvents, changelog.Event{
			Kind:   changelog.KindComment,
			Value:  c.Markdown,
			Date:   date,
			Author: c.Login,
		})
	}

	issue.timeline = changelog.Merge(history, commentEvents)
	issue.timelineLoaded = true
	s.logger.Debug("built issue timeline", "issue", issue.Key, "events", len(issue.timeline))
	return issue.timeline, nil
}

// HasHistory reports whether a user changed or commented the issue.
// Branch merges and effort recomputations do not count.
func (s *Service) HasHistory(issue *Issue) (bool, error) {
	tl, err := s.Timeline(issue, false)
	if err != nil {
		return false, err
	}
	return !tl.Replayable().Empty(), nil
}

// Read re-fetches the issue and replaces its fields.
func (s *Service) Read(issue *Issue) error {
	params := issue.scope()
	params["issues"] = issue.Key
	resp, err := s.api.SearchIssues(params)
	if err != nil {
		return fmt.Errorf("failed to read issue %s: %w", issue.Key, err)
	}

	for _, rec := range resp.Issues {
		if deref(rec.Key) != issue.Key {
			continue
		}
		fresh, err := NewIssue(rec, resp.ProjectName(deref(rec.Project)))
		if err != nil {
			return err
		}
		*issue = *fresh
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoIssue, issue.Key)
}

// issuesFromResponse converts every record of a search response.
func issuesFromResponse(resp *sonar.SearchResponse) ([]*Issue, error) {
	result := make([]*Issue, 0, len(resp.Issues))
	for _, rec := range resp.Issues {
		issue, err := NewIssue(rec, resp.ProjectName(deref(rec.Project)))
		if err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, nil
}
