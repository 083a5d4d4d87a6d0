package issues

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

// ErrNoIssue is returned when a re-fetch finds no issue with the requested key.
var ErrNoIssue = errors.New("issue not found")

// DataIntegrityError reports a field the server is expected to always provide.
type DataIntegrityError struct {
	Issue string
	Field string
	Err   error
}

func (e *DataIntegrityError) Error() string {
	issue := e.Issue
	if issue == "" {
		issue = "<no key>"
	}
	if e.Err != nil {
		return fmt.Sprintf("issue %s: invalid field %q: %v", issue, e.Field, e.Err)
	}
	return fmt.Sprintf("issue %s: missing required field %q", issue, e.Field)
}

func (e *DataIntegrityError) Unwrap() error {
	return e.Err
}

// UnresolvableEventError is returned when replaying a history event that has no target-side operation.
type UnresolvableEventError struct {
	Issue string
	Event changelog.Event
}

func (e *UnresolvableEventError) Error() string {
	return fmt.Sprintf("issue %s: cannot replay event %s of %s", e.Issue, e.Event, e.Event.Date.Format(changelog.DateLayout))
}

// TooManyIssuesError signals a query matching at least the server's result cap.
type TooManyIssuesError struct {
	Total  int
	Params map[string]string
}

func (e *TooManyIssuesError) Error() string {
	return "query matches " + strconv.Itoa(e.Total) + " issues, more than a single search can return"
}
