package issues

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/scan-io-git/sonar-sync/internal/sonar"
	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

const fakeNow = "2024-01-01T00:00:00+0000"

// fakeAPI is an in-memory server. State-changing calls are recorded in ops
// and show up in later changelog and comment reads.
type fakeAPI struct {
	records        []sonar.IssueRecord
	projects       []sonar.Project
	changelogs     map[string][]changelog.Entry
	comments       map[string][]sonar.Comment
	changelogErr   map[string]error
	changelogCalls map[string]int
	commentCalls   map[string]int
	commentScopes  []map[string]string
	failOp         string
	searches       []map[string]string
	ops            []string
}

func newFakeAPI(records ...sonar.IssueRecord) *fakeAPI {
	return &fakeAPI{
		records:        records,
		changelogs:     map[string][]changelog.Entry{},
		comments:       map[string][]sonar.Comment{},
		changelogErr:   map[string]error{},
		changelogCalls: map[string]int{},
		commentCalls:   map[string]int{},
	}
}

func (f *fakeAPI) SearchIssues(params map[string]string) (*sonar.SearchResponse, error) {
	logged := make(map[string]string, len(params))
	for k, v := range params {
		logged[k] = v
	}
	f.searches = append(f.searches, logged)

	var matched []sonar.IssueRecord
	for _, r := range f.records {
		if f.matches(r, params) {
			r.Comments = append([]sonar.Comment(nil), f.comments[deref(r.Key)]...)
			matched = append(matched, r)
		}
	}
	if params["s"] == "CREATION_DATE" {
		asc := params["asc"] != "false"
		sort.SliceStable(matched, func(i, j int) bool {
			if asc {
				return *matched[i].CreationDate < *matched[j].CreationDate
			}
			return *matched[i].CreationDate > *matched[j].CreationDate
		})
	}

	page, ps := 1, 100
	if v, err := strconv.Atoi(params["p"]); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(params["ps"]); err == nil {
		ps = v
	}
	from := (page - 1) * ps
	to := from + ps
	if from > len(matched) {
		from = len(matched)
	}
	if to > len(matched) {
		to = len(matched)
	}

	return &sonar.SearchResponse{
		Total:  len(matched),
		Paging: sonar.Paging{PageIndex: page, PageSize: ps, Total: len(matched)},
		Issues: matched[from:to],
	}, nil
}

func (f *fakeAPI) matches(r sonar.IssueRecord, params map[string]string) bool {
	inList := func(value, list string) bool {
		if list == "" {
			return true
		}
		for _, v := range strings.Split(list, ",") {
			if v == value {
				return true
			}
		}
		return false
	}
	day := (*r.CreationDate)[:10]
	switch {
	case !inList(deref(r.Project), params["componentKeys"]):
		return false
	case !inList(deref(r.Key), params["issues"]):
		return false
	case !inList(deref(r.Severity), params["severities"]):
		return false
	case !inList(deref(r.Type), params["types"]):
		return false
	case params["createdAfter"] != "" && day < params["createdAfter"]:
		return false
	case params["createdBefore"] != "" && day > params["createdBefore"]:
		return false
	}
	return true
}

func (f *fakeAPI) SearchProjects() ([]sonar.Project, error) {
	return f.projects, nil
}

func (f *fakeAPI) GetChangelog(issueKey string) ([]changelog.Entry, error) {
	f.changelogCalls[issueKey]++
	if err := f.changelogErr[issueKey]; err != nil {
		return nil, err
	}
	return f.changelogs[issueKey], nil
}

func (f *fakeAPI) GetComments(issueKey string, scope map[string]string) ([]sonar.Comment, error) {
	f.commentCalls[issueKey]++
	f.commentScopes = append(f.commentScopes, scope)
	return f.comments[issueKey], nil
}

func (f *fakeAPI) AddComment(issueKey, text string) error {
	if err := f.op("add_comment", issueKey, text); err != nil {
		return err
	}
	f.comments[issueKey] = append(f.comments[issueKey], sonar.Comment{Login: "sync", Markdown: text, CreatedAt: fakeNow})
	return nil
}

func (f *fakeAPI) SetSeverity(issueKey, severity string) error {
	return f.change("set_severity", issueKey, "severity", severity)
}

func (f *fakeAPI) Assign(issueKey, login string) error {
	return f.change("assign", issueKey, "assignee", login)
}

func (f *fakeAPI) SetTags(issueKey, tags string) error {
	return f.change("set_tags", issueKey, "tags", tags)
}

func (f *fakeAPI) SetType(issueKey, issueType string) error {
	return f.change("set_type", issueKey, "type", issueType)
}

func (f *fakeAPI) DoTransition(issueKey, transition string) error {
	return f.change("do_transition", issueKey, "status", transition)
}

func (f *fakeAPI) change(op, issueKey, field, value string) error {
	if err := f.op(op, issueKey, value); err != nil {
		return err
	}
	f.changelogs[issueKey] = append(f.changelogs[issueKey], changelog.Entry{
		CreationDate: fakeNow,
		User:         "sync",
		Diffs:        []changelog.Diff{{Key: field, NewValue: &value}},
	})
	return nil
}

func (f *fakeAPI) op(name, issueKey, value string) error {
	if name == f.failOp {
		return fmt.Errorf("%s refused", name)
	}
	f.ops = append(f.ops, name+" "+issueKey+" "+value)
	return nil
}

func ptr[T any](v T) *T { return &v }

// record returns a complete search record for a code smell.
func record(key, project, created string) sonar.IssueRecord {
	return sonar.IssueRecord{
		Key:          ptr(key),
		Rule:         ptr("go:S1234"),
		Hash:         ptr("abc"),
		Message:      ptr("Remove this"),
		Type:         ptr(TypeCodeSmell),
		Severity:     ptr("MAJOR"),
		Status:       ptr("OPEN"),
		Component:    ptr(project + ":main.go"),
		Project:      ptr(project),
		CreationDate: ptr(created),
		UpdateDate:   ptr(created),
		Debt:         ptr("10min"),
	}
}

func entry(date, user string, diffs ...changelog.Diff) changelog.Entry {
	return changelog.Entry{CreationDate: date, User: user, Diffs: diffs}
}

func diff(key string, oldValue, newValue *string) changelog.Diff {
	return changelog.Diff{Key: key, OldValue: oldValue, NewValue: newValue}
}
