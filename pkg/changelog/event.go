// Package changelog turns the field-level history of an issue into canonical events.
package changelog

import (
	"fmt"
	"time"
)

// DateLayout is the timestamp format used by the server for changelog entries and comments.
const DateLayout = "2006-01-02T15:04:05-0700"

// Kind is the closed set of event kinds a history entry may normalize to.
type Kind int

const (
	KindUnknown Kind = iota
	KindAssign
	KindUnassign
	KindSeverity
	KindType
	KindTransition
	KindTags
	KindMerge
	KindEffort
	KindFixed
	KindComment
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindAssign:     "assign",
	KindUnassign:   "unassign",
	KindSeverity:   "severity",
	KindType:       "type",
	KindTransition: "transition",
	KindTags:       "tags",
	KindMerge:      "merge",
	KindEffort:     "effort",
	KindFixed:      "fixed",
	KindComment:    "comment",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText lets kinds appear by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Transition is a workflow transition name as accepted by the do_transition endpoint.
type Transition string

const (
	TransitionConfirm           Transition = "confirm"
	TransitionUnconfirm         Transition = "unconfirm"
	TransitionReopen            Transition = "reopen"
	TransitionFalsePositive     Transition = "falsepositive"
	TransitionWontFix           Transition = "wontfix"
	TransitionResolveAsReviewed Transition = "resolveasreviewed"
)

// Diff is a single field change inside a history entry.
type Diff struct {
	Key      string  `json:"key"`
	OldValue *string `json:"oldValue,omitempty"`
	NewValue *string `json:"newValue,omitempty"`
}

// Entry is one raw history record as returned by api/issues/changelog.
type Entry struct {
	CreationDate string `json:"creationDate"`
	User         string `json:"user,omitempty"`
	Diffs        []Diff `json:"diffs"`
}

// Event is the canonical form of one history entry or one comment.
type Event struct {
	Kind       Kind       `json:"kind"`
	Transition Transition `json:"transition,omitempty"`
	Value      string     `json:"value,omitempty"`
	Date       time.Time  `json:"date"`
	Author     string     `json:"author,omitempty"`
	Seq        int        `json:"seq"`
}

func (e Event) String() string {
	switch e.Kind {
	case KindTransition:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Transition)
	case KindUnassign, KindFixed, KindUnknown:
		return e.Kind.String()
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Value)
	}
}

// Technical reports whether the event was generated by the server, such as a
// branch merge or an effort recomputation, rather than by a user.
func (e Event) Technical() bool {
	return e.Kind == KindMerge || e.Kind == KindEffort
}

// ParseDate parses a server timestamp.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// FromEntry normalizes a history entry and stamps it with the entry's date and author.
func FromEntry(entry Entry) (Event, error) {
	date, err := ParseDate(entry.CreationDate)
	if err != nil {
		return Event{}, err
	}
	ev := Normalize(entry.Diffs)
	ev.Date = date
	ev.Author = entry.User
	return ev, nil
}
