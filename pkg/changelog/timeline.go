package changelog

import "sort"

// Timeline is an ordered issue history. Events sharing a timestamp are all
// kept and ordered by their sequence number.
type Timeline []Event

// Merge combines history events and comment events into one Timeline.
// Sequence numbers follow input order, history first, and the result is
// sorted by (Date, Seq).
func Merge(history, comments []Event) Timeline {
	tl := make(Timeline, 0, len(history)+len(comments))
	for _, ev := range history {
		ev.Seq = len(tl)
		tl = append(tl, ev)
	}
	for _, ev := range comments {
		ev.Seq = len(tl)
		tl = append(tl, ev)
	}
	sort.SliceStable(tl, func(i, j int) bool {
		if tl[i].Date.Equal(tl[j].Date) {
			return tl[i].Seq < tl[j].Seq
		}
		return tl[i].Date.Before(tl[j].Date)
	})
	return tl
}

// Empty reports whether the timeline holds no events.
func (t Timeline) Empty() bool {
	return len(t) == 0
}

// Replayable returns the events made by users, in order. Technical events are left out.
func (t Timeline) Replayable() Timeline {
	var out Timeline
	for _, ev := range t {
		if !ev.Technical() {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns the number of events of the given kind.
func (t Timeline) Count(kind Kind) int {
	n := 0
	for _, ev := range t {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
