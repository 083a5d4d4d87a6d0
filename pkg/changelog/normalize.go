package changelog

// Normalize maps the diffs of one history entry to exactly one Event.
// The first diff matching a known rule decides the event. An empty or
// unrecognized set yields KindUnknown.
func Normalize(diffs []Diff) Event {
	for _, d := range diffs {
		if ev, ok := normalizeDiff(d); ok {
			return ev
		}
	}
	return Event{Kind: KindUnknown}
}

func normalizeDiff(d Diff) (Event, bool) {
	newValue := value(d.NewValue)
	oldValue := value(d.OldValue)

	switch d.Key {
	case "severity":
		return Event{Kind: KindSeverity, Value: newValue}, true
	case "type":
		return Event{Kind: KindType, Value: newValue}, true
	case "tags", "tag":
		return Event{Kind: KindTags, Value: newValue}, true
	case "resolution":
		switch newValue {
		case "FALSE-POSITIVE":
			return transition(TransitionFalsePositive), true
		case "WONTFIX":
			return transition(TransitionWontFix), true
		case "FIXED":
			return Event{Kind: KindFixed}, true
		}
	case "status":
		switch {
		case newValue == "CONFIRMED":
			return transition(TransitionConfirm), true
		case newValue == "REOPENED" && oldValue == "CONFIRMED":
			return transition(TransitionUnconfirm), true
		case newValue == "REOPENED":
			return transition(TransitionReopen), true
		case newValue == "OPEN" && oldValue == "CLOSED":
			return transition(TransitionReopen), true
		}
	case "assignee":
		if d.NewValue != nil {
			return Event{Kind: KindAssign, Value: newValue}, true
		}
		return Event{Kind: KindUnassign}, true
	case "from_short_branch", "from_branch":
		return Event{Kind: KindMerge, Value: oldValue + " -> " + newValue}, true
	case "effort":
		return Event{Kind: KindEffort, Value: oldValue + " -> " + newValue}, true
	}
	return Event{}, false
}

func transition(t Transition) Event {
	return Event{Kind: KindTransition, Transition: t}
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
