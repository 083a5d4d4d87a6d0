package issues

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/sonar-sync/pkg/changelog"
)

// wontFixHotspotComment explains a vulnerability closed in place of a reviewed hotspot.
const wontFixHotspotComment = "Vulnerability marked as won't fix to replace hotspot 'reviewed' status"

// transitionOutcome is the local status and resolution after a successful transition.
var transitionOutcome = map[changelog.Transition][2]string{
	changelog.TransitionConfirm:           {"CONFIRMED", ""},
	changelog.TransitionUnconfirm:         {"REOPENED", ""},
	changelog.TransitionReopen:            {"REOPENED", ""},
	changelog.TransitionFalsePositive:     {"RESOLVED", "FALSE-POSITIVE"},
	changelog.TransitionWontFix:           {"RESOLVED", "WONTFIX"},
	changelog.TransitionResolveAsReviewed: {"REVIEWED", "FIXED"},
}

// ApplyChangelog replays the history of source onto target and returns the
// number of state-changing calls made. A target that already has history is
// left untouched. Technical events are neither history nor replayed. Replay
// stops at the first event that cannot be mapped to an operation; calls made
// before it stay in effect.
func (s *Service) ApplyChangelog(target, source *Issue) (int, error) {
	targetHistory, err := s.Timeline(target, true)
	if err != nil {
		return 0, err
	}
	if !targetHistory.Replayable().Empty() {
		s.logger.Error("can't apply changelog to an issue that already has one", "target", target.Key, "source", source.Key)
		return 0, nil
	}

	sourceHistory, err := s.Timeline(source, false)
	if err != nil {
		return 0, err
	}
	events := sourceHistory.Replayable()
	if events.Empty() {
		s.logger.Debug("source has no changelog, no action taken", "source", source.Key)
		return 0, nil
	}

	s.logger.Info("applying changelog", "source", source.Key, "target", target.Key, "events", len(events))
	applied := 0
	if s.addLinkComment {
		text := fmt.Sprintf("Synchronized from [this original issue](%s)", source.URL(s.serverURL))
		if err := s.addComment(target, text); err != nil {
			return applied, err
		}
		applied++
	}

	for _, ev := range events {
		s.logger.Debug("replaying event", "target", target.Key, "event", ev.String(), "date", ev.Date)
		n, err := s.replay(target, ev)
		applied += n
		if err != nil {
			return applied, err
		}
	}

	s.logger.Info("changelog applied", "source", source.Key, "target", target.Key, "operations", applied)
	return applied, nil
}

// replay dispatches one event to the matching operation on target.
func (s *Service) replay(target *Issue, ev changelog.Event) (int, error) {
	key := target.Key
	switch ev.Kind {
	case changelog.KindSeverity:
		if err := s.api.SetSeverity(key, ev.Value); err != nil {
			return 0, s.failed(target, ev, err)
		}
		target.Severity = ev.Value
	case changelog.KindType:
		if err := s.api.SetType(key, ev.Value); err != nil {
			return 0, s.failed(target, ev, err)
		}
		target.Type = ev.Value
	case changelog.KindTransition:
		if ev.Transition == changelog.TransitionResolveAsReviewed {
			return s.MarkReviewed(target)
		}
		if err := s.transition(target, ev.Transition); err != nil {
			return 0, s.failed(target, ev, err)
		}
	case changelog.KindAssign, changelog.KindUnassign:
		if err := s.api.Assign(key, ev.Value); err != nil {
			return 0, s.failed(target, ev, err)
		}
		target.Assignee = ev.Value
	case changelog.KindTags:
		tags := strings.ReplaceAll(ev.Value, " ", ",")
		if err := s.api.SetTags(key, tags); err != nil {
			return 0, s.failed(target, ev, err)
		}
		target.Tags = splitTags(tags)
	case changelog.KindComment:
		if err := s.addComment(target, ev.Value); err != nil {
			return 0, err
		}
	case changelog.KindMerge, changelog.KindEffort:
		s.logger.Debug("skipping technical change", "target", key, "event", ev.String())
		return 0, nil
	case changelog.KindFixed:
		s.logger.Warn("resolution as fixed is not replicated", "target", key, "date", ev.Date)
		return 0, nil
	default:
		return 0, &UnresolvableEventError{Issue: key, Event: ev}
	}

	target.invalidate()
	return 1, nil
}

// MarkReviewed closes a hotspot as reviewed. A vulnerability, which is what
// hotspots used to be reported as, is closed as won't fix with an explanation.
// Other types are left alone. It returns the number of calls made.
func (s *Service) MarkReviewed(issue *Issue) (int, error) {
	switch issue.Type {
	case TypeSecurityHotspot:
		if err := s.transition(issue, changelog.TransitionResolveAsReviewed); err != nil {
			return 0, err
		}
		return 1, nil
	case TypeVulnerability:
		if err := s.transition(issue, changelog.TransitionWontFix); err != nil {
			return 0, err
		}
		if err := s.addComment(issue, wontFixHotspotComment); err != nil {
			return 1, err
		}
		return 2, nil
	default:
		s.logger.Debug("issue is neither a hotspot nor a vulnerability, not marking as reviewed", "issue", issue.Key, "type", issue.Type)
		return 0, nil
	}
}

func (s *Service) transition(issue *Issue, t changelog.Transition) error {
	if err := s.api.DoTransition(issue.Key, string(t)); err != nil {
		return fmt.Errorf("transition %s on %s failed: %w", t, issue.Key, err)
	}
	if outcome, ok := transitionOutcome[t]; ok {
		issue.Status, issue.Resolution = outcome[0], outcome[1]
	}
	issue.invalidate()
	return nil
}

func (s *Service) addComment(issue *Issue, text string) error {
	if err := s.api.AddComment(issue.Key, text); err != nil {
		return fmt.Errorf("adding comment to %s failed: %w", issue.Key, err)
	}
	issue.invalidate()
	return nil
}

func (s *Service) failed(target *Issue, ev changelog.Event, err error) error {
	return fmt.Errorf("replaying %s on %s failed: %w", ev, target.Key, err)
}

func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
