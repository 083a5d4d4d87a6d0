package issues

// SyncOptions tunes Sync.
type SyncOptions struct {
	IgnoreComponent bool
}

// Replication records one history copied from a source issue to a target issue.
type Replication struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Operations int    `json:"operations"`
}

// Ambiguity records a source issue with several candidate targets.
type Ambiguity struct {
	Source     string   `json:"source"`
	Candidates []string `json:"candidates"`
}

// SyncFailure records an issue that could not be processed.
type SyncFailure struct {
	Source     string `json:"source"`
	Target     string `json:"target,omitempty"`
	Operations int    `json:"operations,omitempty"`
	Error      string `json:"error"`
}

// SyncReport summarizes a Sync run.
type SyncReport struct {
	Scanned        int           `json:"scanned"`
	WithoutHistory int           `json:"withoutHistory"`
	Replicated     []Replication `json:"replicated"`
	Ambiguous      []Ambiguity   `json:"ambiguous"`
	Unmatched      []string      `json:"unmatched"`
	Failures       []SyncFailure `json:"failures"`
}

// Sync copies the history of every source issue that has one onto its single
// new sibling in targets. Sources with no sibling or with several are only
// reported. Failures on one issue do not stop the run.
func (s *Service) Sync(sources, targets []*Issue, opts SyncOptions) *SyncReport {
	report := &SyncReport{
		Replicated: []Replication{},
		Ambiguous:  []Ambiguity{},
		Unmatched:  []string{},
		Failures:   []SyncFailure{},
	}

	for _, source := range sources {
		report.Scanned++

		hasHistory, err := s.HasHistory(source)
		if err != nil {
			s.logger.Error("failed to read source history", "source", source.Key, "error", err)
			report.Failures = append(report.Failures, SyncFailure{Source: source.Key, Error: err.Error()})
			continue
		}
		if !hasHistory {
			report.WithoutHistory++
			continue
		}

		siblings, err := s.FindSiblings(source, targets, true, opts.IgnoreComponent)
		if err != nil {
			s.logger.Error("sibling search failed", "source", source.Key, "error", err)
			report.Failures = append(report.Failures, SyncFailure{Source: source.Key, Error: err.Error()})
			continue
		}

		switch len(siblings) {
		case 0:
			s.logger.Debug("no new sibling found", "source", source.Key)
			report.Unmatched = append(report.Unmatched, source.Key)
		case 1:
			target := siblings[0]
			applied, err := s.ApplyChangelog(target, source)
			if err != nil {
				s.logger.Error("replication failed", "source", source.Key, "target", target.Key, "operations", applied, "error", err)
				report.Failures = append(report.Failures, SyncFailure{
					Source: source.Key, Target: target.Key, Operations: applied, Error: err.Error(),
				})
				continue
			}
			report.Replicated = append(report.Replicated, Replication{Source: source.Key, Target: target.Key, Operations: applied})
		default:
			keys := make([]string, 0, len(siblings))
			for _, sib := range siblings {
				keys = append(keys, sib.Key)
			}
			s.logger.Warn("several new siblings found, skipping", "source", source.Key, "candidates", keys)
			report.Ambiguous = append(report.Ambiguous, Ambiguity{Source: source.Key, Candidates: keys})
		}
	}

	s.logger.Info("synchronization done",
		"scanned", report.Scanned,
		"replicated", len(report.Replicated),
		"ambiguous", len(report.Ambiguous),
		"unmatched", len(report.Unmatched),
		"failures", len(report.Failures))
	return report
}
