package issues

// Score rates how alike two issues are. Issues with a different rule or
// hash score 0. Otherwise each difference in component (unless ignored),
// message or debt costs 0.1 from a perfect 1.0.
func Score(a, b *Issue, ignoreComponent bool) (float64, error) {
	if err := a.validate(); err != nil {
		return 0, err
	}
	if err := b.validate(); err != nil {
		return 0, err
	}
	if a.Rule != b.Rule || a.Hash != b.Hash {
		return 0, nil
	}

	mismatches := 0
	if !ignoreComponent && a.Component != b.Component {
		mismatches++
	}
	if a.Message != b.Message {
		mismatches++
	}
	if a.Debt != b.Debt {
		mismatches++
	}
	return float64(10-mismatches) / 10, nil
}

// IdenticalTo reports whether b represents the same defect as a. Debt is not
// compared when either side is a hotspot since hotspots carry no effort.
func IdenticalTo(a, b *Issue, ignoreComponent bool) (bool, error) {
	if err := a.validate(); err != nil {
		return false, err
	}
	if err := b.validate(); err != nil {
		return false, err
	}

	if a.Rule != b.Rule || a.Hash != b.Hash || a.Message != b.Message {
		return false, nil
	}
	if !ignoreComponent && a.Component != b.Component {
		return false, nil
	}
	if !a.IsHotspot() && !b.IsHotspot() && a.Debt != b.Debt {
		return false, nil
	}
	return true, nil
}

// FindSiblings returns the members of pool identical to target, in pool
// order. With onlyNew, candidates that already have a history are dropped.
// A candidate whose history cannot be fetched is skipped with a warning.
func (s *Service) FindSiblings(target *Issue, pool []*Issue, onlyNew, ignoreComponent bool) ([]*Issue, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	var siblings []*Issue
	for _, candidate := range pool {
		if candidate == target || (candidate != nil && candidate.Key == target.Key) {
			continue
		}

		identical, err := IdenticalTo(target, candidate, ignoreComponent)
		if err != nil {
			return nil, err
		}
		if !identical {
			continue
		}

		if onlyNew {
			hasHistory, err := s.HasHistory(candidate)
			if err != nil {
				s.logger.Warn("skipping sibling candidate, history unavailable", "issue", target.Key, "candidate", candidate.Key, "error", err)
				continue
			}
			if hasHistory {
				s.logger.Debug("sibling candidate already has history", "issue", target.Key, "candidate", candidate.Key)
				continue
			}
		}
		siblings = append(siblings, candidate)
	}

	s.logger.Debug("sibling search done", "issue", target.Key, "poolSize", len(pool), "siblings", len(siblings))
	return siblings, nil
}
