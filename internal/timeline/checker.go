package timeline

// Result is the checker's verdict on a candidate assignment.
type Result struct {
	// Conflicts holds the existing assignments contradicting the
	// candidate, in record order. Empty means accepted.
	Conflicts []Assignment
}

// Accepted reports whether the candidate may be persisted.
func (r Result) Accepted() bool {
	return len(r.Conflicts) == 0
}

// Check decides whether candidate contradicts any assignment already on
// record. Only the conjunction of all four conditions is a conflict:
//
//   - same entity
//   - different, known places on both sides
//   - closed-interval overlap
//   - exact granularity on both sides
//
// Approximate assignments corroborate or coexist but never contradict;
// they are year-level extractions that must not block writing. The same
// place overlapping is corroboration, not contradiction.
func Check(candidate Assignment, existing []Assignment) Result {
	if !candidate.PlaceKnown() || candidate.Granularity() != GranularityExact {
		return Result{}
	}

	var conflicts []Assignment
	for _, prior := range existing {
		if !prior.SameEntity(candidate) {
			continue
		}
		if !prior.PlaceKnown() || prior.SamePlace(candidate) {
			continue
		}
		if prior.Granularity() != GranularityExact {
			continue
		}
		if !prior.Overlaps(candidate) {
			continue
		}
		conflicts = append(conflicts, prior)
	}
	return Result{Conflicts: conflicts}
}
