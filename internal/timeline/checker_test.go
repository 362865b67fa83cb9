package timeline_test

import (
	"testing"

	"scrivener/internal/timeline"
)

func mustAssignment(t *testing.T, entity, place, start, end string) timeline.Assignment {
	t.Helper()
	a, err := timeline.NewAssignment(entity, place, timeline.MustParseDate(start), timeline.MustParseDate(end))
	if err != nil {
		t.Fatalf("NewAssignment(%s, %s) failed: %v", entity, place, err)
	}
	return a
}

func TestCheckExactExactDifferentPlaceConflicts(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01"),
	}
	candidate := mustAssignment(t, "Napoleon", "Milan", "2024-01-01", "2024-01-01")

	result := timeline.Check(candidate, existing)
	if result.Accepted() {
		t.Fatal("two exact same-day facts in different places should conflict")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Place != "Paris" {
		t.Fatalf("unexpected conflicts: %v", result.Conflicts)
	}
}

func TestCheckApproximateNeverConflicts(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01"),
	}

	// Approximate candidate against exact prior.
	candidate := mustAssignment(t, "Napoleon", "Milan", "2024-01-01", "2024-12-31")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("approximate candidate should be accepted, got conflicts %v", result.Conflicts)
	}

	// Exact candidate against approximate prior.
	existing = []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-12-31"),
	}
	candidate = mustAssignment(t, "Napoleon", "Milan", "2024-06-15", "2024-06-15")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("exact candidate against approximate prior should be accepted, got %v", result.Conflicts)
	}
}

func TestCheckSamePlaceIsCorroboration(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01"),
	}
	candidate := mustAssignment(t, "Napoleon", "paris", "2024-01-01", "2024-01-01")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("same place should corroborate, got conflicts %v", result.Conflicts)
	}
}

func TestCheckUnknownPlaceIsWildcard(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01"),
	}
	candidate := mustAssignment(t, "Napoleon", timeline.PlaceUnknown, "2024-01-01", "2024-01-01")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("unknown candidate place should never conflict, got %v", result.Conflicts)
	}

	existing = []timeline.Assignment{
		mustAssignment(t, "Napoleon", timeline.PlaceUnknown, "2024-01-01", "2024-01-01"),
	}
	candidate = mustAssignment(t, "Napoleon", "Milan", "2024-01-01", "2024-01-01")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("unknown prior place should never conflict, got %v", result.Conflicts)
	}
}

func TestCheckDifferentEntitiesNeverInteract(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Wellington", "London", "2024-01-01", "2024-01-01"),
	}
	candidate := mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("different entities should not conflict, got %v", result.Conflicts)
	}
}

func TestCheckDisjointIntervalsNeverConflict(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01"),
	}
	candidate := mustAssignment(t, "Napoleon", "Milan", "2024-01-02", "2024-01-02")
	if result := timeline.Check(candidate, existing); !result.Accepted() {
		t.Fatalf("disjoint intervals should not conflict, got %v", result.Conflicts)
	}
}

func TestCheckClosedIntervalBoundaryTouchConflicts(t *testing.T) {
	// Closed intervals: sharing a single boundary day overlaps. Both sides
	// must be exact for this to matter, so both are single days here.
	existing := []timeline.Assignment{
		mustAssignment(t, "Caesar", "Rome", "0044-03-15 BC", "0044-03-15 BC"),
	}
	candidate := mustAssignment(t, "Caesar", "Alexandria", "0044-03-15 BC", "0044-03-15 BC")
	if result := timeline.Check(candidate, existing); result.Accepted() {
		t.Fatal("same BC day in two places should conflict")
	}
}

func TestCheckCollectsAllConflicts(t *testing.T) {
	existing := []timeline.Assignment{
		mustAssignment(t, "Napoleon", "Paris", "2024-01-01", "2024-01-01"),
		mustAssignment(t, "Napoleon", "Lyon", "2024-01-01", "2024-01-01"),
		mustAssignment(t, "Napoleon", "Milan", "2024-01-01", "2024-01-01"),
	}
	candidate := mustAssignment(t, "Napoleon", "Vienna", "2024-01-01", "2024-01-01")
	result := timeline.Check(candidate, existing)
	if len(result.Conflicts) != 3 {
		t.Fatalf("expected 3 conflicts, got %d", len(result.Conflicts))
	}
}
