package timeline

import (
	"errors"
	"fmt"
	"strings"
)

// Granularity states how much of an assignment's interval is trustworthy.
type Granularity string

const (
	// GranularityExact means the day itself is corroborated.
	GranularityExact Granularity = "exact"
	// GranularityApproximate means only the year is trustworthy.
	GranularityApproximate Granularity = "approximate"
)

// PlaceUnknown is the sentinel recorded when an extraction could not
// determine a place. It is a wildcard for the checker.
const PlaceUnknown = "Unknown"

// Assignment records that an entity occupied a place during [Start, End].
// Assignments are immutable once accepted; superseding information is a
// new Assignment.
type Assignment struct {
	ID     int64
	Entity string
	Place  string
	Start  Date
	End    Date
}

// NewAssignment builds and validates an assignment. The place defaults to
// PlaceUnknown when blank, and any case variant of the sentinel is
// canonicalized so the stored form is always PlaceUnknown.
func NewAssignment(entity, place string, start, end Date) (Assignment, error) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return Assignment{}, errors.New("assignment: entity name required")
	}
	place = strings.TrimSpace(place)
	if place == "" || strings.EqualFold(place, PlaceUnknown) {
		place = PlaceUnknown
	}
	if start.IsZero() || end.IsZero() {
		return Assignment{}, errors.New("assignment: start and end dates required")
	}
	if start.After(end) {
		return Assignment{}, fmt.Errorf("assignment: start %s after end %s", start, end)
	}
	return Assignment{Entity: entity, Place: place, Start: start, End: end}, nil
}

// Granularity derives the confidence level from the interval: a single
// dated day is exact, anything wider is approximate. Derivation is the
// only way granularity enters the system; callers never assert it.
func (a Assignment) Granularity() Granularity {
	if a.Start.Equal(a.End) {
		return GranularityExact
	}
	return GranularityApproximate
}

// PlaceKnown reports whether the assignment names a real place.
func (a Assignment) PlaceKnown() bool {
	return !strings.EqualFold(strings.TrimSpace(a.Place), PlaceUnknown)
}

// Overlaps applies the closed-interval overlap test against other.
func (a Assignment) Overlaps(other Assignment) bool {
	return !a.End.Before(other.Start) && !other.End.Before(a.Start)
}

// SamePlace compares places case-insensitively.
func (a Assignment) SamePlace(other Assignment) bool {
	return strings.EqualFold(strings.TrimSpace(a.Place), strings.TrimSpace(other.Place))
}

// SameEntity compares entity names case-insensitively.
func (a Assignment) SameEntity(other Assignment) bool {
	return strings.EqualFold(strings.TrimSpace(a.Entity), strings.TrimSpace(other.Entity))
}

func (a Assignment) String() string {
	return fmt.Sprintf("%s @ %s [%s .. %s] (%s)", a.Entity, a.Place, a.Start, a.End, a.Granularity())
}
