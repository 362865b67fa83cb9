// Package timeline implements the temporal-spatial consistency engine that
// guards the book's physical continuity.
//
// An Assignment records "entity E occupied place P during [start, end]".
// The checker decides whether a candidate assignment contradicts the
// assignments already on record for the same entity: only two exact-day
// facts placing the entity in two different places over overlapping days
// count as a genuine contradiction. Year-level (approximate) assignments
// are low-confidence extractions and never block anything, and the
// "Unknown" place sentinel acts as a wildcard.
//
// Granularity is always derived from the interval (exact iff start equals
// end), never supplied by callers. Dates are proleptic and era-aware so BC
// intervals order correctly against AD ones.
//
// Everything in this package is pure; persistence and per-entity write
// serialization live in the shelf store.
package timeline
