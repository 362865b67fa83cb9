package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Era distinguishes proleptic dates before and after year 1.
type Era string

const (
	EraBC Era = "BC"
	EraAD Era = "AD"
)

// Date is a calendar day with an explicit era marker. Year is always
// positive; EraBC counts backwards, so Year 44 EraBC precedes Year 1 EraAD.
type Date struct {
	Year  int
	Month int
	Day   int
	Era   Era
}

// ErrInvalidDate reports a date string the parser could not understand.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses "YYYY-MM-DD" with an optional " BC" suffix.
// "0044-03-15 BC" and "44-03-15 BC" are equivalent.
func ParseDate(value string) (Date, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Date{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	era := EraAD
	upper := strings.ToUpper(trimmed)
	switch {
	case strings.HasSuffix(upper, " BC"):
		era = EraBC
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-3])
	case strings.HasSuffix(upper, " AD"):
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-3])
	}

	parts := strings.Split(trimmed, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, value)
	}
	fields := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, value, err)
		}
		fields[i] = n
	}

	date := Date{Year: fields[0], Month: fields[1], Day: fields[2], Era: era}
	if err := date.validate(); err != nil {
		return Date{}, err
	}
	return date, nil
}

// MustParseDate parses a date literal and panics on failure. Test helper.
func MustParseDate(value string) Date {
	date, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return date
}

func (d Date) validate() error {
	if d.Year <= 0 {
		return fmt.Errorf("%w: year must be positive", ErrInvalidDate)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: day %d out of range", ErrInvalidDate, d.Day)
	}
	if d.Era != EraBC && d.Era != EraAD {
		return fmt.Errorf("%w: unknown era %q", ErrInvalidDate, d.Era)
	}
	return nil
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String renders the date as "YYYY-MM-DD" with a " BC" suffix for
// pre-common-era dates. This is also the canonical storage encoding.
func (d Date) String() string {
	base := fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	if d.Era == EraBC {
		return base + " BC"
	}
	return base
}

// Ordinal maps the date onto a single signed axis where larger means later.
// BC years run backwards: 44 BC < 10 BC < 1 AD. The value is what the
// shelf stores for range comparisons in SQL.
func (d Date) Ordinal() int {
	year := d.Year
	if d.Era == EraBC {
		year = -year
	}
	return year*10000 + d.Month*100 + d.Day
}

// Compare returns -1, 0, or 1 as d sorts before, equal to, or after other.
func (d Date) Compare(other Date) int {
	a, b := d.Ordinal(), other.Ordinal()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether the two dates name the same day.
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }
