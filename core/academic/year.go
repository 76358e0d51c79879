// Package academic derives academic-year labels ("2025-2026") from dates and promotion history.
package academic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StartMonth is the first month of an academic year.
const StartMonth = time.June

var (
	NowFunc = time.Now // mockable

	ErrInvalidYear = errors.New("invalid academic year")
)

// Year is an academic-year label "<start>-<end>" where end = start + 1.
type Year string

func (y Year) String() string { return string(y) }

func yearFor(start int) Year {
	return Year(fmt.Sprintf("%d-%d", start, start+1))
}

// split parses "<start>-<end>" without checking that the years are contiguous.
// Both parts must be exactly four ASCII digits.
func split(label string) (start, end int, ok bool) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 || !isYearDigits(parts[0]) || !isYearDigits(parts[1]) {
		return 0, 0, false
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

func isYearDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CurrentAcademicYear returns the academic year `now` falls in.
func CurrentAcademicYear(now time.Time) Year {
	y := now.Year()
	if now.Month() >= StartMonth {
		return yearFor(y)
	}
	return yearFor(y - 1)
}

// NextAcademicYear steps label one year forward.
// A malformed label falls back to the current academic year; use Parse to reject it instead.
func NextAcademicYear(label Year) Year {
	start, end, ok := split(string(label))
	if !ok {
		return CurrentAcademicYear(NowFunc())
	}
	return Year(fmt.Sprintf("%d-%d", start+1, end+1))
}

// PreviousAcademicYear steps label one year back, with the same fallback as NextAcademicYear.
func PreviousAcademicYear(label Year) Year {
	start, end, ok := split(string(label))
	if !ok {
		return CurrentAcademicYear(NowFunc())
	}
	return Year(fmt.Sprintf("%d-%d", start-1, end-1))
}

// AcademicYearOptions lists `before` previous years, the current year and `after` next years, oldest first.
func AcademicYearOptions(before, after int) []Year {
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	current := CurrentAcademicYear(NowFunc())
	start, _, _ := split(string(current))

	opts := make([]Year, 0, before+1+after)
	for i := start - before; i <= start+after; i++ {
		opts = append(opts, yearFor(i))
	}
	return opts
}

// IsValidAcademicYear reports whether label is two four-digit years joined by "-" with end = start + 1.
func IsValidAcademicYear(label string) bool {
	start, end, ok := split(label)
	return ok && end == start+1
}

// FormatAcademicYear abbreviates the end year to its last two digits when short is set ("2025-26").
func FormatAcademicYear(label Year, short bool) string {
	if !short {
		return string(label)
	}
	parts := strings.Split(string(label), "-")
	if len(parts) != 2 || len(parts[1]) < 2 {
		return string(label)
	}
	return parts[0] + "-" + parts[1][len(parts[1])-2:]
}

// Parse is the strict counterpart of the lenient label helpers.
// Surrounding whitespace is rejected.
func Parse(label string) (Year, error) {
	if !IsValidAcademicYear(label) {
		return "", errors.Wrapf(ErrInvalidYear, "%q", label)
	}
	start, _, _ := split(label)
	return yearFor(start), nil
}

// ParseOrCurrent parses label, or returns the current academic year when label is empty.
func ParseOrCurrent(label string, now time.Time) (Year, error) {
	if label == "" {
		return CurrentAcademicYear(now), nil
	}
	return Parse(label)
}

func (y Year) IsValid() bool { return IsValidAcademicYear(string(y)) }

// Start returns the first calendar year of y, or 0 when y is malformed.
func (y Year) Start() int {
	start, _, ok := split(string(y))
	if !ok {
		return 0
	}
	return start
}

// End returns the second calendar year of y, or 0 when y is malformed.
func (y Year) End() int {
	_, end, ok := split(string(y))
	if !ok {
		return 0
	}
	return end
}

// Bounds returns [June 1 of the start year, June 1 of the end year) in UTC.
func (y Year) Bounds() (from, to time.Time) {
	from = time.Date(y.Start(), StartMonth, 1, 0, 0, 0, 0, time.UTC)
	to = time.Date(y.End(), StartMonth, 1, 0, 0, 0, 0, time.UTC)
	return from, to
}

// Contains reports whether t falls in y.
func (y Year) Contains(t time.Time) bool {
	if !y.IsValid() {
		return false
	}
	return CurrentAcademicYear(t) == y
}
