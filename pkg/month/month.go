// Package month turns "YYYY-MM" month tokens into calendar intervals.
//
// Every month boundary used for budgeting goes through Resolve, so budget reads,
// overviews and validation all agree on where a month starts and ends.
package month

import (
	"errors"
	"fmt"
	"time"

	"github.com/financeflow/financeflow/internal/utils"
)

const layout = "2006-01"

var ErrInvalidMonthFormat = errors.New("invalid month format, expected YYYY-MM")

// Range is the half-open interval [Start, End) covering one calendar month in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Resolve parses a month token and returns its interval. Start is the first instant
// of the month, End the first instant of the following month.
func Resolve(token string) (Range, error) {
	parsed, err := time.Parse(layout, token)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidMonthFormat, token)
	}
	year, m, _ := parsed.Date()
	start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	var end time.Time
	if m == time.December {
		end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		end = time.Date(year, m+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return Range{Start: start, End: end}, nil
}

// Validate reports whether token is a well formed month token.
func Validate(token string) error {
	_, err := Resolve(token)
	return err
}

// Format returns the month token containing t, evaluated in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(layout)
}

// Current returns the token of the month the clock is currently in.
func Current(clock utils.Clock) string {
	return Format(clock.Now())
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
