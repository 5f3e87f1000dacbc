// Package period derives the calendar keys used by check-ins and applicant rosters.
package period

import (
	"regexp"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Clock yields the current time in the school's timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock builds a clock for loc. A nil loc means time.Local and a nil now means time.Now.
func NewClock(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

// Now returns the current instant in the clock's location.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today is the local calendar date, e.g. "2026-10-17".
func (c *Clock) Today() string {
	return Date(c.Now())
}

// CurrentMonth is the applicant period key, e.g. "2026-10".
func (c *Clock) CurrentMonth() string {
	return Month(c.Now())
}

// Location returns the configured timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

func Date(t time.Time) string {
	return t.Format(DateLayout)
}

func Month(t time.Time) string {
	return t.Format(MonthLayout)
}

// IsValidDate reports whether raw is a real YYYY-MM-DD calendar date.
func IsValidDate(raw string) bool {
	if !datePattern.MatchString(raw) {
		return false
	}
	_, err := time.Parse(DateLayout, raw)
	return err == nil
}
