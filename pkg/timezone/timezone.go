package timezone

import (
	"fmt"
	"time"
)

// DefaultZone is the reference timezone used to decide what civil date
// "today" is. Day boundaries are fixed to this zone regardless of where the
// caller's clock happens to be.
const DefaultZone = "Asia/Kolkata"

// DateLayout is the canonical civil date format.
const DateLayout = "2006-01-02"

// Clock answers "what day is it" and "has this moment passed" relative to a
// fixed reference timezone. The now function is injectable for tests.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Clock pinned to the named timezone.
func New(name string) (*Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unable to load reference timezone %q: %w", name, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixed creates a Clock whose "now" is frozen at the given instant.
// Intended for tests.
func NewFixed(name string, at time.Time) (*Clock, error) {
	c, err := New(name)
	if err != nil {
		return nil, err
	}
	c.now = func() time.Time { return at }
	return c, nil
}

// Location returns the reference timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the reference timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the canonical civil date (YYYY-MM-DD) for now. Every call
// within the same calendar day in the reference zone returns the same value.
func (c *Clock) Today() string {
	return c.Now().Format(DateLayout)
}

// DateOf returns the civil date an absolute timestamp falls on in the
// reference zone.
func (c *Clock) DateOf(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// HasPassed reports whether the given absolute timestamp is strictly before
// now. A zero timestamp has not passed; callers are expected to have failed
// loudly on parse errors before reaching here.
func (c *Clock) HasPassed(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.Before(c.now())
}

// DayBounds returns the start of the canonical today and the start of the
// next day in the reference zone, suitable as a half-open provider query
// window.
func (c *Clock) DayBounds() (time.Time, time.Time) {
	now := c.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// ParseTimestamp parses an event time bound, which may be an RFC 3339
// datetime or a bare civil date. Bare dates are anchored to midnight in the
// reference zone. Malformed input is an error, never a silent zero.
func (c *Clock) ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
