package model

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02" // civil date, no time component

// Date is a civil date (YYYY-MM-DD). Tasks are keyed by civil date rather
// than a timestamp so day boundaries follow the reference timezone, not the
// viewer's clock.
type Date string

// NewDate returns the civil date of t in t's own location.
func NewDate(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

func (d Date) String() string { return string(d) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Before reports whether d falls strictly before other. Lexical comparison
// is correct for the fixed-width layout.
func (d Date) Before(other Date) bool { return d < other }

// UnmarshalJSON implements the json.Unmarshaler interface for Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = ""
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + string(d) + `"`), nil
}
