// Package timeofday holds the wall-clock helpers shared by the availability
// engine, the booking wizard and the API server. All values live in a single
// implicit local zone.
package timeofday

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidDateFormat = errors.New("invalid date format")
)

// TimeOfDay is a number of minutes since local midnight. Values past 24:00
// only appear as slot ends.
type TimeOfDay int

func New(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// Parse accepts "HH:mm" or "HH:mm:ss". Seconds are validated and dropped.
func Parse(text string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}

	hour, err := parseField(parts[0], 23)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: hour", ErrInvalidTimeFormat, text)
	}
	minute, err := parseField(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: minute", ErrInvalidTimeFormat, text)
	}
	if len(parts) == 3 {
		if _, err := parseField(parts[2], 59); err != nil {
			return 0, fmt.Errorf("%w: %q: second", ErrInvalidTimeFormat, text)
		}
	}

	return New(hour, minute), nil
}

func MustParse(text string) TimeOfDay {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

func parseField(s string, max int) (int, error) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, errors.New("field must have two digits")
	}
	n := int(s[0]-'0')*10 + int(s[1]-'0')
	if n > max {
		return 0, errors.New("field out of range")
	}
	return n, nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// Format renders the value as zero-padded 24h "HH:mm".
func (t TimeOfDay) Format() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) String() string {
	return t.Format()
}

// Overlap reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Adjacent intervals do not overlap.
func Overlap(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// DateKey normalises "YYYY-MM-DD" or an ISO timestamp to "YYYY-MM-DD".
func DateKey(text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) < len(DateLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, text)
	}
	key := text[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, key); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, text)
	}
	return key, nil
}

// ParseDate returns local midnight of the calendar date in text.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	key, err := DateKey(text)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, key, loc)
}

// On places t on the calendar day of date, in loc.
func On(date time.Time, t TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = date.Location()
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

// FromTime returns the wall-clock time of an instant.
func FromTime(ts time.Time) TimeOfDay {
	return New(ts.Hour(), ts.Minute())
}
