// Package availability turns a doctor's weekly schedule, date exceptions and
// booked slots into the candidate slot list for one calendar date.
package availability

import (
	"fmt"
	"time"

	"medbook/internal/domain"
	"medbook/pkg/timeofday"
)

// Window is the effective opening interval of a date. A closed date has Open == false.
type Window struct {
	Open bool
	From timeofday.TimeOfDay
	To   timeofday.TimeOfDay
}

var Closed = Window{}

// Resolve picks the opening hours for date. An exception for the exact date
// wins over the weekly entry and fully replaces it; when several exceptions
// share a date the first one in input order is used.
//
// A malformed time string yields Closed together with an error wrapping
// timeofday.ErrInvalidTimeFormat.
func Resolve(date time.Time, weekly []domain.WeeklyScheduleEntry, exceptions []domain.ExceptionalDate) (Window, error) {
	key := date.Format(timeofday.DateLayout)

	for _, ex := range exceptions {
		exKey, err := timeofday.DateKey(ex.Date)
		if err != nil || exKey != key {
			continue
		}
		if ex.IsClosed {
			return Closed, nil
		}
		w, err := window(ex.FromTime, ex.ToTime)
		if err != nil {
			return Closed, fmt.Errorf("exception %s: %w", key, err)
		}
		return w, nil
	}

	dow := int(date.Weekday())
	for _, entry := range weekly {
		if entry.DayOfWeek != dow {
			continue
		}
		if !entry.IsEnabled {
			return Closed, nil
		}
		w, err := window(entry.FromTime, entry.ToTime)
		if err != nil {
			return Closed, fmt.Errorf("weekly entry for day %d: %w", dow, err)
		}
		return w, nil
	}

	return Closed, nil
}

func window(from, to string) (Window, error) {
	start, err := timeofday.Parse(from)
	if err != nil {
		return Closed, err
	}
	end, err := timeofday.Parse(to)
	if err != nil {
		return Closed, err
	}
	if end <= start {
		return Closed, nil
	}
	return Window{Open: true, From: start, To: end}, nil
}
