package availability

import (
	"errors"
	"fmt"
	"time"

	"medbook/internal/domain"
	"medbook/pkg/timeofday"
)

type Input struct {
	Window          Window
	Date            time.Time
	DurationMinutes int
	Booked          []domain.BookedSlot
	Now             time.Time
}

type interval struct {
	start, end timeofday.TimeOfDay
}

// Generate emits fixed-length candidates from Window.From while the cursor is
// before Window.To. The last candidate may end after closing time.
//
// A booked entry blocks every candidate its interval overlaps. Entries without
// a duration are assumed to be as long as the service being booked. Booked
// entries that fail to parse are skipped and reported in the returned error;
// the candidates are still valid in that case.
func Generate(in Input) ([]domain.CandidateSlot, error) {
	if !in.Window.Open || in.DurationMinutes <= 0 {
		return []domain.CandidateSlot{}, nil
	}

	busy, err := bookedIntervals(in.Booked, in.DurationMinutes)

	loc := in.Now.Location()
	if in.Now.IsZero() {
		loc = in.Date.Location()
	}

	slots := make([]domain.CandidateSlot, 0, int(in.Window.To-in.Window.From)/in.DurationMinutes+1)
	for cursor := in.Window.From; cursor < in.Window.To; cursor = cursor.Add(in.DurationMinutes) {
		end := cursor.Add(in.DurationMinutes)

		booked := false
		for _, b := range busy {
			if timeofday.Overlap(cursor, end, b.start, b.end) {
				booked = true
				break
			}
		}

		past := timeofday.On(in.Date, cursor, loc).Before(in.Now)

		slots = append(slots, domain.CandidateSlot{
			Time:        cursor.Format(),
			IsBooked:    booked,
			IsPast:      past,
			IsAvailable: !booked && !past,
		})
	}

	return slots, err
}

func bookedIntervals(booked []domain.BookedSlot, fallback int) ([]interval, error) {
	var errs []error
	out := make([]interval, 0, len(booked))
	for _, b := range booked {
		start, err := timeofday.Parse(b.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("booked slot: %w", err))
			continue
		}
		d := b.DurationMinutes
		if d <= 0 {
			d = fallback
		}
		out = append(out, interval{start: start, end: start.Add(d)})
	}
	return out, errors.Join(errs...)
}

// Candidates resolves the opening window for date and generates its slots.
func Candidates(
	date time.Time,
	weekly []domain.WeeklyScheduleEntry,
	exceptions []domain.ExceptionalDate,
	durationMinutes int,
	booked []domain.BookedSlot,
	now time.Time,
) ([]domain.CandidateSlot, error) {
	w, resolveErr := Resolve(date, weekly, exceptions)
	slots, genErr := Generate(Input{
		Window:          w,
		Date:            date,
		DurationMinutes: durationMinutes,
		Booked:          booked,
		Now:             now,
	})
	return slots, errors.Join(resolveErr, genErr)
}

// Find returns the candidate starting at t ("HH:mm[:ss]").
func Find(slots []domain.CandidateSlot, t string) (domain.CandidateSlot, bool) {
	want, err := timeofday.Parse(t)
	if err != nil {
		return domain.CandidateSlot{}, false
	}
	for _, s := range slots {
		if got, err := timeofday.Parse(s.Time); err == nil && got == want {
			return s, true
		}
	}
	return domain.CandidateSlot{}, false
}

// Conflicts reports whether a booking of durationMinutes at start overlaps any
// of booked, using the same fallback length as Generate.
func Conflicts(start timeofday.TimeOfDay, durationMinutes int, booked []domain.BookedSlot) bool {
	busy, _ := bookedIntervals(booked, durationMinutes)
	end := start.Add(durationMinutes)
	for _, b := range busy {
		if timeofday.Overlap(start, end, b.start, b.end) {
			return true
		}
	}
	return false
}
