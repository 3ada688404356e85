package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"

	"medbook/internal/domain"
	"medbook/pkg/timeofday"
)

func ValidateDate(date string) bool {
	_, err := timeofday.DateKey(date)
	return err == nil && len(date) == len(timeofday.DateLayout)
}

func ValidateTime(t string) bool {
	_, err := timeofday.Parse(t)
	return err == nil
}

func ValidateServiceKind(kind domain.ServiceKind) bool {
	return kind.Valid()
}

// ValidateWeeklySchedule checks a full weekly replacement: days 0..6 at most
// once each, and enabled days with a parseable window that ends after it starts.
func ValidateWeeklySchedule(entries []domain.WeeklyScheduleEntry) error {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return fmt.Errorf("%w: day_of_week %d out of range", domain.ErrInvalidInput, e.DayOfWeek)
		}
		if seen[e.DayOfWeek] {
			return fmt.Errorf("%w: day_of_week %d listed twice", domain.ErrInvalidInput, e.DayOfWeek)
		}
		seen[e.DayOfWeek] = true

		if !e.IsEnabled {
			continue
		}
		if err := validateWindow(e.FromTime, e.ToTime); err != nil {
			return fmt.Errorf("day_of_week %d: %w", e.DayOfWeek, err)
		}
	}
	return nil
}

func ValidateException(dto domain.CreateExceptionDTO) error {
	if !ValidateDate(dto.Date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput)
	}
	if dto.IsClosed {
		return nil
	}
	return validateWindow(dto.FromTime, dto.ToTime)
}

func ValidateServiceCatalog(c domain.ServiceCatalog) error {
	for name, p := range map[string]*domain.ServicePrice{
		"regular_checkup": c.RegularCheckup,
		"re_examination":  c.ReExamination,
	} {
		if p == nil {
			continue
		}
		if p.DurationMinutes <= 0 || p.DurationMinutes > 24*60 {
			return fmt.Errorf("%w: %s duration must be between 1 and 1440 minutes", domain.ErrInvalidInput, name)
		}
		if p.Price < 0 {
			return fmt.Errorf("%w: %s price must not be negative", domain.ErrInvalidInput, name)
		}
	}
	return nil
}

func validateWindow(from, to string) error {
	start, err := timeofday.Parse(from)
	if err != nil {
		return fmt.Errorf("%w: from_time: %w", domain.ErrInvalidInput, err)
	}
	end, err := timeofday.Parse(to)
	if err != nil {
		return fmt.Errorf("%w: to_time: %w", domain.ErrInvalidInput, err)
	}
	if end <= start {
		return fmt.Errorf("%w: to_time must be after from_time", domain.ErrInvalidInput)
	}
	return nil
}

func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '<' || r == '>' || r == '&' || r == '"' || r == '\'' || r == '`' || r == ';' {
			return -1
		}
		return r
	}, s)
}

// RegisterBindings adds the "date" and "hhmm" tags to gin's binding validator.
func RegisterBindings() error {
	v, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	if err := v.RegisterValidation("date", func(fl playground.FieldLevel) bool {
		return ValidateDate(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("hhmm", func(fl playground.FieldLevel) bool {
		return ValidateTime(fl.Field().String())
	})
}
