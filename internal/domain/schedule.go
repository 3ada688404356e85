package domain

import (
	"time"
)

// WeeklyScheduleEntry is the recurring opening pattern for one day of the week
// (0=Sunday..6=Saturday). Times are "HH:mm" strings as sent over the wire.
type WeeklyScheduleEntry struct {
	DayOfWeek int    `json:"day_of_week"`
	IsEnabled bool   `json:"is_enabled"`
	FromTime  string `json:"from_time"`
	ToTime    string `json:"to_time"`
}

// ExceptionalDate overrides the weekly entry for one calendar date.
type ExceptionalDate struct {
	ID        int64     `json:"id,omitempty"`
	Date      string    `json:"date"`
	IsClosed  bool      `json:"is_closed"`
	FromTime  string    `json:"from_time,omitempty"`
	ToTime    string    `json:"to_time,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Doctor struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Specialty string    `json:"specialty"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateWeeklyScheduleDTO struct {
	Entries []WeeklyScheduleEntry `json:"entries" binding:"required,dive"`
}

type CreateExceptionDTO struct {
	Date     string `json:"date" binding:"required"`
	IsClosed bool   `json:"is_closed"`
	FromTime string `json:"from_time"`
	ToTime   string `json:"to_time"`
}

type CreateDoctorDTO struct {
	FullName  string `json:"full_name" binding:"required"`
	Specialty string `json:"specialty"`
}

type Patient struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
