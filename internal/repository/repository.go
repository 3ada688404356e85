package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type Repositories struct {
	Doctor      DoctorRepository
	Patient     PatientRepository
	Schedule    ScheduleRepository
	Appointment AppointmentRepository
}

func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Doctor:      NewDoctorRepository(db),
		Patient:     NewPatientRepository(db),
		Schedule:    NewScheduleRepository(db),
		Appointment: NewAppointmentRepository(db),
	}
}

type DoctorRepository interface {
	Create(ctx context.Context, dto domain.CreateDoctorDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	List(ctx context.Context, limit, offset int) ([]domain.Doctor, error)
}

type PatientRepository interface {
	Create(ctx context.Context, fullName, email string) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Patient, error)
}

type ScheduleRepository interface {
	GetWeekly(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error)
	ReplaceWeekly(ctx context.Context, doctorID int64, entries []domain.WeeklyScheduleEntry) error

	// ListExceptions returns the doctor's exceptions ordered by id.
	ListExceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error)
	CreateException(ctx context.Context, doctorID int64, dto domain.CreateExceptionDTO) (*domain.ExceptionalDate, error)
	DeleteException(ctx context.Context, doctorID int64, date string) error
	DeleteExceptionsBefore(ctx context.Context, before time.Time) (int64, error)

	GetServices(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error)
	ReplaceServices(ctx context.Context, doctorID int64, catalog domain.ServiceCatalog) error
}

// BookCheck inspects the active bookings of the target date while the date is
// locked. Returning an error aborts the insert.
type BookCheck func(booked []domain.BookedSlot) error

type AppointmentRepository interface {
	// Book serialises bookings per doctor and date inside one transaction,
	// runs check against the current bookings and inserts a on success.
	Book(ctx context.Context, a *domain.Appointment, check BookCheck) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error)
	Cancel(ctx context.Context, id int64) (*domain.Appointment, error)
	SetInvoiceURL(ctx context.Context, id int64, url string) error
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
