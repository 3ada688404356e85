package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/lock"
	"medbook/internal/repository"
	"medbook/internal/storage"
)

// SlotNotifier receives booking changes after they are committed.
type SlotNotifier interface {
	Publish(ev domain.SlotEvent)
}

type Deps struct {
	Repos  *repository.Repositories
	Logger *zap.Logger
	Config *config.Config
	Locker lock.Locker
	// Invoices and Notifier are optional.
	Invoices storage.InvoiceStorage
	Notifier SlotNotifier
	Now      func() time.Time
}

type Services struct {
	Doctor      DoctorService
	Patient     PatientService
	Schedule    ScheduleService
	Appointment AppointmentService
}

func NewServices(deps Deps) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker(deps.Config.Booking.LockTTL)
	}
	loc := deps.Config.Booking.Location
	if loc == nil {
		loc = time.Local
	}

	schedule := NewScheduleService(deps.Repos.Schedule, deps.Repos.Doctor, deps.Repos.Appointment, loc, deps.Now, deps.Logger)

	return &Services{
		Doctor:   NewDoctorService(deps.Repos.Doctor, deps.Logger),
		Patient:  NewPatientService(deps.Repos.Patient, deps.Logger),
		Schedule: schedule,
		Appointment: NewAppointmentService(AppointmentDeps{
			Repo:          deps.Repos.Appointment,
			Schedule:      schedule,
			Locker:        deps.Locker,
			Invoices:      deps.Invoices,
			InvoicePrefix: deps.Config.Booking.InvoicePrefix,
			Notifier:      deps.Notifier,
			Now:           deps.Now,
			Logger:        deps.Logger,
		}),
	}
}

type DoctorService interface {
	Create(ctx context.Context, dto domain.CreateDoctorDTO) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	List(ctx context.Context, limit, offset int) ([]domain.Doctor, error)
}

type PatientService interface {
	Create(ctx context.Context, fullName, email string) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Patient, error)
}

type ScheduleService interface {
	GetWeekly(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error)
	UpdateWeekly(ctx context.Context, doctorID int64, dto domain.UpdateWeeklyScheduleDTO) error

	ListExceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error)
	CreateException(ctx context.Context, doctorID int64, dto domain.CreateExceptionDTO) (*domain.ExceptionalDate, error)
	DeleteException(ctx context.Context, doctorID int64, date string) error
	// PurgeExceptions removes exceptions dated before cutoff.
	PurgeExceptions(ctx context.Context, cutoff time.Time) (int64, error)

	GetServices(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error)
	UpdateServices(ctx context.Context, doctorID int64, catalog domain.ServiceCatalog) error

	BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error)
	Availability(ctx context.Context, doctorID int64, date string, kind domain.ServiceKind) ([]domain.CandidateSlot, error)
}

type AppointmentService interface {
	Book(ctx context.Context, patientID int64, req domain.BookingRequest) (*domain.BookingResult, error)
	GetByID(ctx context.Context, id int64, actor Actor) (*domain.Appointment, error)
	Cancel(ctx context.Context, id int64, actor Actor) error
	InvoiceLink(ctx context.Context, id int64, actor Actor) (string, error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Role   domain.UserRole
}

func (a Actor) canAccess(appt *domain.Appointment) bool {
	switch a.Role {
	case domain.UserRoleAdmin:
		return true
	case domain.UserRoleDoctor:
		return appt.DoctorID == a.UserID
	default:
		return appt.PatientID == a.UserID
	}
}
