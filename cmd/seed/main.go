package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/internal/service"
	"medbook/migrations"
	"medbook/pkg/auth"
	"medbook/pkg/database"
	"medbook/pkg/logger"
	"medbook/pkg/timeofday"
)

var specialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Ophthalmology",
	"ENT",
}

type options struct {
	doctors      int
	patients     int
	appointments int
	days         int
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Fill the database with demo doctors, schedules and bookings",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.doctors, "doctors", 10, "doctors to create")
	cmd.Flags().IntVar(&opts.patients, "patients", 50, "patients to create")
	cmd.Flags().IntVar(&opts.appointments, "appointments", 40, "appointments to book")
	cmd.Flags().IntVar(&opts.days, "days", 14, "booking horizon in days")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts options) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, migrations.FS, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	services := service.NewServices(service.Deps{
		Repos:  repository.NewRepositories(db),
		Logger: log,
		Config: cfg,
	})
	s := seeder{services: services, logger: log, loc: cfg.Booking.Location}

	doctorIDs, err := s.seedDoctors(ctx, opts.doctors)
	if err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	patientIDs, err := s.seedPatients(ctx, opts.patients)
	if err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	booked := s.seedAppointments(ctx, doctorIDs, patientIDs, opts.appointments, opts.days)

	log.Info("seed complete",
		zap.Int("doctors", len(doctorIDs)),
		zap.Int("patients", len(patientIDs)),
		zap.Int("appointments", booked))

	if len(patientIDs) > 0 {
		tokens, err := auth.NewTokenManager(cfg.JWT.SigningKey, cfg.JWT.AccessTokenTTL)
		if err != nil {
			return err
		}
		token, err := tokens.NewAccessToken(patientIDs[0], domain.UserRolePatient)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "patient %d token: %s\n", patientIDs[0], token)
		fmt.Fprintf(cmd.OutOrStdout(), "try: bookctl slots --doctor %d --token <token>\n", doctorIDs[0])
	}
	return nil
}

type seeder struct {
	services *service.Services
	logger   *zap.Logger
	loc      *time.Location
}

func (s seeder) seedDoctors(ctx context.Context, count int) ([]int64, error) {
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		id, err := s.services.Doctor.Create(ctx, domain.CreateDoctorDTO{
			FullName:  "Dr. " + gofakeit.Name(),
			Specialty: gofakeit.RandomString(specialties),
		})
		if err != nil {
			return ids, err
		}

		if err := s.services.Schedule.UpdateWeekly(ctx, id, domain.UpdateWeeklyScheduleDTO{Entries: randomWeek()}); err != nil {
			return ids, fmt.Errorf("doctor %d schedule: %w", id, err)
		}
		if err := s.services.Schedule.UpdateServices(ctx, id, randomCatalog()); err != nil {
			return ids, fmt.Errorf("doctor %d services: %w", id, err)
		}
		if ex := s.randomException(); ex != nil {
			if _, err := s.services.Schedule.CreateException(ctx, id, *ex); err != nil {
				return ids, fmt.Errorf("doctor %d exception: %w", id, err)
			}
		}
		ids = append(ids, id)
	}
	s.logger.Info("doctors seeded", zap.Int("count", len(ids)))
	return ids, nil
}

func (s seeder) seedPatients(ctx context.Context, count int) ([]int64, error) {
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		id, err := s.services.Patient.Create(ctx, gofakeit.Name(), gofakeit.Email())
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				continue
			}
			return ids, err
		}
		ids = append(ids, id)
	}
	s.logger.Info("patients seeded", zap.Int("count", len(ids)))
	return ids, nil
}

// seedAppointments books random available slots through the booking service.
// Attempts that hit a closed day or a taken slot are skipped.
func (s seeder) seedAppointments(ctx context.Context, doctors, patients []int64, count, days int) int {
	if len(doctors) == 0 || len(patients) == 0 || days <= 0 {
		return 0
	}
	booked := 0
	for attempt := 0; attempt < count*3 && booked < count; attempt++ {
		doctorID := doctors[gofakeit.Number(0, len(doctors)-1)]
		kind := domain.ServiceRegularCheckup
		if gofakeit.Bool() {
			kind = domain.ServiceFollowUp
		}
		date := time.Now().In(s.loc).AddDate(0, 0, gofakeit.Number(1, days)).Format(timeofday.DateLayout)

		slots, err := s.services.Schedule.Availability(ctx, doctorID, date, kind)
		if err != nil {
			continue
		}
		var free []string
		for _, slot := range slots {
			if slot.IsAvailable {
				free = append(free, slot.Time)
			}
		}
		if len(free) == 0 {
			continue
		}

		_, err = s.services.Appointment.Book(ctx, patients[gofakeit.Number(0, len(patients)-1)], domain.BookingRequest{
			DoctorID:         doctorID,
			AppointmentDate:  date,
			AppointmentTime:  gofakeit.RandomString(free),
			ConsultationType: kind,
		})
		if err != nil {
			s.logger.Debug("seed booking skipped", zap.Error(err))
			continue
		}
		booked++
	}
	return booked
}

func randomWeek() []domain.WeeklyScheduleEntry {
	opens := []string{"08:00", "08:30", "09:00", "10:00"}
	closes := []string{"13:00", "16:00", "17:30", "18:00"}

	week := make([]domain.WeeklyScheduleEntry, 0, 7)
	for day := 0; day < 7; day++ {
		weekend := day == 0 || day == 6
		entry := domain.WeeklyScheduleEntry{DayOfWeek: day, IsEnabled: !weekend || gofakeit.Number(0, 4) == 0}
		if entry.IsEnabled {
			entry.FromTime = gofakeit.RandomString(opens)
			entry.ToTime = gofakeit.RandomString(closes)
		}
		week = append(week, entry)
	}
	return week
}

func randomCatalog() domain.ServiceCatalog {
	durations := []int{15, 20, 30, 45}
	catalog := domain.ServiceCatalog{
		RegularCheckup: &domain.ServicePrice{
			Price:           float64(gofakeit.Number(40, 120)),
			DurationMinutes: durations[gofakeit.Number(0, len(durations)-1)],
		},
	}
	if gofakeit.Number(0, 3) > 0 {
		catalog.ReExamination = &domain.ServicePrice{
			Price:           float64(gofakeit.Number(20, 60)),
			DurationMinutes: durations[gofakeit.Number(0, 1)],
		}
	}
	return catalog
}

// randomException closes or shortens one upcoming date for about half the doctors.
func (s seeder) randomException() *domain.CreateExceptionDTO {
	if gofakeit.Bool() {
		return nil
	}
	date := time.Now().In(s.loc).AddDate(0, 0, gofakeit.Number(1, 10)).Format(timeofday.DateLayout)
	if gofakeit.Bool() {
		return &domain.CreateExceptionDTO{Date: date, IsClosed: true}
	}
	return &domain.CreateExceptionDTO{Date: date, FromTime: "10:00", ToTime: "12:00"}
}
