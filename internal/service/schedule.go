package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medbook/internal/availability"
	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/pkg/timeofday"
	"medbook/pkg/validator"
)

type ScheduleServiceImpl struct {
	repo        repository.ScheduleRepository
	doctorRepo  repository.DoctorRepository
	bookingRepo repository.AppointmentRepository
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	doctorRepo repository.DoctorRepository,
	bookingRepo repository.AppointmentRepository,
	loc *time.Location,
	now func() time.Time,
	logger *zap.Logger,
) *ScheduleServiceImpl {
	return &ScheduleServiceImpl{
		repo:        repo,
		doctorRepo:  doctorRepo,
		bookingRepo: bookingRepo,
		loc:         loc,
		now:         now,
		logger:      logger,
	}
}

func (s *ScheduleServiceImpl) ensureDoctor(ctx context.Context, doctorID int64) error {
	if _, err := s.doctorRepo.GetByID(ctx, doctorID); err != nil {
		s.logger.Debug("doctor lookup failed", zap.Int64("doctor_id", doctorID), zap.Error(err))
		return err
	}
	return nil
}

func (s *ScheduleServiceImpl) GetWeekly(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.GetWeekly(ctx, doctorID)
}

func (s *ScheduleServiceImpl) UpdateWeekly(ctx context.Context, doctorID int64, dto domain.UpdateWeeklyScheduleDTO) error {
	if err := validator.ValidateWeeklySchedule(dto.Entries); err != nil {
		return err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return err
	}
	if err := s.repo.ReplaceWeekly(ctx, doctorID, dto.Entries); err != nil {
		s.logger.Error("failed to replace weekly schedule", zap.Int64("doctor_id", doctorID), zap.Error(err))
		return err
	}
	s.logger.Info("weekly schedule updated", zap.Int64("doctor_id", doctorID), zap.Int("entries", len(dto.Entries)))
	return nil
}

func (s *ScheduleServiceImpl) ListExceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListExceptions(ctx, doctorID)
}

func (s *ScheduleServiceImpl) CreateException(ctx context.Context, doctorID int64, dto domain.CreateExceptionDTO) (*domain.ExceptionalDate, error) {
	if err := validator.ValidateException(dto); err != nil {
		return nil, err
	}
	if dto.IsClosed {
		dto.FromTime, dto.ToTime = "", ""
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	ex, err := s.repo.CreateException(ctx, doctorID, dto)
	if err != nil {
		s.logger.Warn("failed to create exception", zap.Int64("doctor_id", doctorID), zap.String("date", dto.Date), zap.Error(err))
		return nil, err
	}
	return ex, nil
}

func (s *ScheduleServiceImpl) DeleteException(ctx context.Context, doctorID int64, date string) error {
	if !validator.ValidateDate(date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return s.repo.DeleteException(ctx, doctorID, date)
}

func (s *ScheduleServiceImpl) PurgeExceptions(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.repo.DeleteExceptionsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge exceptions", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *ScheduleServiceImpl) GetServices(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error) {
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return domain.ServiceCatalog{}, err
	}
	return s.repo.GetServices(ctx, doctorID)
}

func (s *ScheduleServiceImpl) UpdateServices(ctx context.Context, doctorID int64, catalog domain.ServiceCatalog) error {
	if err := validator.ValidateServiceCatalog(catalog); err != nil {
		return err
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return err
	}
	return s.repo.ReplaceServices(ctx, doctorID, catalog)
}

func (s *ScheduleServiceImpl) BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error) {
	if !validator.ValidateDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return s.bookingRepo.BookedSlots(ctx, doctorID, date)
}

// dayPlan is everything needed to generate one date's candidates.
type dayPlan struct {
	day        time.Time
	weekly     []domain.WeeklyScheduleEntry
	exceptions []domain.ExceptionalDate
	service    domain.ServiceDetails
}

func (s *ScheduleServiceImpl) plan(ctx context.Context, doctorID int64, date string, kind domain.ServiceKind) (*dayPlan, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown service %q", domain.ErrInvalidInput, kind)
	}
	day, err := timeofday.ParseDate(date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	catalog, err := s.repo.GetServices(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	details, err := catalog.Details(kind)
	if err != nil {
		return nil, err
	}
	weekly, err := s.repo.GetWeekly(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	exceptions, err := s.repo.ListExceptions(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	return &dayPlan{day: day, weekly: weekly, exceptions: exceptions, service: details}, nil
}

func (s *ScheduleServiceImpl) candidates(p *dayPlan, booked []domain.BookedSlot) []domain.CandidateSlot {
	slots, err := availability.Candidates(p.day, p.weekly, p.exceptions, p.service.Duration, booked, s.now().In(s.loc))
	if err != nil {
		s.logger.Warn("schedule data partly unusable", zap.Time("date", p.day), zap.Error(err))
	}
	return slots
}

func (s *ScheduleServiceImpl) Availability(ctx context.Context, doctorID int64, date string, kind domain.ServiceKind) ([]domain.CandidateSlot, error) {
	p, err := s.plan(ctx, doctorID, date, kind)
	if err != nil {
		return nil, err
	}
	booked, err := s.bookingRepo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return s.candidates(p, booked), nil
}
