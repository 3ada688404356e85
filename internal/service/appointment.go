package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medbook/internal/availability"
	"medbook/internal/domain"
	"medbook/internal/lock"
	"medbook/internal/repository"
	"medbook/internal/storage"
	"medbook/pkg/timeofday"
)

const invoiceLinkTTL = 15 * time.Minute

type AppointmentDeps struct {
	Repo          repository.AppointmentRepository
	Schedule      *ScheduleServiceImpl
	Locker        lock.Locker
	Invoices      storage.InvoiceStorage
	InvoicePrefix string
	Notifier      SlotNotifier
	Now           func() time.Time
	Logger        *zap.Logger
}

type AppointmentServiceImpl struct {
	repo          repository.AppointmentRepository
	schedule      *ScheduleServiceImpl
	locker        lock.Locker
	invoices      storage.InvoiceStorage
	invoicePrefix string
	notifier      SlotNotifier
	now           func() time.Time
	logger        *zap.Logger
}

func NewAppointmentService(deps AppointmentDeps) *AppointmentServiceImpl {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	prefix := deps.InvoicePrefix
	if prefix == "" {
		prefix = "invoices"
	}
	return &AppointmentServiceImpl{
		repo:          deps.Repo,
		schedule:      deps.Schedule,
		locker:        deps.Locker,
		invoices:      deps.Invoices,
		invoicePrefix: prefix,
		notifier:      deps.Notifier,
		now:           now,
		logger:        deps.Logger,
	}
}

// Book re-derives the requested slot from current schedule data and inserts
// the appointment while holding the doctor/date lock. A slot that is not on
// the grid or already started yields domain.ErrSlotUnavailable; one taken by a
// concurrent booking yields domain.ErrSlotConflict.
func (s *AppointmentServiceImpl) Book(ctx context.Context, patientID int64, req domain.BookingRequest) (*domain.BookingResult, error) {
	start, err := timeofday.Parse(req.AppointmentTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	plan, err := s.schedule.plan(ctx, req.DoctorID, req.AppointmentDate, req.ConsultationType)
	if err != nil {
		return nil, err
	}

	slot, ok := availability.Find(s.schedule.candidates(plan, nil), start.Format())
	if !ok || slot.IsPast {
		return nil, domain.ErrSlotUnavailable
	}

	appt := &domain.Appointment{
		Reference:        newReference(),
		DoctorID:         req.DoctorID,
		PatientID:        patientID,
		ConsultationType: plan.service.Type,
		AppointmentDate:  plan.day.Format(timeofday.DateLayout),
		StartTime:        start.Format(),
		DurationMinutes:  plan.service.Duration,
		Price:            plan.service.Price,
		Status:           domain.AppointmentStatusBooked,
		PaymentStatus:    domain.PaymentStatusPending,
	}

	err = s.locker.WithLock(ctx, lock.BookingKey(appt.DoctorID, appt.AppointmentDate), func(ctx context.Context) error {
		return s.repo.Book(ctx, appt, func(booked []domain.BookedSlot) error {
			if availability.Conflicts(start, appt.DurationMinutes, booked) {
				return domain.ErrSlotConflict
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			err = fmt.Errorf("%w: %w", domain.ErrSlotConflict, err)
		}
		if errors.Is(err, domain.ErrSlotConflict) {
			s.logger.Info("booking conflict",
				zap.Int64("doctor_id", appt.DoctorID),
				zap.String("date", appt.AppointmentDate),
				zap.String("time", appt.StartTime))
		} else {
			s.logger.Error("failed to book appointment", zap.Int64("doctor_id", appt.DoctorID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.Int64("id", appt.ID),
		zap.String("reference", appt.Reference),
		zap.Int64("doctor_id", appt.DoctorID),
		zap.String("date", appt.AppointmentDate),
		zap.String("time", appt.StartTime))

	s.attachInvoice(ctx, appt)
	s.publish(domain.SlotEventBooked, appt)

	res := appt.Result()
	return &res, nil
}

// attachInvoice is best effort: the booking stands even if the upload fails.
func (s *AppointmentServiceImpl) attachInvoice(ctx context.Context, appt *domain.Appointment) {
	if s.invoices == nil {
		return
	}
	doc, err := storage.NewInvoice(*appt, s.now()).Encode()
	if err != nil {
		s.logger.Error("failed to encode invoice", zap.String("reference", appt.Reference), zap.Error(err))
		return
	}
	url, err := s.invoices.PutInvoice(ctx, storage.InvoiceKey(s.invoicePrefix, *appt), doc)
	if err != nil {
		s.logger.Warn("failed to upload invoice", zap.String("reference", appt.Reference), zap.Error(err))
		return
	}
	if err := s.repo.SetInvoiceURL(ctx, appt.ID, url); err != nil {
		s.logger.Warn("failed to store invoice url", zap.Int64("id", appt.ID), zap.Error(err))
		return
	}
	appt.InvoiceURL = &url
}

func (s *AppointmentServiceImpl) publish(kind string, appt *domain.Appointment) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(domain.SlotEvent{
		Type:            kind,
		DoctorID:        appt.DoctorID,
		Date:            appt.AppointmentDate,
		Time:            appt.StartTime,
		DurationMinutes: appt.DurationMinutes,
		Timestamp:       s.now(),
	})
}

func (s *AppointmentServiceImpl) GetByID(ctx context.Context, id int64, actor Actor) (*domain.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(appt) {
		return nil, domain.ErrForbidden
	}
	return appt, nil
}

func (s *AppointmentServiceImpl) Cancel(ctx context.Context, id int64, actor Actor) error {
	if _, err := s.GetByID(ctx, id, actor); err != nil {
		return err
	}

	appt, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", zap.Int64("id", id), zap.Int64("by", actor.UserID))

	if s.invoices != nil && appt.InvoiceURL != nil {
		if err := s.invoices.DeleteInvoice(ctx, storage.InvoiceKey(s.invoicePrefix, *appt)); err != nil {
			s.logger.Warn("failed to delete invoice", zap.String("reference", appt.Reference), zap.Error(err))
		}
	}
	s.publish(domain.SlotEventReleased, appt)
	return nil
}

// InvoiceLink returns a short-lived download link for the appointment's
// invoice. domain.ErrNotFound means no invoice was stored.
func (s *AppointmentServiceImpl) InvoiceLink(ctx context.Context, id int64, actor Actor) (string, error) {
	appt, err := s.GetByID(ctx, id, actor)
	if err != nil {
		return "", err
	}
	if s.invoices == nil || appt.InvoiceURL == nil {
		return "", domain.ErrNotFound
	}
	link, err := s.invoices.PresignedURL(ctx, storage.InvoiceKey(s.invoicePrefix, *appt), invoiceLinkTTL)
	if err != nil {
		s.logger.Error("failed to presign invoice", zap.Int64("id", id), zap.Error(err))
		return "", err
	}
	return link, nil
}

// newReference returns a short booking id such as "BK-3F9A21C07E".
func newReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BK-" + strings.ToUpper(raw[:10])
}
