// Package booking drives the six-step appointment booking wizard for one
// doctor: service, date, time, summary, payment and success.
//
// A Wizard is owned by whoever opened it and must be closed when the UI goes
// away. All methods are safe for concurrent use; remote calls are made without
// holding the wizard lock.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medbook/internal/availability"
	"medbook/internal/domain"
	"medbook/pkg/timeofday"
)

const DefaultRefreshInterval = 30 * time.Second

var (
	ErrCriticalRead        = errors.New("doctor schedule could not be loaded")
	ErrIllegalTransition   = errors.New("action not allowed in the current step")
	ErrIncompleteSelection = errors.New("booking selection is incomplete")
	ErrPastDate            = errors.New("date is in the past")
	ErrClosed              = errors.New("booking wizard is closed")
)

// Gateway is the remote booking service.
type Gateway interface {
	Schedule(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error)
	Exceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error)
	Services(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error)
	BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error)
	BookAppointment(ctx context.Context, req domain.BookingRequest) (*domain.BookingResult, error)
}

// userMessage is implemented by gateway errors that carry a server message.
type userMessage interface {
	UserMessage() string
}

type Deps struct {
	Gateway         Gateway
	Logger          *zap.Logger
	Now             func() time.Time
	RefreshInterval time.Duration
	// OnChange, when set, receives a snapshot after every state change,
	// including background refreshes, which call it from the poller
	// goroutine. It may call Close; Close then returns without waiting for
	// the poller to exit.
	OnChange func(State)
}

type Wizard struct {
	gw       Gateway
	logger   *zap.Logger
	now      func() time.Time
	interval time.Duration
	onChange func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	doctorID   int64
	weekly     []domain.WeeklyScheduleEntry
	exceptions []domain.ExceptionalDate
	catalog    domain.ServiceCatalog

	step        Step
	sel         Selection
	booked      []domain.BookedSlot
	candidates  []domain.CandidateSlot
	dayClosed   bool
	message     string
	result      *domain.BookingResult
	refreshedAt time.Time
	submitting  bool

	fetchSeq uint64
	poll     *poller
}

// Open loads the doctor's schedule, exceptions and services and returns a
// wizard on the service step. Any of the three reads failing is fatal.
func Open(ctx context.Context, deps Deps, doctorID int64) (*Wizard, error) {
	if deps.Gateway == nil {
		return nil, errors.New("booking: gateway is required")
	}

	w := &Wizard{
		gw:       deps.Gateway,
		logger:   deps.Logger,
		now:      deps.Now,
		interval: deps.RefreshInterval,
		onChange: deps.OnChange,
		doctorID: doctorID,
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.interval <= 0 {
		w.interval = DefaultRefreshInterval
	}
	w.logger = w.logger.With(zap.Int64("doctor_id", doctorID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weekly, err := w.gw.Schedule(gctx, doctorID)
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		w.weekly = weekly
		return nil
	})
	g.Go(func() error {
		exceptions, err := w.gw.Exceptions(gctx, doctorID)
		if err != nil {
			return fmt.Errorf("exceptions: %w", err)
		}
		w.exceptions = exceptions
		return nil
	})
	g.Go(func() error {
		catalog, err := w.gw.Services(gctx, doctorID)
		if err != nil {
			return fmt.Errorf("services: %w", err)
		}
		w.catalog = catalog
		return nil
	})
	if err := g.Wait(); err != nil {
		w.logger.Error("failed to open booking wizard", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCriticalRead, err)
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.resetLocked()

	w.logger.Debug("booking wizard opened")
	return w, nil
}

// Close stops background work and discards the selection.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	p := w.stopPollerLocked()
	w.closed = true
	w.resetLocked()
	w.cancel()
	w.mu.Unlock()

	// Waiting from inside the poller's own OnChange call would deadlock.
	if p != nil && !p.notifying.Load() {
		<-p.done
	}
	w.logger.Debug("booking wizard closed")
}

// Reset returns to the service step and clears every selection.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.stopPollerLocked()
	w.resetLocked()
	w.mu.Unlock()

	w.notify()
	return nil
}

func (w *Wizard) resetLocked() {
	w.step = StepSelectService
	w.sel = Selection{DoctorID: w.doctorID}
	w.booked = nil
	w.candidates = nil
	w.dayClosed = false
	w.message = ""
	w.result = nil
	w.refreshedAt = time.Time{}
	w.submitting = false
	w.fetchSeq++
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) Candidates() []domain.CandidateSlot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.CandidateSlot(nil), w.candidates...)
}

func (w *Wizard) snapshotLocked() State {
	st := State{
		Step:        w.step,
		Selection:   w.sel,
		Candidates:  append([]domain.CandidateSlot(nil), w.candidates...),
		DayClosed:   w.dayClosed,
		Message:     w.message,
		RefreshedAt: w.refreshedAt,
	}
	if w.sel.ServiceDetails != nil {
		d := *w.sel.ServiceDetails
		st.Selection.ServiceDetails = &d
	}
	if w.result != nil {
		r := *w.result
		st.Result = &r
	}
	return st
}

func (w *Wizard) notify() {
	if w.onChange == nil {
		return
	}
	w.onChange(w.State())
}

// SelectService binds the service details and moves to the date step. When a
// date is already chosen the candidates are regenerated for the new duration.
func (w *Wizard) SelectService(kind domain.ServiceKind) error {
	w.mu.Lock()
	if err := w.checkStepLocked(StepSelectService); err != nil {
		w.mu.Unlock()
		return err
	}
	details, err := w.catalog.Details(kind)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	changed := w.sel.Service != kind
	w.sel.Service = kind
	w.sel.ServiceDetails = &details
	if changed {
		w.sel.Time = ""
		w.regenerateLocked()
	}
	w.message = ""
	w.step = StepSelectDate
	w.mu.Unlock()

	w.logger.Debug("service selected", zap.String("service", string(kind)))
	w.notify()
	return nil
}

// SelectDate fetches booked slots for date, regenerates the candidates and
// moves to the time step. It may also be called on the time step to change
// the date in place. A failed booked-slots fetch is treated as no bookings.
func (w *Wizard) SelectDate(ctx context.Context, date string) error {
	w.mu.Lock()
	if err := w.checkStepLocked(StepSelectDate, StepSelectTime); err != nil {
		w.mu.Unlock()
		return err
	}
	key, err := w.validateDateLocked(date)
	if err != nil {
		w.mu.Unlock()
		return err
	}

	w.stopPollerLocked()
	w.sel.Date = key
	w.sel.Time = ""
	w.booked = nil
	w.candidates = nil
	w.dayClosed = false
	w.message = ""
	w.mu.Unlock()

	loaded := w.refresh(ctx, key, false)

	w.mu.Lock()
	if w.closed || w.sel.Date != key || (w.step != StepSelectDate && w.step != StepSelectTime) {
		w.mu.Unlock()
		return ctx.Err()
	}
	if !loaded {
		if err := ctx.Err(); err != nil {
			// The time step still shows key, so it keeps being polled and
			// the first poll loads it.
			if w.step == StepSelectTime {
				w.startPollerLocked(key, true)
			}
			w.mu.Unlock()
			w.notify()
			return err
		}
	}
	w.step = StepSelectTime
	w.startPollerLocked(key, false)
	w.mu.Unlock()

	w.logger.Debug("date selected", zap.String("date", key))
	w.notify()
	return nil
}

func (w *Wizard) validateDateLocked(date string) (string, error) {
	loc := w.now().Location()
	day, err := timeofday.ParseDate(date, loc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return "", ErrPastDate
	}
	return day.Format(timeofday.DateLayout), nil
}

// SelectTime accepts only a candidate that is currently available. Anything
// else leaves the wizard untouched and returns domain.ErrSlotUnavailable.
func (w *Wizard) SelectTime(t string) error {
	w.mu.Lock()
	if err := w.checkStepLocked(StepSelectTime); err != nil {
		w.mu.Unlock()
		return err
	}
	slot, ok := availability.Find(w.candidates, t)
	if !ok || !slot.IsAvailable {
		w.mu.Unlock()
		return domain.ErrSlotUnavailable
	}

	w.stopPollerLocked()
	w.sel.Time = slot.Time
	w.message = ""
	w.step = StepSummary
	w.mu.Unlock()

	w.logger.Debug("time selected", zap.String("time", slot.Time))
	w.notify()
	return nil
}

// ConfirmBooking submits the selection. On success the result is stored and
// the wizard moves to payment. A conflict refreshes the candidates for the
// same date and sends the user back to time selection; other failures keep
// the summary step and expose the server message.
func (w *Wizard) ConfirmBooking(ctx context.Context) (*domain.BookingResult, error) {
	w.mu.Lock()
	if err := w.checkStepLocked(StepSummary); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrIllegalTransition
	}
	if w.sel.ServiceDetails == nil || w.sel.Date == "" || w.sel.Time == "" {
		w.mu.Unlock()
		return nil, ErrIncompleteSelection
	}
	req := domain.BookingRequest{
		DoctorID:         w.doctorID,
		AppointmentDate:  w.sel.Date,
		AppointmentTime:  w.sel.Time,
		ConsultationType: w.sel.Service,
	}
	w.submitting = true
	w.message = ""
	w.mu.Unlock()

	res, err := w.gw.BookAppointment(ctx, req)

	w.mu.Lock()
	w.submitting = false
	if w.closed || w.step != StepSummary {
		w.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}

	switch {
	case err == nil:
		w.stopPollerLocked()
		r := *res
		w.result = &r
		w.step = StepPayment
		w.mu.Unlock()

		w.logger.Info("appointment booked",
			zap.String("booking_id", res.BookingID),
			zap.String("date", res.AppointmentDate),
			zap.String("time", res.AppointmentTime))
		w.notify()
		return res, nil

	case errors.Is(err, domain.ErrSlotConflict):
		date := w.sel.Date
		w.sel.Time = ""
		w.step = StepSelectTime
		w.mu.Unlock()

		w.logger.Warn("selected slot was taken, refreshing", zap.String("date", date), zap.String("time", req.AppointmentTime))
		loaded := w.refresh(ctx, date, false)

		w.mu.Lock()
		if !w.closed && w.sel.Date == date && w.step == StepSelectTime {
			w.message = MsgSlotTaken
			w.startPollerLocked(date, !loaded)
		}
		w.mu.Unlock()
		w.notify()
		return nil, err

	default:
		w.message = MsgBookingFailed
		var um userMessage
		if errors.As(err, &um) && um.UserMessage() != "" {
			w.message = um.UserMessage()
		}
		w.mu.Unlock()

		w.logger.Error("failed to book appointment", zap.Error(err))
		w.notify()
		return nil, err
	}
}

// CompletePayment is called by the payment collaborator once the payment
// has gone through.
func (w *Wizard) CompletePayment() error {
	w.mu.Lock()
	if err := w.checkStepLocked(StepPayment); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.result != nil {
		r := *w.result
		r.PaymentStatus = domain.PaymentStatusPaid
		w.result = &r
	}
	w.step = StepSuccess
	w.mu.Unlock()

	w.notify()
	return nil
}

// GoToStep moves back to an earlier step. Selections are kept so the user
// can edit them, but a chosen time is dropped whenever time selection is
// revisited. Going back is not possible once a booking exists.
func (w *Wizard) GoToStep(ctx context.Context, step Step) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if step < StepSelectService || step >= w.step || w.result != nil || w.submitting {
		w.mu.Unlock()
		return ErrIllegalTransition
	}

	w.stopPollerLocked()
	w.message = ""
	if step <= StepSelectTime {
		w.sel.Time = ""
	}
	w.step = step
	date := w.sel.Date
	w.mu.Unlock()

	if step == StepSelectTime && date != "" {
		loaded := w.refresh(ctx, date, false)

		w.mu.Lock()
		if !w.closed && w.step == StepSelectTime && w.sel.Date == date {
			w.startPollerLocked(date, !loaded)
		}
		w.mu.Unlock()
	}

	w.notify()
	return nil
}

func (w *Wizard) checkStepLocked(allowed ...Step) error {
	if w.closed {
		return ErrClosed
	}
	for _, s := range allowed {
		if w.step == s {
			return nil
		}
	}
	return ErrIllegalTransition
}

// regenerateLocked rebuilds the candidate list from scratch.
func (w *Wizard) regenerateLocked() {
	if w.sel.Date == "" || w.sel.ServiceDetails == nil {
		w.candidates = nil
		w.dayClosed = false
		return
	}

	now := w.now()
	day, err := timeofday.ParseDate(w.sel.Date, now.Location())
	if err != nil {
		w.logger.Error("selected date is invalid", zap.String("date", w.sel.Date), zap.Error(err))
		w.candidates = nil
		w.dayClosed = true
		return
	}

	slots, err := availability.Candidates(day, w.weekly, w.exceptions, w.sel.ServiceDetails.Duration, w.booked, now)
	if err != nil {
		w.logger.Warn("schedule data could not be fully parsed", zap.String("date", w.sel.Date), zap.Error(err))
	}
	w.candidates = slots
	w.dayClosed = len(slots) == 0
}
