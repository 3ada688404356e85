package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medbook/internal/domain"
)

type fakeGateway struct {
	mu sync.Mutex

	weekly      []domain.WeeklyScheduleEntry
	exceptions  []domain.ExceptionalDate
	catalog     domain.ServiceCatalog
	scheduleErr error

	booked      map[string][]domain.BookedSlot
	bookedErr   error
	bookedCalls int
	block       map[string]chan struct{}

	bookResult *domain.BookingResult
	bookErr    error
	onBook     func()
	requests   []domain.BookingRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		weekly: []domain.WeeklyScheduleEntry{
			{DayOfWeek: 1, IsEnabled: true, FromTime: "09:00", ToTime: "12:00"},
			{DayOfWeek: 2, IsEnabled: true, FromTime: "09:00", ToTime: "12:00"},
			{DayOfWeek: 3, IsEnabled: false},
		},
		catalog: domain.ServiceCatalog{
			RegularCheckup: &domain.ServicePrice{Price: 50, DurationMinutes: 30},
			ReExamination:  &domain.ServicePrice{Price: 30, DurationMinutes: 20},
		},
		booked: map[string][]domain.BookedSlot{},
		block:  map[string]chan struct{}{},
	}
}

func (g *fakeGateway) Schedule(_ context.Context, _ int64) ([]domain.WeeklyScheduleEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.weekly, g.scheduleErr
}

func (g *fakeGateway) Exceptions(_ context.Context, _ int64) ([]domain.ExceptionalDate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exceptions, nil
}

func (g *fakeGateway) Services(_ context.Context, _ int64) (domain.ServiceCatalog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.catalog, nil
}

func (g *fakeGateway) BookedSlots(ctx context.Context, _ int64, date string) ([]domain.BookedSlot, error) {
	g.mu.Lock()
	g.bookedCalls++
	ch := g.block[date]
	g.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bookedErr != nil {
		return nil, g.bookedErr
	}
	return append([]domain.BookedSlot(nil), g.booked[date]...), nil
}

func (g *fakeGateway) BookAppointment(_ context.Context, req domain.BookingRequest) (*domain.BookingResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	onBook := g.onBook
	res, err := g.bookResult, g.bookErr
	g.mu.Unlock()

	if onBook != nil {
		onBook()
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return &domain.BookingResult{
		BookingID:        "BK-1",
		AppointmentDate:  req.AppointmentDate,
		AppointmentTime:  req.AppointmentTime,
		ConsultationType: req.ConsultationType,
		TotalAmount:      50,
		PaymentStatus:    domain.PaymentStatusPending,
	}, nil
}

func (g *fakeGateway) setBooked(date string, slots ...domain.BookedSlot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.booked[date] = slots
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bookedCalls
}

type serverError struct{ msg string }

func (e *serverError) Error() string       { return "server: " + e.msg }
func (e *serverError) UserMessage() string { return e.msg }

// 2025-11-03 is a Monday.
var monday8am = time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

func openWizard(t *testing.T, gw *fakeGateway, interval time.Duration) *Wizard {
	t.Helper()
	w, err := Open(context.Background(), Deps{
		Gateway:         gw,
		Now:             func() time.Time { return monday8am },
		RefreshInterval: interval,
	}, 7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func toTimeStep(t *testing.T, w *Wizard, date string) {
	t.Helper()
	if err := w.SelectService(domain.ServiceRegularCheckup); err != nil {
		t.Fatalf("select service: %v", err)
	}
	if err := w.SelectDate(context.Background(), date); err != nil {
		t.Fatalf("select date: %v", err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func slotAt(slots []domain.CandidateSlot, hhmm string) (domain.CandidateSlot, bool) {
	for _, s := range slots {
		if s.Time == hhmm {
			return s, true
		}
	}
	return domain.CandidateSlot{}, false
}

func TestOpen_CriticalReadFailure(t *testing.T) {
	gw := newFakeGateway()
	boom := errors.New("boom")
	gw.scheduleErr = boom

	w, err := Open(context.Background(), Deps{Gateway: gw}, 7)
	if w != nil {
		t.Fatal("expected no wizard")
	}
	if !errors.Is(err, ErrCriticalRead) || !errors.Is(err, boom) {
		t.Fatalf("expected critical read error wrapping cause, got %v", err)
	}
}

func TestWizard_HappyPath(t *testing.T) {
	gw := newFakeGateway()
	gw.setBooked("2025-11-03", domain.BookedSlot{Time: "10:00"})
	w := openWizard(t, gw, time.Hour)

	if st := w.State(); st.Step != StepSelectService {
		t.Fatalf("expected service step, got %s", st.Step)
	}

	toTimeStep(t, w, "2025-11-03")
	st := w.State()
	if st.Step != StepSelectTime {
		t.Fatalf("expected time step, got %s", st.Step)
	}
	if len(st.Candidates) != 6 {
		t.Fatalf("expected 6 candidates, got %d", len(st.Candidates))
	}
	if s, _ := slotAt(st.Candidates, "10:00"); s.IsAvailable {
		t.Fatal("10:00 should be booked")
	}

	if err := w.SelectTime("09:30"); err != nil {
		t.Fatalf("select time: %v", err)
	}
	if st := w.State(); st.Step != StepSummary || st.Selection.Time != "09:30" {
		t.Fatalf("unexpected state %+v", st)
	}

	res, err := w.ConfirmBooking(context.Background())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.BookingID != "BK-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if gw.requests[0].ConsultationType != domain.ServiceRegularCheckup || gw.requests[0].AppointmentTime != "09:30" {
		t.Fatalf("unexpected request %+v", gw.requests[0])
	}
	if st := w.State(); st.Step != StepPayment || st.Result == nil {
		t.Fatalf("expected payment step with result, got %+v", st)
	}

	if err := w.CompletePayment(); err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	st = w.State()
	if st.Step != StepSuccess || st.Result.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid success, got %+v", st)
	}
}

func TestWizard_IllegalTransitions(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, time.Hour)

	if err := w.SelectTime("09:00"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if err := w.SelectDate(context.Background(), "2025-11-03"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if _, err := w.ConfirmBooking(context.Background()); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if err := w.GoToStep(context.Background(), StepSummary); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("forward jump should be illegal, got %v", err)
	}
	if st := w.State(); st.Step != StepSelectService || st.Selection.Date != "" {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestWizard_ServiceNotOffered(t *testing.T) {
	gw := newFakeGateway()
	gw.catalog.ReExamination = nil
	w := openWizard(t, gw, time.Hour)

	if err := w.SelectService(domain.ServiceFollowUp); !errors.Is(err, domain.ErrServiceNotOffered) {
		t.Fatalf("expected ErrServiceNotOffered, got %v", err)
	}
	if st := w.State(); st.Step != StepSelectService {
		t.Fatalf("expected to stay on service step, got %s", st.Step)
	}
}

func TestWizard_PastDateRejected(t *testing.T) {
	w := openWizard(t, newFakeGateway(), time.Hour)
	if err := w.SelectService(domain.ServiceRegularCheckup); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectDate(context.Background(), "2025-11-02"); !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
	if err := w.SelectDate(context.Background(), "03/11/2025"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWizard_ClosedDay(t *testing.T) {
	w := openWizard(t, newFakeGateway(), time.Hour)
	// 2025-11-05 is a Wednesday, disabled.
	toTimeStep(t, w, "2025-11-05")
	st := w.State()
	if !st.DayClosed || len(st.Candidates) != 0 {
		t.Fatalf("expected closed day, got %+v", st)
	}
}

func TestWizard_SelectUnavailableTimeIsNoop(t *testing.T) {
	gw := newFakeGateway()
	gw.setBooked("2025-11-03", domain.BookedSlot{Time: "10:00"})
	w := openWizard(t, gw, time.Hour)
	toTimeStep(t, w, "2025-11-03")

	for _, tm := range []string{"10:00", "10:15", "13:00", "bogus"} {
		if err := w.SelectTime(tm); !errors.Is(err, domain.ErrSlotUnavailable) {
			t.Fatalf("%s: expected ErrSlotUnavailable, got %v", tm, err)
		}
	}
	if st := w.State(); st.Step != StepSelectTime || st.Selection.Time != "" {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestWizard_BookedSlotsFailureDegrades(t *testing.T) {
	gw := newFakeGateway()
	gw.bookedErr = errors.New("unavailable")
	w := openWizard(t, gw, time.Hour)
	toTimeStep(t, w, "2025-11-03")

	st := w.State()
	if st.Step != StepSelectTime || st.Message != MsgBookedSlotsUnavailable {
		t.Fatalf("expected degraded time step, got %+v", st)
	}
	for _, s := range st.Candidates {
		if !s.IsAvailable {
			t.Fatalf("expected all candidates available, got %+v", s)
		}
	}
}

func TestWizard_ConflictReturnsToTimeStep(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, time.Hour)
	toTimeStep(t, w, "2025-11-03")

	if err := w.SelectTime("10:00"); err != nil {
		t.Fatal(err)
	}

	gw.bookErr = fmt.Errorf("book: %w", domain.ErrSlotConflict)
	gw.onBook = func() { gw.setBooked("2025-11-03", domain.BookedSlot{Time: "10:00"}) }

	_, err := w.ConfirmBooking(context.Background())
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	st := w.State()
	if st.Step != StepSelectTime || st.Selection.Time != "" || st.Message != MsgSlotTaken {
		t.Fatalf("expected recoverable time step, got %+v", st)
	}
	if s, _ := slotAt(st.Candidates, "10:00"); s.IsAvailable || !s.IsBooked {
		t.Fatalf("10:00 should now be booked: %+v", s)
	}

	gw.mu.Lock()
	gw.bookErr = nil
	gw.onBook = nil
	gw.mu.Unlock()

	if err := w.SelectTime("10:30"); err != nil {
		t.Fatalf("select replacement time: %v", err)
	}
	if _, err := w.ConfirmBooking(context.Background()); err != nil {
		t.Fatalf("rebook: %v", err)
	}
	if st := w.State(); st.Step != StepPayment {
		t.Fatalf("expected payment step, got %s", st.Step)
	}
}

func TestWizard_OtherFailureStaysOnSummary(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, time.Hour)
	toTimeStep(t, w, "2025-11-03")
	if err := w.SelectTime("09:00"); err != nil {
		t.Fatal(err)
	}

	gw.bookErr = &serverError{msg: "patient has an unpaid invoice"}
	if _, err := w.ConfirmBooking(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st := w.State()
	if st.Step != StepSummary || st.Message != "patient has an unpaid invoice" || st.Selection.Time != "09:00" {
		t.Fatalf("unexpected state %+v", st)
	}

	gw.bookErr = errors.New("connection reset")
	w.ConfirmBooking(context.Background())
	if st := w.State(); st.Message != MsgBookingFailed {
		t.Fatalf("expected fallback message, got %q", st.Message)
	}
}

func TestWizard_GoToStep(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, time.Hour)
	toTimeStep(t, w, "2025-11-03")
	if err := w.SelectTime("09:00"); err != nil {
		t.Fatal(err)
	}

	if err := w.GoToStep(context.Background(), StepSelectDate); err != nil {
		t.Fatalf("go to date step: %v", err)
	}
	st := w.State()
	if st.Step != StepSelectDate || st.Selection.Date != "2025-11-03" || st.Selection.Time != "" {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Selection.Service != domain.ServiceRegularCheckup {
		t.Fatalf("service should be kept, got %q", st.Selection.Service)
	}

	if err := w.GoToStep(context.Background(), StepSelectService); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectService(domain.ServiceFollowUp); err != nil {
		t.Fatal(err)
	}
	// 09:00-12:00 in 20 minute slots.
	if n := len(w.Candidates()); n != 9 {
		t.Fatalf("expected 9 candidates after service change, got %d", n)
	}

	if err := w.SelectDate(context.Background(), "2025-11-03"); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectTime("09:20"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.ConfirmBooking(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.GoToStep(context.Background(), StepSelectTime); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("going back after booking should be illegal, got %v", err)
	}
}

func TestWizard_StaleResponseDiscarded(t *testing.T) {
	gw := newFakeGateway()
	gw.setBooked("2025-11-03", domain.BookedSlot{Time: "09:00"})
	release := make(chan struct{})
	gw.block["2025-11-03"] = release

	w := openWizard(t, gw, time.Hour)
	if err := w.SelectService(domain.ServiceRegularCheckup); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- w.SelectDate(context.Background(), "2025-11-03") }()
	eventually(t, func() bool { return gw.calls() == 1 })

	if err := w.SelectDate(context.Background(), "2025-11-04"); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale select: %v", err)
	}

	st := w.State()
	if st.Selection.Date != "2025-11-04" || st.Step != StepSelectTime {
		t.Fatalf("unexpected state %+v", st)
	}
	if s, _ := slotAt(st.Candidates, "09:00"); !s.IsAvailable {
		t.Fatalf("bookings of the stale date leaked into %s: %+v", st.Selection.Date, s)
	}
}

func TestWizard_PollerRefreshesAndStops(t *testing.T) {
	gw := newFakeGateway()
	var mu sync.Mutex
	var changes int
	w, err := Open(context.Background(), Deps{
		Gateway:         gw,
		Now:             func() time.Time { return monday8am },
		RefreshInterval: 10 * time.Millisecond,
		OnChange: func(State) {
			mu.Lock()
			changes++
			mu.Unlock()
		},
	}, 7)
	if err != nil {
		t.Fatal(err)
	}
	toTimeStep(t, w, "2025-11-03")

	gw.setBooked("2025-11-03", domain.BookedSlot{Time: "11:30"})
	eventually(t, func() bool {
		s, _ := slotAt(w.Candidates(), "11:30")
		return s.IsBooked
	})

	if err := w.SelectTime("09:00"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	after := gw.calls()
	time.Sleep(50 * time.Millisecond)
	if gw.calls() != after {
		t.Fatal("poller kept running after leaving the time step")
	}

	w.Close()
	if err := w.Reset(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if changes == 0 {
		t.Fatal("expected change notifications")
	}
}

func TestWizard_CloseStopsPoller(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, 5*time.Millisecond)
	toTimeStep(t, w, "2025-11-03")
	eventually(t, func() bool { return gw.calls() > 2 })

	w.Close()
	after := gw.calls()
	time.Sleep(30 * time.Millisecond)
	if gw.calls() != after {
		t.Fatal("poller survived Close")
	}
	if st := w.State(); st.Step != StepSelectService || st.Selection.Date != "" {
		t.Fatalf("expected reset state after close, got %+v", st)
	}
}

func TestWizard_RefreshOnDemand(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, time.Hour)

	if w.Refresh(context.Background()) {
		t.Fatal("refresh outside the time step must be a no-op")
	}

	toTimeStep(t, w, "2025-11-03")
	gw.setBooked("2025-11-03", domain.BookedSlot{Time: "09:30", DurationMinutes: 30})
	if !w.Refresh(context.Background()) {
		t.Fatal("expected refresh on the time step")
	}
	if s, _ := slotAt(w.Candidates(), "09:30"); !s.IsBooked {
		t.Fatalf("expected 09:30 booked after refresh, got %+v", s)
	}

	gw.mu.Lock()
	gw.bookedErr = errors.New("timeout")
	gw.mu.Unlock()
	w.Refresh(context.Background())
	if s, _ := slotAt(w.Candidates(), "09:30"); !s.IsBooked {
		t.Fatal("failed refresh must keep the previous bookings")
	}
}

func TestWizard_CancelledDateChangeKeepsPolling(t *testing.T) {
	gw := newFakeGateway()
	w := openWizard(t, gw, 20*time.Millisecond)
	toTimeStep(t, w, "2025-11-03")

	release := make(chan struct{})
	gw.mu.Lock()
	gw.block["2025-11-04"] = release
	gw.mu.Unlock()
	gw.setBooked("2025-11-04", domain.BookedSlot{Time: "10:00"})

	ctx, cancel := context.WithCancel(context.Background())
	before := gw.calls()
	done := make(chan error, 1)
	go func() { done <- w.SelectDate(ctx, "2025-11-04") }()
	eventually(t, func() bool { return gw.calls() > before })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	st := w.State()
	if st.Step != StepSelectTime || st.Selection.Date != "2025-11-04" {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Message == MsgBookedSlotsUnavailable {
		t.Fatal("cancellation must not be reported as a failed read")
	}

	close(release)
	eventually(t, func() bool {
		s, ok := slotAt(w.Candidates(), "10:00")
		return ok && s.IsBooked
	})
}

func TestWizard_CloseFromOnChange(t *testing.T) {
	gw := newFakeGateway()
	var (
		w          *Wizard
		background atomic.Bool
		once       sync.Once
	)
	closed := make(chan struct{})

	var err error
	w, err = Open(context.Background(), Deps{
		Gateway:         gw,
		Now:             func() time.Time { return monday8am },
		RefreshInterval: 10 * time.Millisecond,
		OnChange: func(State) {
			if !background.Load() {
				return
			}
			once.Do(func() {
				w.Close()
				close(closed)
			})
		},
	}, 7)
	if err != nil {
		t.Fatal(err)
	}
	toTimeStep(t, w, "2025-11-03")
	background.Store(true)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close called from OnChange did not return")
	}
	if err := w.Reset(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWizard_BookingFailureWithoutServerMessage(t *testing.T) {
	gw := newFakeGateway()
	gw.bookErr = &serverError{}
	w := openWizard(t, gw, time.Hour)
	toTimeStep(t, w, "2025-11-03")
	if err := w.SelectTime("10:00"); err != nil {
		t.Fatal(err)
	}

	if _, err := w.ConfirmBooking(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if st := w.State(); st.Step != StepSummary || st.Message != MsgBookingFailed {
		t.Fatalf("expected generic fallback on summary, got step=%v message=%q", st.Step, st.Message)
	}
}
