package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/service"
)

type fakeTokens map[string]service.Actor

func (f fakeTokens) Parse(token string) (int64, domain.UserRole, error) {
	a, ok := f[token]
	if !ok {
		return 0, "", errors.New("invalid token")
	}
	return a.UserID, a.Role, nil
}

var testTokens = fakeTokens{
	"patient": {UserID: 11, Role: domain.UserRolePatient},
	"doctor":  {UserID: 7, Role: domain.UserRoleDoctor},
	"admin":   {UserID: 1, Role: domain.UserRoleAdmin},
}

type fakeDoctorService struct{}

func (fakeDoctorService) Create(ctx context.Context, dto domain.CreateDoctorDTO) (int64, error) {
	return 9, nil
}

func (fakeDoctorService) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	if id != 7 {
		return nil, domain.ErrDoctorNotFound
	}
	return &domain.Doctor{ID: 7, FullName: "Dr. Rivera"}, nil
}

func (fakeDoctorService) List(ctx context.Context, limit, offset int) ([]domain.Doctor, error) {
	return []domain.Doctor{{ID: 7, FullName: "Dr. Rivera"}}, nil
}

type fakeScheduleService struct {
	availabilityErr error
	updated         *domain.UpdateWeeklyScheduleDTO
}

func (f *fakeScheduleService) GetWeekly(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error) {
	return []domain.WeeklyScheduleEntry{{DayOfWeek: 1, IsEnabled: true, FromTime: "09:00", ToTime: "17:00"}}, nil
}

func (f *fakeScheduleService) UpdateWeekly(ctx context.Context, doctorID int64, dto domain.UpdateWeeklyScheduleDTO) error {
	f.updated = &dto
	return nil
}

func (f *fakeScheduleService) ListExceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error) {
	return []domain.ExceptionalDate{}, nil
}

func (f *fakeScheduleService) CreateException(ctx context.Context, doctorID int64, dto domain.CreateExceptionDTO) (*domain.ExceptionalDate, error) {
	if dto.Date == "2025-12-24" {
		return nil, domain.ErrDuplicateDate
	}
	return &domain.ExceptionalDate{ID: 1, Date: dto.Date, IsClosed: dto.IsClosed}, nil
}

func (f *fakeScheduleService) DeleteException(ctx context.Context, doctorID int64, date string) error {
	return nil
}

func (f *fakeScheduleService) PurgeExceptions(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeScheduleService) GetServices(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error) {
	return domain.ServiceCatalog{RegularCheckup: &domain.ServicePrice{Price: 50, DurationMinutes: 30}}, nil
}

func (f *fakeScheduleService) UpdateServices(ctx context.Context, doctorID int64, catalog domain.ServiceCatalog) error {
	return nil
}

func (f *fakeScheduleService) BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error) {
	return []domain.BookedSlot{{Time: "10:00", DurationMinutes: 30}}, nil
}

func (f *fakeScheduleService) Availability(ctx context.Context, doctorID int64, date string, kind domain.ServiceKind) ([]domain.CandidateSlot, error) {
	if f.availabilityErr != nil {
		return nil, f.availabilityErr
	}
	return []domain.CandidateSlot{
		{Time: "09:00", IsAvailable: true},
		{Time: "09:30", IsBooked: true},
	}, nil
}

type fakeAppointmentService struct {
	bookErr  error
	lastUser int64
}

func (f *fakeAppointmentService) Book(ctx context.Context, patientID int64, req domain.BookingRequest) (*domain.BookingResult, error) {
	f.lastUser = patientID
	if f.bookErr != nil {
		return nil, f.bookErr
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

func (f *fakeAppointmentService) GetByID(ctx context.Context, id int64, actor service.Actor) (*domain.Appointment, error) {
	if actor.UserID != 11 && actor.Role != domain.UserRoleAdmin {
		return nil, domain.ErrForbidden
	}
	return &domain.Appointment{ID: id, PatientID: 11}, nil
}

func (f *fakeAppointmentService) Cancel(ctx context.Context, id int64, actor service.Actor) error {
	if id == 404 {
		return domain.ErrNotFound
	}
	return nil
}

func (f *fakeAppointmentService) InvoiceLink(ctx context.Context, id int64, actor service.Actor) (string, error) {
	if _, err := f.GetByID(ctx, id, actor); err != nil {
		return "", err
	}
	if id == 404 {
		return "", domain.ErrNotFound
	}
	return "https://files.test/invoices/BK-1.json?signed", nil
}

type testServer struct {
	router       *gin.Engine
	schedule     *fakeScheduleService
	appointments *fakeAppointmentService
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		schedule:     &fakeScheduleService{},
		appointments: &fakeAppointmentService{},
	}
	h := NewHandler(Deps{
		Services: &service.Services{
			Doctor:      fakeDoctorService{},
			Schedule:    ts.schedule,
			Appointment: ts.appointments,
		},
		Logger: zap.NewNop(),
		Config: &config.Config{Booking: config.BookingConfig{RateLimit: 0.001, RateBurst: 2}},
		Tokens: testTokens,
		Checks: checks,
	})
	ts.router = gin.New()
	h.InitRoutes(ts.router)
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func validBooking() domain.BookingRequest {
	return domain.BookingRequest{
		DoctorID:         7,
		AppointmentDate:  "2025-11-04",
		AppointmentTime:  "10:00",
		ConsultationType: domain.ServiceRegularCheckup,
	}
}

func TestAvailability(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/doctors/7/availability?date=2025-11-04&service=regular_checkup", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	var slots []domain.CandidateSlot
	if err := json.Unmarshal(env.Data, &slots); err != nil {
		t.Fatal(err)
	}
	if env.Status != "success" || len(slots) != 2 || !slots[1].IsBooked {
		t.Fatalf("unexpected response %+v %+v", env, slots)
	}

	if rec := ts.do(http.MethodGet, "/api/v1/doctors/7/availability?date=2025-11-04&service=massage", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown service, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/doctors/abc/availability?date=2025-11-04&service=follow_up", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	ts.schedule.availabilityErr = domain.ErrServiceNotOffered
	rec = ts.do(http.MethodGet, "/api/v1/doctors/7/availability?date=2025-11-04&service=follow_up", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestBookedSlots(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(http.MethodGet, "/api/v1/doctors/7/booked-slots?date=tomorrow", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec := ts.do(http.MethodGet, "/api/v1/doctors/7/booked-slots?date=2025-11-04", "", nil)
	var slots []domain.BookedSlot
	if err := json.Unmarshal(decode(t, rec).Data, &slots); err != nil || len(slots) != 1 || slots[0].DurationMinutes != 30 {
		t.Fatalf("unexpected slots %v %+v", err, slots)
	}
}

func TestBookAppointment(t *testing.T) {
	cases := []struct {
		name    string
		token   string
		body    any
		bookErr error
		want    int
	}{
		{"no token", "", validBooking(), nil, http.StatusUnauthorized},
		{"bad token", "nope", validBooking(), nil, http.StatusUnauthorized},
		{"doctor cannot book", "doctor", validBooking(), nil, http.StatusForbidden},
		{"missing fields", "patient", map[string]any{"doctor_id": 7}, nil, http.StatusBadRequest},
		{"conflict", "patient", validBooking(), domain.ErrSlotConflict, http.StatusConflict},
		{"unavailable", "patient", validBooking(), domain.ErrSlotUnavailable, http.StatusUnprocessableEntity},
		{"unexpected", "patient", validBooking(), errors.New("pool closed"), http.StatusInternalServerError},
		{"created", "patient", validBooking(), nil, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.appointments.bookErr = tc.bookErr

			rec := ts.do(http.MethodPost, "/api/v1/appointments", tc.token, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
			env := decode(t, rec)
			if tc.want >= 400 {
				if env.Status != "error" || env.Code != tc.want {
					t.Fatalf("unexpected error envelope %+v", env)
				}
				if tc.want == http.StatusInternalServerError && strings.Contains(env.Message, "pool") {
					t.Fatalf("internal error leaked: %q", env.Message)
				}
				return
			}
			var res domain.BookingResult
			if err := json.Unmarshal(env.Data, &res); err != nil || res.BookingID != "BK-1" {
				t.Fatalf("unexpected result %v %+v", err, res)
			}
			if ts.appointments.lastUser != 11 {
				t.Fatalf("booked for user %d", ts.appointments.lastUser)
			}
		})
	}
}

func TestBookAppointment_ConflictMessage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.appointments.bookErr = domain.ErrSlotConflict

	env := decode(t, ts.do(http.MethodPost, "/api/v1/appointments", "patient", validBooking()))
	if env.Message != domain.ErrSlotConflict.Error() {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestBookAppointment_RateLimited(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 0; i < 2; i++ {
		if rec := ts.do(http.MethodPost, "/api/v1/appointments", "patient", validBooking()); rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status %d", i, rec.Code)
		}
	}
	rec := ts.do(http.MethodPost, "/api/v1/appointments", "patient", validBooking())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	clock := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(1, 1)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	first := l.get("10.0.0.1")
	l.get("10.0.0.2")
	if l.size() != 2 {
		t.Fatalf("expected 2 limiters, got %d", l.size())
	}

	clock = clock.Add(limiterIdleTTL / 2)
	if l.get("10.0.0.1") != first {
		t.Fatal("active client must keep its bucket")
	}

	clock = clock.Add(limiterIdleTTL / 2)
	l.get("10.0.0.1")
	if l.size() != 1 {
		t.Fatalf("expected the idle client to be swept, got %d limiters", l.size())
	}
	if l.get("10.0.0.1") != first {
		t.Fatal("recently seen client must not be swept")
	}
}

func TestScheduleOwnership(t *testing.T) {
	ts := newTestServer(t, nil)
	body := domain.UpdateWeeklyScheduleDTO{Entries: []domain.WeeklyScheduleEntry{{DayOfWeek: 1, IsEnabled: true, FromTime: "09:00", ToTime: "12:00"}}}

	if rec := ts.do(http.MethodPut, "/api/v1/doctors/7/schedule", "patient", body); rec.Code != http.StatusForbidden {
		t.Fatalf("patient: expected 403, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPut, "/api/v1/doctors/8/schedule", "doctor", body); rec.Code != http.StatusForbidden {
		t.Fatalf("other doctor: expected 403, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPut, "/api/v1/doctors/7/schedule", "doctor", body); rec.Code != http.StatusOK {
		t.Fatalf("own schedule: expected 200, got %d", rec.Code)
	}
	if ts.schedule.updated == nil || len(ts.schedule.updated.Entries) != 1 {
		t.Fatalf("update not forwarded: %+v", ts.schedule.updated)
	}
	if rec := ts.do(http.MethodPut, "/api/v1/doctors/8/schedule", "admin", body); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
}

func TestCreateException(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/api/v1/doctors/7/exceptions", "doctor", domain.CreateExceptionDTO{Date: "2025-12-31", IsClosed: true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	rec = ts.do(http.MethodPost, "/api/v1/doctors/7/exceptions", "doctor", domain.CreateExceptionDTO{Date: "2025-12-24", IsClosed: true})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate date, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodDelete, "/api/v1/doctors/7/exceptions/2025-12-31", "doctor", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestAppointmentAccess(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(http.MethodGet, "/api/v1/appointments/3", "patient", nil); rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/appointments/3", "doctor", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger: expected 403, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodDelete, "/api/v1/appointments/404", "patient", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInvoiceRedirect(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/appointments/3/invoice", "patient", nil)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://files.test/invoices/BK-1.json?signed" {
		t.Fatalf("unexpected location %q", loc)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/appointments/404/invoice", "patient", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/appointments/3/invoice", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDoctors(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.do(http.MethodGet, "/api/v1/doctors/99", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/api/v1/doctors", "doctor", domain.CreateDoctorDTO{FullName: "Dr. Chen"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/api/v1/doctors", "admin", domain.CreateDoctorDTO{FullName: "Dr. Chen"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	if rec := ts.do(http.MethodGet, "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}

	rec := ts.do(http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var report map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report["status"] != "degraded" || report["postgres"] != "ok" {
		t.Fatalf("unexpected report %v", report)
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	rec = ts.do(http.MethodGet, "/health/live", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodOptions, "/api/v1/appointments", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
