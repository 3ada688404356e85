package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medbook/internal/booking"
	"medbook/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/v1", Token: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: ""}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestClient_BookedSlots(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/doctors/7/booked-slots" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2025-11-03" {
			t.Errorf("unexpected date %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data":   []map[string]any{{"time": "10:00:00", "duration_minutes": 45}},
		})
	})

	slots, err := c.BookedSlots(context.Background(), 7, "2025-11-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 || slots[0].Time != "10:00:00" || slots[0].DurationMinutes != 45 {
		t.Fatalf("unexpected slots %+v", slots)
	}
}

func TestClient_Services(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data": map[string]any{
				"regular_checkup": map[string]any{"price": 50, "duration_minutes": 30},
				"re_examination":  nil,
			},
		})
	})

	catalog, err := c.Services(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.RegularCheckup == nil || catalog.RegularCheckup.DurationMinutes != 30 {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
	if _, ok := catalog.Offering(domain.ServiceFollowUp); ok {
		t.Fatal("follow-up should not be offered")
	}
}

func TestClient_BookAppointmentConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req domain.BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.AppointmentTime != "10:00" {
			t.Errorf("unexpected request %+v", req)
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":  "error",
			"message": "slot is no longer available",
			"code":    409,
		})
	})

	_, err := c.BookAppointment(context.Background(), domain.BookingRequest{
		DoctorID:         7,
		AppointmentDate:  "2025-11-03",
		AppointmentTime:  "10:00",
		ConsultationType: domain.ServiceRegularCheckup,
	})
	if !errors.Is(err, domain.ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	if !IsConflict(err) {
		t.Fatal("expected IsConflict")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.UserMessage() != "slot is no longer available" {
		t.Fatalf("unexpected api error %v", err)
	}
}

func TestClient_BookAppointmentSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"status": "success",
			"data": domain.BookingResult{
				BookingID:        "BK-42",
				AppointmentDate:  "2025-11-03",
				AppointmentTime:  "10:00",
				ConsultationType: domain.ServiceRegularCheckup,
				TotalAmount:      50,
				PaymentStatus:    domain.PaymentStatusPending,
			},
		})
	})

	res, err := c.BookAppointment(context.Background(), domain.BookingRequest{DoctorID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BookingID != "BK-42" || res.TotalAmount != 50 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClient_ErrorWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.Schedule(context.Background(), 7)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 api error, got %v", err)
	}
	if apiErr.UserMessage() != "" {
		t.Fatalf("expected no server message, got %q", apiErr.UserMessage())
	}
	if apiErr.Error() != "api: status 502" {
		t.Fatalf("unexpected error text %q", apiErr.Error())
	}
	if errors.Is(err, domain.ErrSlotConflict) {
		t.Fatal("502 must not be a conflict")
	}
}

func TestClient_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "doctor not found", "code": 404})
	})

	if _, err := c.Exceptions(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Schedule(ctx, 7); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_WizardFallsBackOnBodylessFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/doctors/7/schedule":
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": []domain.WeeklyScheduleEntry{
				{DayOfWeek: 1, IsEnabled: true, FromTime: "09:00", ToTime: "12:00"},
			}})
		case "/api/v1/doctors/7/exceptions":
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": []domain.ExceptionalDate{}})
		case "/api/v1/doctors/7/services":
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": domain.ServiceCatalog{
				RegularCheckup: &domain.ServicePrice{Price: 50, DurationMinutes: 30},
			}})
		case "/api/v1/doctors/7/booked-slots":
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": []domain.BookedSlot{}})
		case "/api/v1/appointments":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	})

	monday := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)
	w, err := booking.Open(context.Background(), booking.Deps{
		Gateway:         c,
		Now:             func() time.Time { return monday },
		RefreshInterval: time.Hour,
	}, 7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	if err := w.SelectService(domain.ServiceRegularCheckup); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectDate(context.Background(), "2025-11-03"); err != nil {
		t.Fatal(err)
	}
	if err := w.SelectTime("10:00"); err != nil {
		t.Fatal(err)
	}

	_, err = w.ConfirmBooking(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 api error, got %v", err)
	}
	if st := w.State(); st.Step != booking.StepSummary || st.Message != booking.MsgBookingFailed {
		t.Fatalf("expected generic fallback on summary, got step=%v message=%q", st.Step, st.Message)
	}
}
