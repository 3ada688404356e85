package domain

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// BookedSlot is the start of an existing appointment on one doctor's date.
// DurationMinutes is the booked appointment's own length; zero means unknown.
type BookedSlot struct {
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// CandidateSlot is derived per date and never persisted.
type CandidateSlot struct {
	Time        string `json:"time"`
	IsAvailable bool   `json:"is_available"`
	IsBooked    bool   `json:"is_booked"`
	IsPast      bool   `json:"is_past"`
}

type BookingRequest struct {
	DoctorID         int64       `json:"doctor_id" binding:"required"`
	AppointmentDate  string      `json:"appointment_date" binding:"required"`
	AppointmentTime  string      `json:"appointment_time" binding:"required"`
	ConsultationType ServiceKind `json:"consultation_type" binding:"required,oneof=regular_checkup follow_up"`
}

// BookingResult is immutable once received.
type BookingResult struct {
	BookingID        string        `json:"booking_id"`
	AppointmentDate  string        `json:"appointment_date"`
	AppointmentTime  string        `json:"appointment_time"`
	ConsultationType ServiceKind   `json:"consultation_type"`
	TotalAmount      float64       `json:"total_amount"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	InvoiceURL       string        `json:"invoice_url,omitempty"`
}

type Appointment struct {
	ID               int64             `json:"id"`
	Reference        string            `json:"reference"`
	DoctorID         int64             `json:"doctor_id"`
	PatientID        int64             `json:"patient_id"`
	ConsultationType ServiceKind       `json:"consultation_type"`
	AppointmentDate  string            `json:"appointment_date"`
	StartTime        string            `json:"start_time"`
	DurationMinutes  int               `json:"duration_minutes"`
	Price            float64           `json:"price"`
	Status           AppointmentStatus `json:"status"`
	PaymentStatus    PaymentStatus     `json:"payment_status"`
	InvoiceURL       *string           `json:"invoice_url,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (a Appointment) Result() BookingResult {
	res := BookingResult{
		BookingID:        a.Reference,
		AppointmentDate:  a.AppointmentDate,
		AppointmentTime:  a.StartTime,
		ConsultationType: a.ConsultationType,
		TotalAmount:      a.Price,
		PaymentStatus:    a.PaymentStatus,
	}
	if a.InvoiceURL != nil {
		res.InvoiceURL = *a.InvoiceURL
	}
	return res
}

const (
	SlotEventBooked   = "slot_booked"
	SlotEventReleased = "slot_released"
)

// SlotEvent announces that a doctor's bookings for a date changed.
type SlotEvent struct {
	Type            string    `json:"type"`
	DoctorID        int64     `json:"doctor_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Timestamp       time.Time `json:"timestamp"`
}
