// Package storage keeps booking invoices in object storage.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"medbook/internal/domain"
)

type InvoiceStorage interface {
	// PutInvoice stores doc under key and returns its URL.
	PutInvoice(ctx context.Context, key string, doc []byte) (string, error)
	DeleteInvoice(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Invoice is the document written for every successful booking.
type Invoice struct {
	BookingID       string               `json:"booking_id"`
	DoctorID        int64                `json:"doctor_id"`
	PatientID       int64                `json:"patient_id"`
	Service         domain.ServiceKind   `json:"service"`
	ServiceName     string               `json:"service_name"`
	AppointmentDate string               `json:"appointment_date"`
	AppointmentTime string               `json:"appointment_time"`
	DurationMinutes int                  `json:"duration_minutes"`
	TotalAmount     float64              `json:"total_amount"`
	PaymentStatus   domain.PaymentStatus `json:"payment_status"`
	IssuedAt        time.Time            `json:"issued_at"`
}

func NewInvoice(a domain.Appointment, issuedAt time.Time) Invoice {
	return Invoice{
		BookingID:       a.Reference,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		Service:         a.ConsultationType,
		ServiceName:     a.ConsultationType.DisplayName(),
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.StartTime,
		DurationMinutes: a.DurationMinutes,
		TotalAmount:     a.Price,
		PaymentStatus:   a.PaymentStatus,
		IssuedAt:        issuedAt.UTC(),
	}
}

func (i Invoice) Encode() ([]byte, error) {
	return json.MarshalIndent(i, "", "  ")
}

// InvoiceKey is "<prefix>/<doctor>/<date>/<booking>.json".
func InvoiceKey(prefix string, a domain.Appointment) string {
	return fmt.Sprintf("%s/%d/%s/%s.json", prefix, a.DoctorID, a.AppointmentDate, a.Reference)
}
