package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type AppointmentRepo struct {
	db *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

const appointmentColumns = `
	id, reference, doctor_id, patient_id, consultation_type,
	to_char(appointment_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'),
	duration_minutes, price::float8, status, payment_status, invoice_url,
	created_at, updated_at
`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(
		&a.ID,
		&a.Reference,
		&a.DoctorID,
		&a.PatientID,
		&a.ConsultationType,
		&a.AppointmentDate,
		&a.StartTime,
		&a.DurationMinutes,
		&a.Price,
		&a.Status,
		&a.PaymentStatus,
		&a.InvoiceURL,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepo) Book(ctx context.Context, a *domain.Appointment, check BookCheck) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// Serialises concurrent bookings for the same doctor and date even
		// when the distributed lock is unavailable.
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`,
			fmt.Sprintf("booking:%d:%s", a.DoctorID, a.AppointmentDate),
		); err != nil {
			return fmt.Errorf("lock doctor date: %w", err)
		}

		booked, err := bookedSlots(ctx, tx, a.DoctorID, a.AppointmentDate)
		if err != nil {
			return err
		}
		if err := check(booked); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO appointments (
				reference, doctor_id, patient_id, consultation_type, appointment_date,
				start_time, duration_minutes, price, status, payment_status
			) VALUES ($1, $2, $3, $4, $5::date, $6::time, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`,
			a.Reference,
			a.DoctorID,
			a.PatientID,
			string(a.ConsultationType),
			a.AppointmentDate,
			a.StartTime,
			a.DurationMinutes,
			a.Price,
			string(a.Status),
			string(a.PaymentStatus),
		)
		if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrDoctorNotFound
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepo) BookedSlots(ctx context.Context, doctorID int64, date string) ([]domain.BookedSlot, error) {
	return bookedSlots(ctx, r.db, doctorID, date)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func bookedSlots(ctx context.Context, q querier, doctorID int64, date string) ([]domain.BookedSlot, error) {
	rows, err := q.Query(ctx, `
		SELECT to_char(start_time, 'HH24:MI'), duration_minutes
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2::date AND status <> $3
		ORDER BY start_time
	`, doctorID, date, string(domain.AppointmentStatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("get booked slots: %w", err)
	}
	defer rows.Close()

	slots := make([]domain.BookedSlot, 0)
	for rows.Next() {
		var s domain.BookedSlot
		if err := rows.Scan(&s.Time, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// Cancel marks a booked appointment cancelled and returns it. Cancelling an
// appointment that is not booked returns domain.ErrNotFound.
func (r *AppointmentRepo) Cancel(ctx context.Context, id int64) (*domain.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, `
		UPDATE appointments SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+appointmentColumns,
		id, string(domain.AppointmentStatusCancelled), string(domain.AppointmentStatusBooked)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepo) SetInvoiceURL(ctx context.Context, id int64, url string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE appointments SET invoice_url = $2, updated_at = now() WHERE id = $1`,
		id, url,
	)
	if err != nil {
		return fmt.Errorf("set invoice url: %w", err)
	}
	return nil
}
