package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type ScheduleRepo struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) GetWeekly(ctx context.Context, doctorID int64) ([]domain.WeeklyScheduleEntry, error) {
	query := `
		SELECT day_of_week, is_enabled, to_char(from_time, 'HH24:MI'), to_char(to_time, 'HH24:MI')
		FROM weekly_schedules
		WHERE doctor_id = $1
		ORDER BY day_of_week
	`

	rows, err := r.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("get weekly schedule: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WeeklyScheduleEntry, 0, 7)
	for rows.Next() {
		var e domain.WeeklyScheduleEntry
		if err := rows.Scan(&e.DayOfWeek, &e.IsEnabled, &e.FromTime, &e.ToTime); err != nil {
			return nil, fmt.Errorf("scan weekly schedule entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ScheduleRepo) ReplaceWeekly(ctx context.Context, doctorID int64, entries []domain.WeeklyScheduleEntry) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM weekly_schedules WHERE doctor_id = $1`, doctorID); err != nil {
			return fmt.Errorf("clear weekly schedule: %w", err)
		}

		batch := &pgx.Batch{}
		for _, e := range entries {
			from, to := e.FromTime, e.ToTime
			if from == "" {
				from = "09:00"
			}
			if to == "" {
				to = "17:00"
			}
			batch.Queue(`
				INSERT INTO weekly_schedules (doctor_id, day_of_week, is_enabled, from_time, to_time)
				VALUES ($1, $2, $3, $4::time, $5::time)
			`, doctorID, e.DayOfWeek, e.IsEnabled, from, to)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrDoctorNotFound
			}
			return fmt.Errorf("insert weekly schedule: %w", err)
		}
		return nil
	})
}

func (r *ScheduleRepo) ListExceptions(ctx context.Context, doctorID int64) ([]domain.ExceptionalDate, error) {
	query := `
		SELECT id, to_char(date, 'YYYY-MM-DD'), is_closed,
		       COALESCE(to_char(from_time, 'HH24:MI'), ''), COALESCE(to_char(to_time, 'HH24:MI'), ''),
		       created_at
		FROM exceptional_dates
		WHERE doctor_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	exceptions := make([]domain.ExceptionalDate, 0)
	for rows.Next() {
		var ex domain.ExceptionalDate
		if err := rows.Scan(&ex.ID, &ex.Date, &ex.IsClosed, &ex.FromTime, &ex.ToTime, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		exceptions = append(exceptions, ex)
	}
	return exceptions, rows.Err()
}

func (r *ScheduleRepo) CreateException(ctx context.Context, doctorID int64, dto domain.CreateExceptionDTO) (*domain.ExceptionalDate, error) {
	var from, to *string
	if !dto.IsClosed {
		from, to = &dto.FromTime, &dto.ToTime
	}

	ex := domain.ExceptionalDate{
		Date:     dto.Date,
		IsClosed: dto.IsClosed,
	}
	if from != nil {
		ex.FromTime, ex.ToTime = *from, *to
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO exceptional_dates (doctor_id, date, is_closed, from_time, to_time)
		VALUES ($1, $2::date, $3, $4::time, $5::time)
		RETURNING id, created_at
	`, doctorID, dto.Date, dto.IsClosed, from, to).Scan(&ex.ID, &ex.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, domain.ErrDuplicateDate
		case isForeignKeyViolation(err):
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("create exception: %w", err)
	}
	return &ex, nil
}

func (r *ScheduleRepo) DeleteException(ctx context.Context, doctorID int64, date string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM exceptional_dates WHERE doctor_id = $1 AND date = $2::date`,
		doctorID, date,
	)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) DeleteExceptionsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM exceptional_dates WHERE date < $1::date`,
		before.Format("2006-01-02"),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old exceptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ScheduleRepo) GetServices(ctx context.Context, doctorID int64) (domain.ServiceCatalog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kind, price::float8, duration_minutes FROM doctor_services WHERE doctor_id = $1`,
		doctorID,
	)
	if err != nil {
		return domain.ServiceCatalog{}, fmt.Errorf("get services: %w", err)
	}
	defer rows.Close()

	var catalog domain.ServiceCatalog
	for rows.Next() {
		var kind domain.ServiceKind
		var p domain.ServicePrice
		if err := rows.Scan(&kind, &p.Price, &p.DurationMinutes); err != nil {
			return domain.ServiceCatalog{}, fmt.Errorf("scan service: %w", err)
		}
		switch kind {
		case domain.ServiceRegularCheckup:
			catalog.RegularCheckup = &p
		case domain.ServiceFollowUp:
			catalog.ReExamination = &p
		}
	}
	return catalog, rows.Err()
}

func (r *ScheduleRepo) ReplaceServices(ctx context.Context, doctorID int64, catalog domain.ServiceCatalog) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM doctor_services WHERE doctor_id = $1`, doctorID); err != nil {
			return fmt.Errorf("clear services: %w", err)
		}
		for kind, p := range map[domain.ServiceKind]*domain.ServicePrice{
			domain.ServiceRegularCheckup: catalog.RegularCheckup,
			domain.ServiceFollowUp:       catalog.ReExamination,
		} {
			if p == nil {
				continue
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_services (doctor_id, kind, price, duration_minutes)
				VALUES ($1, $2, $3, $4)
			`, doctorID, string(kind), p.Price, p.DurationMinutes)
			if err != nil {
				if isForeignKeyViolation(err) {
					return domain.ErrDoctorNotFound
				}
				return fmt.Errorf("insert service %s: %w", kind, err)
			}
		}
		return nil
	})
}
