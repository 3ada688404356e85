package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type DoctorRepo struct {
	db *pgxpool.Pool
}

func NewDoctorRepository(db *pgxpool.Pool) *DoctorRepo {
	return &DoctorRepo{db: db}
}

func (r *DoctorRepo) Create(ctx context.Context, dto domain.CreateDoctorDTO) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO doctors (full_name, specialty) VALUES ($1, $2) RETURNING id`,
		dto.FullName, dto.Specialty,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create doctor: %w", err)
	}
	return id, nil
}

func (r *DoctorRepo) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	var d domain.Doctor
	err := r.db.QueryRow(ctx,
		`SELECT id, full_name, specialty, created_at FROM doctors WHERE id = $1`, id,
	).Scan(&d.ID, &d.FullName, &d.Specialty, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return &d, nil
}

func (r *DoctorRepo) List(ctx context.Context, limit, offset int) ([]domain.Doctor, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, full_name, specialty, created_at FROM doctors ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]domain.Doctor, 0)
	for rows.Next() {
		var d domain.Doctor
		if err := rows.Scan(&d.ID, &d.FullName, &d.Specialty, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

type PatientRepo struct {
	db *pgxpool.Pool
}

func NewPatientRepository(db *pgxpool.Pool) *PatientRepo {
	return &PatientRepo{db: db}
}

func (r *PatientRepo) Create(ctx context.Context, fullName, email string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO patients (full_name, email) VALUES ($1, $2) RETURNING id`,
		fullName, email,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: email already registered", domain.ErrInvalidInput)
		}
		return 0, fmt.Errorf("create patient: %w", err)
	}
	return id, nil
}

func (r *PatientRepo) GetByID(ctx context.Context, id int64) (*domain.Patient, error) {
	var p domain.Patient
	err := r.db.QueryRow(ctx,
		`SELECT id, full_name, email, created_at FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}
