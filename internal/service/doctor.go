package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/pkg/validator"
)

type DoctorServiceImpl struct {
	repo   repository.DoctorRepository
	logger *zap.Logger
}

func NewDoctorService(repo repository.DoctorRepository, logger *zap.Logger) *DoctorServiceImpl {
	return &DoctorServiceImpl{repo: repo, logger: logger}
}

func (s *DoctorServiceImpl) Create(ctx context.Context, dto domain.CreateDoctorDTO) (int64, error) {
	dto.FullName = strings.TrimSpace(validator.SanitizeString(dto.FullName))
	dto.Specialty = strings.TrimSpace(validator.SanitizeString(dto.Specialty))
	if dto.FullName == "" {
		return 0, fmt.Errorf("%w: full_name is required", domain.ErrInvalidInput)
	}

	id, err := s.repo.Create(ctx, dto)
	if err != nil {
		s.logger.Error("failed to create doctor", zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (s *DoctorServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorServiceImpl) List(ctx context.Context, limit, offset int) ([]domain.Doctor, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	doctors, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list doctors", zap.Error(err))
		return nil, err
	}
	return doctors, nil
}

type PatientServiceImpl struct {
	repo   repository.PatientRepository
	logger *zap.Logger
}

func NewPatientService(repo repository.PatientRepository, logger *zap.Logger) *PatientServiceImpl {
	return &PatientServiceImpl{repo: repo, logger: logger}
}

func (s *PatientServiceImpl) Create(ctx context.Context, fullName, email string) (int64, error) {
	fullName = strings.TrimSpace(validator.SanitizeString(fullName))
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || !strings.Contains(email, "@") {
		return 0, fmt.Errorf("%w: full name and a valid email are required", domain.ErrInvalidInput)
	}

	id, err := s.repo.Create(ctx, fullName, email)
	if err != nil {
		s.logger.Error("failed to create patient", zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (s *PatientServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Patient, error) {
	return s.repo.GetByID(ctx, id)
}
