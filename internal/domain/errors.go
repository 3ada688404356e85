package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSlotConflict      = errors.New("slot is no longer available")
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrServiceNotOffered = errors.New("service is not offered by this doctor")
	ErrDuplicateDate     = errors.New("exception for this date already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("access denied")
)
