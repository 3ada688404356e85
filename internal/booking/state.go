package booking

import (
	"time"

	"medbook/internal/domain"
)

type Step int

const (
	StepSelectService Step = iota + 1
	StepSelectDate
	StepSelectTime
	StepSummary
	StepPayment
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepSelectService:
		return "select-service"
	case StepSelectDate:
		return "select-date"
	case StepSelectTime:
		return "select-time"
	case StepSummary:
		return "summary"
	case StepPayment:
		return "payment"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Selection is the session-scoped booking choice for one doctor.
type Selection struct {
	DoctorID       int64                  `json:"doctor_id"`
	Service        domain.ServiceKind     `json:"selected_service,omitempty"`
	ServiceDetails *domain.ServiceDetails `json:"selected_service_details,omitempty"`
	Date           string                 `json:"selected_date,omitempty"`
	Time           string                 `json:"selected_time,omitempty"`
}

// State is a copy of the wizard as the UI should present it.
type State struct {
	Step        Step                   `json:"current_step"`
	Selection   Selection              `json:"selection"`
	Candidates  []domain.CandidateSlot `json:"candidates"`
	DayClosed   bool                   `json:"day_closed"`
	Message     string                 `json:"message,omitempty"`
	Result      *domain.BookingResult  `json:"result,omitempty"`
	RefreshedAt time.Time              `json:"refreshed_at,omitempty"`
}

// Inline messages shown next to the wizard.
const (
	MsgBookedSlotsUnavailable = "existing bookings could not be loaded, availability may be out of date"
	MsgSlotTaken              = "the selected time was just booked by someone else, please choose another slot"
	MsgBookingFailed          = "booking could not be completed, please try again"
)
