package domain

type ServiceKind string

const (
	ServiceRegularCheckup ServiceKind = "regular_checkup"
	ServiceFollowUp       ServiceKind = "follow_up"
)

func (k ServiceKind) Valid() bool {
	return k == ServiceRegularCheckup || k == ServiceFollowUp
}

// DisplayName is the invoice label for the kind.
func (k ServiceKind) DisplayName() string {
	switch k {
	case ServiceRegularCheckup:
		return "Regular checkup"
	case ServiceFollowUp:
		return "Follow-up visit"
	default:
		return string(k)
	}
}

type ServicePrice struct {
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
}

// ServiceCatalog is what a doctor offers. A nil entry is not offered.
type ServiceCatalog struct {
	RegularCheckup *ServicePrice `json:"regular_checkup"`
	ReExamination  *ServicePrice `json:"re_examination"`
}

func (c ServiceCatalog) Offering(kind ServiceKind) (*ServicePrice, bool) {
	var p *ServicePrice
	switch kind {
	case ServiceRegularCheckup:
		p = c.RegularCheckup
	case ServiceFollowUp:
		p = c.ReExamination
	}
	if p == nil || p.DurationMinutes <= 0 {
		return nil, false
	}
	return p, true
}

// ServiceDetails is bound on service selection and used for slot length and invoicing.
type ServiceDetails struct {
	Type     ServiceKind `json:"type"`
	Name     string      `json:"name"`
	Price    float64     `json:"price"`
	Duration int         `json:"duration"`
}

func (c ServiceCatalog) Details(kind ServiceKind) (ServiceDetails, error) {
	p, ok := c.Offering(kind)
	if !ok {
		return ServiceDetails{}, ErrServiceNotOffered
	}
	return ServiceDetails{
		Type:     kind,
		Name:     kind.DisplayName(),
		Price:    p.Price,
		Duration: p.DurationMinutes,
	}, nil
}
