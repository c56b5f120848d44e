package contact

import "time"

const (
	StatusNew = "new"

	PriorityNormal = "normal"
	PriorityHigh   = "high"

	// Consultation requests jump the queue for the sales desk.
	InquiryConsultation = "investment-consultation"
)

type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Company     string    `json:"company,omitempty"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	InquiryType string    `json:"inquiryType"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PriorityFor ranks an inquiry by type.
func PriorityFor(inquiryType string) string {
	if inquiryType == InquiryConsultation {
		return PriorityHigh
	}

	return PriorityNormal
}
