// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// Valid reports whether s is a status an owner may set.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationShortlisted, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

type Availability string

const (
	AvailabilityImmediate   Availability = "immediate"
	AvailabilityWithinWeek  Availability = "within-week"
	AvailabilityWithinMonth Availability = "within-month"
	AvailabilityFlexible    Availability = "flexible"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityImmediate, AvailabilityWithinWeek, AvailabilityWithinMonth, AvailabilityFlexible:
		return true
	}
	return false
}

type Application struct {
	ID           string            `json:"id"`
	JobID        string            `json:"jobId"`
	ApplicantID  string            `json:"applicantId"`
	CoverLetter  string            `json:"coverLetter"`
	ExpectedRate *float64          `json:"expectedRate,omitempty"`
	Availability Availability      `json:"availability"`
	Attachments  []string          `json:"attachments"`
	Status       ApplicationStatus `json:"status"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ApplicationWithJob is an applicant's view of one of their applications.
type ApplicationWithJob struct {
	Application
	Job JobSummary `json:"job"`
}
