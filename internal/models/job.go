// internal/models/job.go
package models

import "time"

type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobInProgress JobStatus = "in-progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobOpen, JobInProgress, JobCompleted, JobCancelled:
		return true
	}
	return false
}

type Budget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Address string `json:"address,omitempty"`
}

type Job struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Budget         Budget    `json:"budget"`
	Location       Location  `json:"location"`
	Skills         []string  `json:"skills"`
	PostedBy       string    `json:"postedBy"`
	Status         JobStatus `json:"status"`
	Applications   []string  `json:"applications"`
	Applicants     []string  `json:"applicants"`
	HiredApplicant *string   `json:"hiredApplicant,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// JobSummary is embedded in application listings.
type JobSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Status   JobStatus `json:"status"`
	Budget   Budget    `json:"budget"`
	Location Location  `json:"location"`
	PostedBy string    `json:"postedBy"`
}

// Summary projects j onto the fields shown next to an application.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:       j.ID,
		Title:    j.Title,
		Status:   j.Status,
		Budget:   j.Budget,
		Location: j.Location,
		PostedBy: j.PostedBy,
	}
}
