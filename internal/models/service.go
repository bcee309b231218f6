// internal/models/service.go
package models

import "time"

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type ServiceAvailability struct {
	Days      []string `json:"days"`
	StartHour int      `json:"startHour"`
	EndHour   int      `json:"endHour"`
}

type Review struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"serviceId"`
	UserID    string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Price        float64             `json:"price"`
	Location     Location            `json:"location"`
	ProviderID   string              `json:"provider"`
	Images       []string            `json:"images"`
	Availability ServiceAvailability `json:"availability"`
	Rating       Rating              `json:"rating"`
	Reviews      []Review            `json:"reviews,omitempty"`
	IsActive     bool                `json:"isActive"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}
