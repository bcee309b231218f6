// internal/models/booking.go
package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

type Booking struct {
	ID         string        `json:"id"`
	ServiceID  string        `json:"serviceId"`
	UserID     string        `json:"userId"`
	ProviderID string        `json:"providerId"`
	Status     BookingStatus `json:"status"`
	Date       string        `json:"date"` // YYYY-MM-DD
	Time       string        `json:"time"` // HH:MM
	Price      float64       `json:"price"`
	Address    Address       `json:"address"`
	Notes      string        `json:"notes,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
