// internal/models/notification.go
package models

import "time"

type EventType string

const (
	EventApplicationSubmitted     EventType = "application.submitted"
	EventApplicationStatusChanged EventType = "application.status_changed"
	EventApplicationRejected      EventType = "application.rejected"
	EventBookingCreated           EventType = "booking.created"
	EventBookingStatusChanged     EventType = "booking.status_changed"
)

// Event is a marketplace lifecycle event addressed to one recipient.
type Event struct {
	Type        EventType         `json:"type"`
	EntityID    string            `json:"entityId"`
	RecipientID string            `json:"recipientId"`
	ActorID     string            `json:"actorId,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// Notification records one delivery attempt by the notification worker.
type Notification struct {
	RecipientID string `json:"recipientId"`
	Type        string `json:"type"`
	Channel     string `json:"channel"` // email | sms
	Status      string `json:"status"`  // sent | failed | disabled
	MessageID   string `json:"messageId,omitempty"`
	SentAt      string `json:"sentAt,omitempty"`
}
