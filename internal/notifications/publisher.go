// Package notifications turns marketplace lifecycle events into email and SMS messages.
//
// Domain services hand events to a Publisher. With Zeebe enabled the event becomes a
// correlated process message; the process routes it to the send-marketplace-notification
// job type, which the Handler in this package serves.
package notifications

import (
	"context"
	"time"

	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/metrics"
	"gig-marketplace/internal/models"
)

const (
	// MessageName is the BPMN message every lifecycle event is published as.
	MessageName = "marketplace-event"

	publishTimeout = 5 * time.Second
)

// Publisher accepts lifecycle events. Publish never fails the caller's operation.
type Publisher interface {
	Publish(ctx context.Context, event models.Event)
}

// MessageClient is the slice of the Zeebe client the publisher needs.
type MessageClient interface {
	PublishMessage(ctx context.Context, name, correlationKey string, vars interface{}) error
}

// ZeebePublisher publishes events as correlated process messages.
type ZeebePublisher struct {
	client MessageClient
	logger logger.Logger
	now    func() time.Time
}

func NewZeebePublisher(client MessageClient, log logger.Logger) *ZeebePublisher {
	return &ZeebePublisher{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "notification-publisher"}),
		now:    time.Now,
	}
}

func (p *ZeebePublisher) Publish(ctx context.Context, event models.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	// the request context may already be cancelled once the response is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	vars := map[string]interface{}{"event": event}
	if err := p.client.PublishMessage(ctx, MessageName, event.EntityID, vars); err != nil {
		metrics.NotificationsPublished.WithLabelValues(string(event.Type), "failed").Inc()
		p.logger.Error("failed to publish event", map[string]interface{}{
			"eventType":   event.Type,
			"entityId":    event.EntityID,
			"recipientId": event.RecipientID,
			"error":       err,
		})
		return
	}

	metrics.NotificationsPublished.WithLabelValues(string(event.Type), "published").Inc()
	p.logger.Debug("event published", map[string]interface{}{
		"eventType": event.Type,
		"entityId":  event.EntityID,
	})
}

// LogPublisher records events in the log only; used when Zeebe is disabled.
type LogPublisher struct {
	logger logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log.WithFields(map[string]interface{}{"component": "notification-publisher"})}
}

func (p *LogPublisher) Publish(_ context.Context, event models.Event) {
	metrics.NotificationsPublished.WithLabelValues(string(event.Type), "logged").Inc()
	p.logger.Info("lifecycle event", map[string]interface{}{
		"eventType":   event.Type,
		"entityId":    event.EntityID,
		"recipientId": event.RecipientID,
		"actorId":     event.ActorID,
		"data":        event.Data,
	})
}
