// internal/notifications/handler.go
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/metrics"
	"gig-marketplace/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "send-marketplace-notification"

// Delivery statuses.
const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// ContactLookup resolves a user id to an address book entry.
type ContactLookup interface {
	Contact(ctx context.Context, userID string) (*models.Contact, error)
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	Timeout      time.Duration
}

// Input is the variable set the process hands to the job.
type Input struct {
	Event models.Event `json:"event"`
}

type Output struct {
	NotificationID string                `json:"notificationId"`
	Status         string                `json:"status"`
	SentAt         string                `json:"sentAt"`
	Deliveries     []models.Notification `json:"deliveries,omitempty"`
}

// Handler serves send-marketplace-notification jobs.
type Handler struct {
	config   Config
	contacts ContactLookup
	email    EmailSender
	sms      SMSSender
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
	now      func() time.Time
}

// NewHandler wires the senders; a nil sender disables its channel.
func NewHandler(cfg Config, contacts ContactLookup, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		contacts: contacts,
		email:    email,
		sms:      sms,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
		now:      time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidArgumentError("invalid job variables", err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"jobKey": job.Key, "error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute renders and delivers one event. A recipient that no longer exists completes as disabled.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	event := input.Event
	if event.RecipientID == "" {
		return nil, apperrors.NewInvalidArgumentError("event has no recipient", string(event.Type))
	}
	tmpl, ok := templates[event.Type]
	if !ok {
		return nil, apperrors.NewInvalidArgumentError("no template for event type", string(event.Type))
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	contact, err := h.contacts.Contact(ctx, event.RecipientID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			h.logger.Warn("recipient not found", map[string]interface{}{
				"recipientId": event.RecipientID,
				"eventType":   event.Type,
			})
			return output, nil
		}
		return nil, err
	}

	data := templateData(event, contact)
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	if h.config.EmailEnabled && h.email != nil && contact.Email != "" {
		id, err := h.email.Send(ctx, contact.Email, subject, body, "")
		if err != nil {
			return nil, apperrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		output.Deliveries = append(output.Deliveries, h.delivery(event, ChannelEmail, id))
	}

	if h.config.SMSEnabled && h.sms != nil && contact.Phone != "" && highPriority(event) {
		id, err := h.sms.Send(ctx, contact.Phone, fmt.Sprintf("%s: %s", subject, body))
		if err != nil {
			// an email that already went out is not worth repeating for a failed SMS
			if len(output.Deliveries) > 0 {
				h.logger.Error("sms send failed", map[string]interface{}{"recipientId": event.RecipientID, "error": err})
			} else {
				return nil, apperrors.NewNotificationSendFailedError(ChannelSMS, err)
			}
		} else {
			output.Deliveries = append(output.Deliveries, h.delivery(event, ChannelSMS, id))
		}
	}

	if len(output.Deliveries) > 0 {
		output.Status = StatusSent
	}
	h.logger.Info("notification processed", map[string]interface{}{
		"recipientId": event.RecipientID,
		"eventType":   event.Type,
		"status":      output.Status,
		"deliveries":  len(output.Deliveries),
	})
	return output, nil
}

func (h *Handler) delivery(event models.Event, channel, messageID string) models.Notification {
	return models.Notification{
		RecipientID: event.RecipientID,
		Type:        string(event.Type),
		Channel:     channel,
		Status:      StatusSent,
		MessageID:   messageID,
		SentAt:      h.now().UTC().Format(time.RFC3339),
	}
}
