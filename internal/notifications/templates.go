// internal/notifications/templates.go
package notifications

import (
	"fmt"
	"strings"

	"gig-marketplace/internal/models"
)

type template struct {
	Subject string
	Body    string
}

var templates = map[models.EventType]template{
	models.EventApplicationSubmitted: {
		Subject: "New application for {{jobTitle}}",
		Body:    "Hello {{name}}, someone applied to your job \"{{jobTitle}}\". Review the application {{entityId}} in your dashboard.",
	},
	models.EventApplicationStatusChanged: {
		Subject: "Your application for {{jobTitle}} was {{status}}",
		Body:    "Hello {{name}}, your application for \"{{jobTitle}}\" is now {{status}}.",
	},
	models.EventApplicationRejected: {
		Subject: "Update on {{jobTitle}}",
		Body:    "Hello {{name}}, your application for \"{{jobTitle}}\" was not selected. {{notes}}",
	},
	models.EventBookingCreated: {
		Subject: "New booking for {{serviceTitle}}",
		Body:    "Hello {{name}}, {{serviceTitle}} was booked for {{date}} at {{time}}. Confirm booking {{entityId}} to lock it in.",
	},
	models.EventBookingStatusChanged: {
		Subject: "Booking {{status}}",
		Body:    "Hello {{name}}, your booking for {{date}} is now {{status}}.",
	},
}

// highPriority reports whether an event is worth an SMS as well as an email.
func highPriority(event models.Event) bool {
	switch event.Type {
	case models.EventApplicationRejected:
		return true
	case models.EventApplicationStatusChanged:
		status := models.ApplicationStatus(event.Data["status"])
		return status == models.ApplicationAccepted || status == models.ApplicationRejected
	}
	return false
}

func templateData(event models.Event, contact *models.Contact) map[string]interface{} {
	data := map[string]interface{}{
		"entityId":    event.EntityID,
		"recipientId": event.RecipientID,
		"eventType":   string(event.Type),
		"name":        contact.Name,
	}
	for k, v := range event.Data {
		data[k] = v
	}
	return data
}

// renderTemplate substitutes {{key}} placeholders; unknown placeholders render empty.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		switch val := v.(type) {
		case string:
			value = val
		case nil:
		default:
			value = fmt.Sprintf("%v", val)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return strings.TrimSpace(result)
}
