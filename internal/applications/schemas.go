// internal/applications/schemas.go
package applications

import "gig-marketplace/internal/common/validation"

var submitSchema = validation.MustCompile("application submission", `{
	"type": "object",
	"required": ["coverLetter", "availability"],
	"properties": {
		"coverLetter": {"type": "string", "minLength": 1, "maxLength": 5000},
		"expectedRate": {"type": "number", "minimum": 0},
		"availability": {"type": "string", "enum": ["immediate", "within-week", "within-month", "flexible"]},
		"attachments": {
			"type": "array",
			"maxItems": 10,
			"items": {"type": "string", "format": "uri", "maxLength": 2048}
		}
	},
	"additionalProperties": false
}`)

var updateStatusSchema = validation.MustCompile("application status update", `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string", "enum": ["pending", "shortlisted", "accepted", "rejected"]},
		"notes": {"type": "string", "maxLength": 2000}
	},
	"additionalProperties": false
}`)
