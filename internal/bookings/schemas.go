// internal/bookings/schemas.go
package bookings

import "gig-marketplace/internal/common/validation"

var createSchema = validation.MustCompile("booking", `{
	"type": "object",
	"required": ["serviceId", "date", "time", "address"],
	"properties": {
		"serviceId": {"type": "string", "minLength": 1},
		"date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"time": {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
		"address": {
			"type": "object",
			"required": ["street", "city"],
			"properties": {
				"street": {"type": "string", "minLength": 1, "maxLength": 300},
				"city": {"type": "string", "minLength": 1, "maxLength": 100},
				"state": {"type": "string", "maxLength": 100},
				"zip": {"type": "string", "maxLength": 20}
			},
			"additionalProperties": false
		},
		"notes": {"type": "string", "maxLength": 2000}
	},
	"additionalProperties": false
}`)
