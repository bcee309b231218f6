// internal/jobs/schemas.go
package jobs

import "gig-marketplace/internal/common/validation"

const budgetSchema = `{
	"type": "object",
	"required": ["min", "max"],
	"properties": {
		"min": {"type": "number", "minimum": 0},
		"max": {"type": "number", "minimum": 0}
	},
	"additionalProperties": false
}`

const locationSchema = `{
	"type": "object",
	"properties": {
		"city": {"type": "string", "maxLength": 100},
		"state": {"type": "string", "maxLength": 100},
		"address": {"type": "string", "maxLength": 300}
	},
	"additionalProperties": false
}`

const skillsSchema = `{
	"type": "array",
	"maxItems": 30,
	"items": {"type": "string", "minLength": 1, "maxLength": 50}
}`

var createSchema = validation.MustCompile("job", `{
	"type": "object",
	"required": ["title", "description", "category", "budget"],
	"properties": {
		"title": {"type": "string", "minLength": 1, "maxLength": 200},
		"description": {"type": "string", "minLength": 1, "maxLength": 10000},
		"category": {"type": "string", "minLength": 1, "maxLength": 100},
		"budget": `+budgetSchema+`,
		"location": `+locationSchema+`,
		"skills": `+skillsSchema+`
	},
	"additionalProperties": false
}`)

var updateSchema = validation.MustCompile("job update", `{
	"type": "object",
	"minProperties": 1,
	"properties": {
		"title": {"type": "string", "minLength": 1, "maxLength": 200},
		"description": {"type": "string", "minLength": 1, "maxLength": 10000},
		"category": {"type": "string", "minLength": 1, "maxLength": 100},
		"budget": `+budgetSchema+`,
		"location": `+locationSchema+`,
		"skills": `+skillsSchema+`
	},
	"additionalProperties": false
}`)
