// internal/catalog/schemas.go
package catalog

import "gig-marketplace/internal/common/validation"

const serviceProperties = `{
	"title": {"type": "string", "minLength": 1, "maxLength": 200},
	"description": {"type": "string", "minLength": 1, "maxLength": 10000},
	"category": {"type": "string", "minLength": 1, "maxLength": 100},
	"price": {"type": "number", "minimum": 0},
	"location": {
		"type": "object",
		"properties": {
			"city": {"type": "string", "maxLength": 100},
			"state": {"type": "string", "maxLength": 100},
			"address": {"type": "string", "maxLength": 300}
		},
		"additionalProperties": false
	},
	"images": {
		"type": "array",
		"maxItems": 20,
		"items": {"type": "string", "format": "uri", "maxLength": 2048}
	},
	"availability": {
		"type": "object",
		"required": ["days", "startHour", "endHour"],
		"properties": {
			"days": {
				"type": "array",
				"uniqueItems": true,
				"items": {"type": "string", "enum": ["monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"]}
			},
			"startHour": {"type": "integer", "minimum": 0, "maximum": 23},
			"endHour": {"type": "integer", "minimum": 1, "maximum": 24}
		},
		"additionalProperties": false
	}
}`

var createSchema = validation.MustCompile("service", `{
	"type": "object",
	"required": ["title", "description", "category", "price"],
	"properties": `+serviceProperties+`,
	"additionalProperties": false
}`)

var updateSchema = validation.MustCompile("service update", `{
	"type": "object",
	"minProperties": 1,
	"properties": `+serviceProperties+`,
	"additionalProperties": false
}`)

var reviewSchema = validation.MustCompile("review", `{
	"type": "object",
	"required": ["rating"],
	"properties": {
		"rating": {"type": "integer", "minimum": 1, "maximum": 5},
		"comment": {"type": "string", "maxLength": 2000}
	},
	"additionalProperties": false
}`)
