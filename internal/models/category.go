// internal/models/category.go
package models

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Kind        string    `json:"kind"` // job | service | both
	CreatedAt   time.Time `json:"createdAt"`
}
