package models

import (
	"encoding/json"
	"time"
)

// Property statuses
const (
	PropertyStatusDraft     = "draft"
	PropertyStatusPublished = "published"
	PropertyStatusSold      = "sold"
	PropertyStatusArchived  = "archived"
)

// Property is a listing. Structured system fields (price, city, coordinates,
// status) live in dedicated columns and are excluded from EAV processing.
// RawAttributes is the free-form payload submitted by the creator, retained
// verbatim as the source of truth for fact re-derivation.
type Property struct {
	ID            string          `json:"id" db:"id"`
	TenantID      string          `json:"tenant_id" db:"tenant_id"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	PropertyType  string          `json:"property_type" db:"property_type"`
	Title         string          `json:"title" db:"title"`
	Description   *string         `json:"description,omitempty" db:"description"`
	Status        string          `json:"status" db:"status"`
	City          *string         `json:"city,omitempty" db:"city"`
	Price         *float64        `json:"price,omitempty" db:"price"`
	Latitude      *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64        `json:"longitude,omitempty" db:"longitude"`
	RawAttributes json.RawMessage `json:"raw_attributes,omitempty" db:"raw_attributes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// RawAttributeMap decodes the raw payload. A missing or malformed payload
// decodes to an empty map, never an error, matching the noise tolerance of
// the fact derivation pipeline.
func (p *Property) RawAttributeMap() map[string]any {
	out := map[string]any{}
	if len(p.RawAttributes) == 0 {
		return out
	}
	if err := json.Unmarshal(p.RawAttributes, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// CreatePropertyRequest is the payload for creating a property.
type CreatePropertyRequest struct {
	PropertyType string         `json:"property_type" validate:"required"`
	Title        string         `json:"title" validate:"required"`
	Description  *string        `json:"description,omitempty"`
	City         *string        `json:"city,omitempty"`
	Price        *float64       `json:"price,omitempty" validate:"omitempty,gte=0"`
	Latitude     *float64       `json:"latitude,omitempty"`
	Longitude    *float64       `json:"longitude,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// UpdatePropertyRequest is the payload for editing a property. A non-nil
// Attributes map replaces the raw payload wholesale and re-derives facts.
type UpdatePropertyRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *string        `json:"status,omitempty" validate:"omitempty,oneof=draft published sold archived"`
	City        *string        `json:"city,omitempty"`
	Price       *float64       `json:"price,omitempty" validate:"omitempty,gte=0"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// PropertySearchQuery is the parsed search input for listing properties.
// Filters is the raw dynamic-filter JSON; malformed JSON skips that stage.
type PropertySearchQuery struct {
	PropertyType string
	Status       string
	City         string
	MinPrice     *float64
	MaxPrice     *float64
	Text         string
	Filters      string
	Page         int
	PageSize     int
}

// PropertyListResponse is the paged search result.
type PropertyListResponse struct {
	Items      []Property `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
