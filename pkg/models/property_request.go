package models

import (
	"encoding/json"
	"time"
)

// PropertyRequest statuses. A request stays in the active set while the
// customer is being served; closing soft-deletes it out of matching.
const (
	PropertyRequestStatusNew        = "new"
	PropertyRequestStatusInProgress = "in_progress"
	PropertyRequestStatusContacted  = "contacted"
	PropertyRequestStatusClosed     = "closed"
)

// ActivePropertyRequestStatuses are the statuses evaluated by the matching
// engine.
var ActivePropertyRequestStatuses = []string{
	PropertyRequestStatusNew,
	PropertyRequestStatusInProgress,
	PropertyRequestStatusContacted,
}

// PropertyRequest is a standing buyer search alert: hard structured criteria
// (property type, city, price bounds) plus a raw JSON blob of additional
// dynamic criteria sharing the key space of property raw payloads.
type PropertyRequest struct {
	ID            string          `json:"id" db:"id"`
	TenantID      string          `json:"tenant_id" db:"tenant_id"`
	CustomerID    string          `json:"customer_id" db:"customer_id"`
	CustomerName  string          `json:"customer_name" db:"customer_name"`
	CustomerEmail string          `json:"customer_email" db:"customer_email"`
	PropertyType  string          `json:"property_type" db:"property_type"`
	City          *string         `json:"city,omitempty" db:"city"`
	MinPrice      *float64        `json:"min_price,omitempty" db:"min_price"`
	MaxPrice      *float64        `json:"max_price,omitempty" db:"max_price"`
	Criteria      json.RawMessage `json:"criteria,omitempty" db:"criteria"`
	Status        string          `json:"status" db:"status"`
	ArchivedAt    *time.Time      `json:"archived_at,omitempty" db:"archived_at"`
	ArchivedBy    *string         `json:"archived_by,omitempty" db:"archived_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the request participates in matching.
func (r *PropertyRequest) IsActive() bool {
	for _, s := range ActivePropertyRequestStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// CriteriaMap decodes the dynamic criteria blob. Malformed JSON decodes to
// an empty criteria set, not a failure.
func (r *PropertyRequest) CriteriaMap() map[string]any {
	out := map[string]any{}
	if len(r.Criteria) == 0 {
		return out
	}
	if err := json.Unmarshal(r.Criteria, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// CreatePropertyRequestRequest is the payload for creating a search alert.
type CreatePropertyRequestRequest struct {
	CustomerName  string         `json:"customer_name" validate:"required"`
	CustomerEmail string         `json:"customer_email" validate:"required,email"`
	PropertyType  string         `json:"property_type" validate:"required"`
	City          *string        `json:"city,omitempty"`
	MinPrice      *float64       `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice      *float64       `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	Criteria      map[string]any `json:"criteria,omitempty"`
}

// UpdatePropertyRequestRequest updates the hard criteria, criteria blob or
// workflow status of a search alert.
type UpdatePropertyRequestRequest struct {
	City     *string        `json:"city,omitempty"`
	MinPrice *float64       `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice *float64       `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	Criteria map[string]any `json:"criteria,omitempty"`
	Status   *string        `json:"status,omitempty" validate:"omitempty,oneof=new in_progress contacted"`
}
