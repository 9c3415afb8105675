package models

import "time"

// Match links a property request to a property once the satisfaction score
// clears the acceptance threshold. Unique on (property_request_id,
// property_id); never updated or deleted by the matching engine.
type Match struct {
	ID                string    `json:"id" db:"id"`
	TenantID          string    `json:"tenant_id" db:"tenant_id"`
	PropertyRequestID string    `json:"property_request_id" db:"property_request_id"`
	PropertyID        string    `json:"property_id" db:"property_id"`
	Score             float64   `json:"score" db:"score"`
	IsRead            bool      `json:"is_read" db:"is_read"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// MatchResult reports one matching run over a property.
type MatchResult struct {
	PropertyID      string  `json:"property_id"`
	AlertsEvaluated int     `json:"alerts_evaluated"`
	NewMatches      []Match `json:"new_matches"`
	NotifiedCount   int     `json:"notified_count"`
	SkippedExisting int     `json:"skipped_existing"`
}
