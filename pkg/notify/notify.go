// Package notify dispatches match notifications. Delivery is best effort:
// the matching engine fires notifications after its transaction commits and
// a failed send never unwinds a stored match.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ramsey-B/briar/pkg/models"
)

// MatchEvent is the payload published for each new match.
type MatchEvent struct {
	EventType         string    `json:"event_type"`
	TenantID          string    `json:"tenant_id"`
	MatchID           string    `json:"match_id"`
	PropertyID        string    `json:"property_id"`
	PropertyRequestID string    `json:"property_request_id"`
	CustomerID        string    `json:"customer_id"`
	CustomerEmail     string    `json:"customer_email"`
	Score             float64   `json:"score"`
	Timestamp         time.Time `json:"timestamp"`
}

// EventTypeMatchCreated is the event type carried by every MatchEvent.
const EventTypeMatchCreated = "match.created"

// NewMatchEvent builds the event for a stored match and its alert.
func NewMatchEvent(m models.Match, request models.PropertyRequest) MatchEvent {
	return MatchEvent{
		EventType:         EventTypeMatchCreated,
		TenantID:          m.TenantID,
		MatchID:           m.ID,
		PropertyID:        m.PropertyID,
		PropertyRequestID: m.PropertyRequestID,
		CustomerID:        request.CustomerID,
		CustomerEmail:     request.CustomerEmail,
		Score:             m.Score,
		Timestamp:         m.CreatedAt,
	}
}

// ToJSON serializes the event.
func (e MatchEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier publishes match events.
type Notifier interface {
	NotifyMatch(ctx context.Context, event MatchEvent) error
	Close() error
}

// NopNotifier discards events. Used when the Kafka transport is disabled.
type NopNotifier struct{}

func (NopNotifier) NotifyMatch(ctx context.Context, event MatchEvent) error { return nil }
func (NopNotifier) Close() error                                            { return nil }
