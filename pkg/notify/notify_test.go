package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/briar/pkg/models"
)

func TestNewMatchEvent(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	m := models.Match{
		ID:                "match-1",
		TenantID:          "tenant-1",
		PropertyID:        "prop-1",
		PropertyRequestID: "req-1",
		Score:             0.85,
		CreatedAt:         createdAt,
	}
	request := models.PropertyRequest{
		ID:            "req-1",
		CustomerID:    "cust-1",
		CustomerEmail: "buyer@example.com",
	}

	event := NewMatchEvent(m, request)

	assert.Equal(t, EventTypeMatchCreated, event.EventType)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "match-1", event.MatchID)
	assert.Equal(t, "prop-1", event.PropertyID)
	assert.Equal(t, "req-1", event.PropertyRequestID)
	assert.Equal(t, "cust-1", event.CustomerID)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
	assert.Equal(t, 0.85, event.Score)
	assert.Equal(t, createdAt, event.Timestamp)
}

func TestMatchEvent_ToJSON(t *testing.T) {
	event := MatchEvent{
		EventType: EventTypeMatchCreated,
		TenantID:  "tenant-1",
		MatchID:   "match-1",
		Score:     0.9,
	}

	raw, err := event.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "match.created", decoded["event_type"])
	assert.Equal(t, "match-1", decoded["match_id"])
	assert.Equal(t, 0.9, decoded["score"])
}

func TestNopNotifier(t *testing.T) {
	var notifier Notifier = NopNotifier{}
	assert.NoError(t, notifier.NotifyMatch(context.Background(), MatchEvent{}))
	assert.NoError(t, notifier.Close())
}
