package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an entry in the per-order audit log.
type EventType string

const (
	EventStatusChanged      EventType = "status_changed"
	EventCodeGenerated      EventType = "code_generated"
	EventCodeAttempt        EventType = "code_attempt"
	EventCodeVerified       EventType = "code_verified"
	EventClaimCodeGenerated EventType = "claim_code_generated"
	EventClaimCodeUsed      EventType = "claim_code_used"
	EventSMSSent            EventType = "sms_sent"
	EventExpired            EventType = "expired"
	EventCancelled          EventType = "cancelled"
)

// OrderEvent is an append-only audit record. Events are never updated or
// deleted.
type OrderEvent struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	OrderID   uuid.UUID      `json:"orderId" db:"order_id"`
	Type      EventType      `json:"type" db:"type"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}
