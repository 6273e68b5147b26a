package sambatan

import (
	"encoding/json"
	"time"
)

const (
	EventNewParticipant = "new_participant"
	EventQuotaReached   = "quota_reached"
	EventCompleted      = "sambatan_completed"
	EventExpired        = "expired"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "sambatan-api"
	CorrelationID string          `json:"correlation_id"` // pool_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type NewParticipantPayload struct {
	PoolID          string `json:"pool_id"`
	UserID          string `json:"user_id"`
	Qty             int    `json:"qty"`
	CurrentQuantity int    `json:"current_quantity"`
	TargetQuantity  int    `json:"target_quantity"`
}

type QuotaReachedPayload struct {
	PoolID         string `json:"pool_id"`
	TargetQuantity int    `json:"target_quantity"`
}

type CompletedPayload struct {
	PoolID        string `json:"pool_id"`
	VerifiedCount int    `json:"verified_count"`
}

type ExpiredPayload struct {
	PoolID    string    `json:"pool_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

