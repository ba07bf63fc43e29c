package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookSubscription represents a tenant-registered outbound webhook endpoint.
// The signing secret itself never lives on this struct — only the opaque vault
// reference. The plaintext secret is returned exactly once at creation time.
type WebhookSubscription struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"owner_id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"event_types"`
	SecretRef  string    `json:"secret_ref"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WantsEvent reports whether the subscription is listening for the given event type.
func (s *WebhookSubscription) WantsEvent(eventType string) bool {
	for _, et := range s.EventTypes {
		if et == eventType {
			return true
		}
	}
	return false
}

// OutboundEvent is an ephemeral event handed to the publisher. The payload is
// serialized once and the same bytes are signed and transmitted.
type OutboundEvent struct {
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
}
