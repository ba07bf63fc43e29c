package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the lifecycle state of a queued delivery
type DeliveryStatus string

const (
	// DeliveryStatusPending indicates the delivery is waiting for an attempt
	DeliveryStatusPending DeliveryStatus = "pending"
	// DeliveryStatusDelivered indicates the receiver returned 2xx
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	// DeliveryStatusDead indicates attempts were exhausted or the failure was
	// non-retriable; kept for operator inspection and manual requeue
	DeliveryStatusDead DeliveryStatus = "dead"
)

// Delivery is one queued attempt-set of an event against one subscription.
// Payload holds the exact JSON bytes that will be signed and transmitted.
type Delivery struct {
	ID             uuid.UUID      `json:"id"`
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	EventType      string         `json:"event_type"`
	Payload        []byte         `json:"payload"`
	Status         DeliveryStatus `json:"status"`
	Attempts       int            `json:"attempts"`
	MaxAttempts    int            `json:"max_attempts"`
	NextRetryAt    *time.Time     `json:"next_retry_at,omitempty"`
	LastError      *string        `json:"last_error,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Exhausted reports whether the delivery has used up its attempt budget.
func (d *Delivery) Exhausted() bool {
	return d.Attempts >= d.MaxAttempts
}
