package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Publisher fans an application event out to every matching subscription.
// The payload is serialized exactly once; every queued delivery carries the
// same bytes, so signature and transmission always agree.
type Publisher struct {
	subscriptions *SubscriptionService
	deliveries    *DeliveryService
	maxAttempts   int
}

// NewPublisher creates a new event publisher
func NewPublisher(subs *SubscriptionService, deliveries *DeliveryService, maxAttempts int) *Publisher {
	return &Publisher{subscriptions: subs, deliveries: deliveries, maxAttempts: maxAttempts}
}

// envelope is the wire shape delivered to receivers
type envelope struct {
	ID        string      `json:"id"`
	EventType string      `json:"event_type"`
	CreatedAt time.Time   `json:"created_at"`
	Data      interface{} `json:"data"`
}

// Publish enqueues one delivery per active subscription of ownerID that
// listens for event.EventType. Returns the number of deliveries queued.
func (p *Publisher) Publish(ctx context.Context, ownerID string, event models.OutboundEvent) (int, error) {
	if !models.IsKnownEventType(event.EventType) {
		return 0, fmt.Errorf("unknown event type: %s", event.EventType)
	}

	subs, err := p.subscriptions.ListActiveForEvent(ctx, ownerID, event.EventType)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	now := time.Now()
	payload, err := json.Marshal(envelope{
		ID:        uuid.New().String(),
		EventType: event.EventType,
		CreatedAt: now.UTC(),
		Data:      event.Payload,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to serialize event payload: %w", err)
	}

	queued := 0
	for _, sub := range subs {
		d := &models.Delivery{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			EventType:      event.EventType,
			Payload:        payload,
			Status:         models.DeliveryStatusPending,
			MaxAttempts:    p.maxAttempts,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := p.deliveries.Enqueue(ctx, d); err != nil {
			// Partial fan-out is acceptable; each subscription is independent
			log.Error().Err(err).
				Str("subscription_id", sub.ID.String()).
				Str("event_type", event.EventType).
				Msg("Failed to enqueue delivery")
			continue
		}
		queued++
	}

	log.Info().
		Str("owner_id", ownerID).
		Str("event_type", event.EventType).
		Int("queued", queued).
		Msg("Event published")

	return queued, nil
}
