package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/repositories/mock"
	"github.com/adaptivestartup/webhooks-platform/src/vault"
	"github.com/google/uuid"
)

func newPublisherFixture(subs []*models.WebhookSubscription) (*Publisher, *mock.DeliveryRepository) {
	subRepo := mock.NewSubscriptionRepository()
	subRepo.ListActiveForEventFunc = func(ctx context.Context, ownerID, eventType string) ([]*models.WebhookSubscription, error) {
		return subs, nil
	}
	delivRepo := mock.NewDeliveryRepository()
	p := NewPublisher(
		NewSubscriptionServiceWithRepo(subRepo, vault.NewMemoryVault()),
		NewDeliveryServiceWithRepo(delivRepo),
		3,
	)
	return p, delivRepo
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	subs := []*models.WebhookSubscription{
		{ID: uuid.New(), OwnerID: "org_1", URL: "https://a.example.com", Active: true},
		{ID: uuid.New(), OwnerID: "org_1", URL: "https://b.example.com", Active: true},
	}
	p, delivRepo := newPublisherFixture(subs)

	queued, err := p.Publish(context.Background(), "org_1", models.OutboundEvent{
		EventType: models.EventModelCanvasVersionCreated,
		Payload:   map[string]interface{}{"canvas_id": "cv_42", "version": 7},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if queued != 2 {
		t.Fatalf("Expected 2 queued deliveries, got %d", queued)
	}

	enqueued := delivRepo.Calls["Enqueue"]
	if len(enqueued) != 2 {
		t.Fatalf("Expected 2 Enqueue calls, got %d", len(enqueued))
	}

	first := enqueued[0].(*models.Delivery)
	second := enqueued[1].(*models.Delivery)

	// Serialize-once: both deliveries carry byte-identical payloads
	if !bytes.Equal(first.Payload, second.Payload) {
		t.Error("All fan-out deliveries must share the same payload bytes")
	}
	if first.SubscriptionID == second.SubscriptionID {
		t.Error("Deliveries should target distinct subscriptions")
	}
	if first.Status != models.DeliveryStatusPending {
		t.Errorf("Expected pending status, got %s", first.Status)
	}
	if first.MaxAttempts != 3 {
		t.Errorf("Expected attempt budget 3, got %d", first.MaxAttempts)
	}

	var env struct {
		ID        string          `json:"id"`
		EventType string          `json:"event_type"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(first.Payload, &env); err != nil {
		t.Fatalf("Payload is not valid JSON: %v", err)
	}
	if env.EventType != models.EventModelCanvasVersionCreated {
		t.Errorf("Envelope event type = %q", env.EventType)
	}
	if env.ID == "" {
		t.Error("Envelope should carry an event id")
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	p, delivRepo := newPublisherFixture(nil)

	queued, err := p.Publish(context.Background(), "org_1", models.OutboundEvent{
		EventType: models.EventModelCanvasVersionCreated,
		Payload:   map[string]string{"canvas_id": "cv_1"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if queued != 0 {
		t.Errorf("Expected 0 queued, got %d", queued)
	}
	if len(delivRepo.Calls["Enqueue"]) != 0 {
		t.Error("Nothing should be enqueued without subscribers")
	}
}

func TestPublish_RejectsUnknownEventType(t *testing.T) {
	p, _ := newPublisherFixture(nil)

	_, err := p.Publish(context.Background(), "org_1", models.OutboundEvent{
		EventType: "made.up",
		Payload:   nil,
	})
	if err == nil {
		t.Error("Expected error for unknown event type")
	}
}
