package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/rs/zerolog/log"
)

// AnalyticsService handles product analytics tracking
type AnalyticsService struct {
	client  posthog.Client
	enabled bool
}

type posthogLogger struct{}

func (l posthogLogger) Success(m posthog.APIMessage) {
	log.Debug().Str("type", fmt.Sprintf("%T", m)).Msg("PostHog event delivered")
}

func (l posthogLogger) Failure(m posthog.APIMessage, err error) {
	log.Error().Err(err).Str("type", fmt.Sprintf("%T", m)).Msg("PostHog delivery failed")
}

// AnalyticsConfig holds analytics configuration
type AnalyticsConfig struct {
	PostHogAPIKey string
	PostHogHost   string
	Enabled       bool
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(cfg AnalyticsConfig) (*AnalyticsService, error) {
	if !cfg.Enabled || cfg.PostHogAPIKey == "" {
		return &AnalyticsService{enabled: false}, nil
	}

	client, err := posthog.NewWithConfig(
		cfg.PostHogAPIKey,
		posthog.Config{
			Endpoint:  cfg.PostHogHost,
			Interval:  30 * time.Second,
			BatchSize: 100,
			Callback:  posthogLogger{},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &AnalyticsService{
		client:  client,
		enabled: true,
	}, nil
}

// Close flushes pending events and closes the client
func (s *AnalyticsService) Close() error {
	if !s.enabled {
		return nil
	}
	return s.client.Close()
}

// getEnvironment returns current environment (production, staging, development)
func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "production"
	}
	return env
}

// track captures an event keyed by the tenant that owns the subscription
func (s *AnalyticsService) track(distinctID, event string, properties map[string]interface{}) {
	if !s.enabled {
		return
	}

	if properties == nil {
		properties = make(map[string]interface{})
	}
	properties["timestamp"] = time.Now().Unix()
	properties["environment"] = getEnvironment()

	if err := s.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: properties,
	}); err != nil {
		log.Error().Err(err).Str("event", event).Msg("PostHog enqueue failed")
	}
}

// TrackSubscriptionCreated records a new webhook registration
func (s *AnalyticsService) TrackSubscriptionCreated(ctx context.Context, ownerID, eventTypes string) {
	s.track(ownerID, "webhook_subscription_created", map[string]interface{}{
		"event_types": eventTypes,
	})
}

// TrackSubscriptionDeleted records a webhook removal
func (s *AnalyticsService) TrackSubscriptionDeleted(ctx context.Context, ownerID string) {
	s.track(ownerID, "webhook_subscription_deleted", nil)
}

// TrackDeliverySucceeded records a successful outbound delivery
func (s *AnalyticsService) TrackDeliverySucceeded(ctx context.Context, ownerID, eventType string, attempts int) {
	s.track(ownerID, "webhook_delivery_succeeded", map[string]interface{}{
		"event_type": eventType,
		"attempts":   attempts,
	})
}

// TrackDeliveryDeadLettered records an exhausted or permanently failed delivery
func (s *AnalyticsService) TrackDeliveryDeadLettered(ctx context.Context, ownerID, eventType, lastError string) {
	s.track(ownerID, "webhook_delivery_dead_lettered", map[string]interface{}{
		"event_type": eventType,
		"last_error": lastError,
	})
}

// TrackVendorEventProcessed records a verified inbound vendor event
func (s *AnalyticsService) TrackVendorEventProcessed(ctx context.Context, eventType string, duplicate bool) {
	s.track("identity-vendor", "vendor_event_processed", map[string]interface{}{
		"event_type": eventType,
		"duplicate":  duplicate,
	})
}
