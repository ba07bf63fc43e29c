package services

import (
	"context"
	"errors"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/rs/zerolog/log"
)

// DeliveryWorker drains the delivery queue on a fixed interval. Each claimed
// delivery gets one dispatch attempt; failures are either rescheduled with
// exponential backoff or dead-lettered.
type DeliveryWorker struct {
	deliveries    *DeliveryService
	subscriptions *SubscriptionService
	dispatcher    *Dispatcher
	email         *EmailService
	analytics     *AnalyticsService

	interval   time.Duration
	batchSize  int
	alertEmail string
	done       chan bool
}

// NewDeliveryWorker creates a delivery worker. email and analytics may be nil.
func NewDeliveryWorker(deliveries *DeliveryService, subscriptions *SubscriptionService, dispatcher *Dispatcher,
	email *EmailService, analytics *AnalyticsService, interval time.Duration, batchSize int, alertEmail string) *DeliveryWorker {
	return &DeliveryWorker{
		deliveries:    deliveries,
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
		email:         email,
		analytics:     analytics,
		interval:      interval,
		batchSize:     batchSize,
		alertEmail:    alertEmail,
		done:          make(chan bool),
	}
}

// Start runs the worker loop in a goroutine until ctx is cancelled or Stop is called
func (w *DeliveryWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Delivery worker stopped")
				return
			case <-w.done:
				log.Info().Msg("Delivery worker stopped")
				return
			case <-ticker.C:
				w.ProcessBatch(ctx)
			}
		}
	}()

	log.Info().Dur("interval", w.interval).Int("batch_size", w.batchSize).Msg("Delivery worker started")
}

// Stop stops the worker loop
func (w *DeliveryWorker) Stop() {
	w.done <- true
}

// ProcessBatch claims due deliveries and attempts each once. Returns the
// number of deliveries processed.
func (w *DeliveryWorker) ProcessBatch(ctx context.Context) int {
	claimed, err := w.deliveries.ClaimPending(ctx, w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to claim pending deliveries")
		return 0
	}

	for _, d := range claimed {
		w.process(ctx, d)
	}
	return len(claimed)
}

func (w *DeliveryWorker) process(ctx context.Context, d *models.Delivery) {
	sub, err := w.subscriptions.GetSubscription(ctx, d.SubscriptionID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			w.deadLetter(ctx, d, nil, "subscription no longer exists")
			return
		}
		log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("Failed to load subscription for delivery")
		return
	}
	if !sub.Active {
		w.deadLetter(ctx, d, sub, "subscription is inactive")
		return
	}

	err = w.dispatcher.Dispatch(ctx, sub, d)
	if err == nil {
		if markErr := w.deliveries.MarkDelivered(ctx, d.ID); markErr != nil {
			log.Error().Err(markErr).Str("delivery_id", d.ID.String()).Msg("Failed to mark delivery delivered")
			return
		}
		if w.analytics != nil {
			w.analytics.TrackDeliverySucceeded(ctx, sub.OwnerID, d.EventType, d.Attempts+1)
		}
		log.Info().
			Str("delivery_id", d.ID.String()).
			Str("event_type", d.EventType).
			Int("attempt", d.Attempts+1).
			Msg("Delivery succeeded")
		return
	}

	var de *DeliveryError
	if errors.As(err, &de) && !de.Retriable() {
		w.deadLetter(ctx, d, sub, de.Error())
		return
	}

	// Retriable: receiver 5xx/429, transport failure, or a transient vault miss
	if d.Attempts+1 >= d.MaxAttempts {
		w.deadLetter(ctx, d, sub, err.Error())
		return
	}

	// 1s, 2s, 4s, ... doubling per attempt already made
	backoff := time.Duration(1<<d.Attempts) * time.Second
	nextRetry := time.Now().Add(backoff)
	if schedErr := w.deliveries.ScheduleRetry(ctx, d.ID, nextRetry, err.Error()); schedErr != nil {
		log.Error().Err(schedErr).Str("delivery_id", d.ID.String()).Msg("Failed to schedule retry")
		return
	}

	log.Warn().
		Str("delivery_id", d.ID.String()).
		Int("attempt", d.Attempts+1).
		Dur("backoff", backoff).
		Str("error", err.Error()).
		Msg("Delivery attempt failed, retry scheduled")
}

func (w *DeliveryWorker) deadLetter(ctx context.Context, d *models.Delivery, sub *models.WebhookSubscription, reason string) {
	if err := w.deliveries.MarkDead(ctx, d.ID, reason); err != nil {
		log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("Failed to dead-letter delivery")
		return
	}

	log.Error().
		Str("delivery_id", d.ID.String()).
		Str("event_type", d.EventType).
		Str("reason", reason).
		Msg("Delivery dead-lettered")

	if sub == nil {
		return
	}
	if w.analytics != nil {
		w.analytics.TrackDeliveryDeadLettered(ctx, sub.OwnerID, d.EventType, reason)
	}
	if w.email != nil && w.alertEmail != "" {
		alerted := *d
		alerted.Attempts = d.Attempts + 1
		alerted.LastError = &reason
		if err := w.email.SendDeadLetterAlert(ctx, w.alertEmail, &alerted, sub); err != nil {
			log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("Failed to send dead letter alert")
		}
	}
}
