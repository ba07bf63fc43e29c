package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupService purges finished deliveries and old vendor-event ledger rows
// past their retention window.
type CleanupService struct {
	deliveries *DeliveryService
	ledger     ledgerPurger
	enabled    bool
	ttl        time.Duration
	interval   time.Duration
	done       chan bool
}

// ledgerPurger deletes processed-event ledger rows older than cutoff
type ledgerPurger interface {
	DeleteVendorEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewCleanupService creates a new cleanup service. ledger may be nil when the
// ledger lives outside this process.
func NewCleanupService(deliveries *DeliveryService, ledger ledgerPurger, enabled bool, ttl time.Duration) *CleanupService {
	return &CleanupService{
		deliveries: deliveries,
		ledger:     ledger,
		enabled:    enabled,
		ttl:        ttl,
		interval:   24 * time.Hour, // Run daily
		done:       make(chan bool),
	}
}

// Start starts the cleanup loop
func (cs *CleanupService) Start(ctx context.Context) {
	if !cs.enabled {
		log.Info().Msg("Cleanup service is disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Cleanup service stopped")
				return
			case <-cs.done:
				log.Info().Msg("Cleanup service stopped")
				return
			case <-ticker.C:
				cs.RunOnce(ctx)
			}
		}
	}()

	log.Info().Dur("ttl", cs.ttl).Msg("Cleanup service started")
}

// Stop stops the cleanup loop. When the service is disabled Start never
// spawned the loop, so there is no receiver and Stop must not block.
func (cs *CleanupService) Stop() {
	if !cs.enabled {
		return
	}
	cs.done <- true
}

// RunOnce performs a single cleanup pass
func (cs *CleanupService) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-cs.ttl)

	deleted, err := cs.deliveries.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Delivery cleanup failed")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Purged finished deliveries")
	}

	if cs.ledger == nil {
		return
	}
	purged, err := cs.ledger.DeleteVendorEventsBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Vendor event ledger cleanup failed")
	} else if purged > 0 {
		log.Info().Int64("deleted", purged).Msg("Purged vendor event ledger rows")
	}
}
