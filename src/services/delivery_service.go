package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryService manages the outbound delivery queue. Rows move
// pending -> delivered or pending -> dead; dead rows stay inspectable and can
// be requeued by an operator.
type DeliveryService struct {
	pool *pgxpool.Pool
	repo repositories.DeliveryRepository
}

// NewDeliveryService creates a new delivery queue service
func NewDeliveryService(pool *pgxpool.Pool) *DeliveryService {
	return &DeliveryService{pool: pool}
}

// NewDeliveryServiceWithRepo creates a delivery service backed by a repository (for testing)
func NewDeliveryServiceWithRepo(repo repositories.DeliveryRepository) *DeliveryService {
	return &DeliveryService{repo: repo}
}

// Enqueue adds a pending delivery to the queue
func (ds *DeliveryService) Enqueue(ctx context.Context, d *models.Delivery) error {
	if ds.repo != nil {
		return ds.repo.Enqueue(ctx, d)
	}

	_, err := ds.pool.Exec(ctx, `
		INSERT INTO deliveries (id, subscription_id, event_type, payload, status, attempts, max_attempts, next_retry_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.SubscriptionID, d.EventType, d.Payload, d.Status, d.Attempts, d.MaxAttempts, d.NextRetryAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue delivery: %w", err)
	}
	return nil
}

// ClaimPending returns up to limit pending deliveries that are due. Selection
// and lease run in one statement: SKIP LOCKED keeps concurrent claimers off
// the same rows while the update pushes next_retry_at forward, so a claim
// outlives the statement. A worker that crashes mid-batch loses its claims
// once the lease lapses and the rows become due again.
func (ds *DeliveryService) ClaimPending(ctx context.Context, limit int) ([]*models.Delivery, error) {
	if ds.repo != nil {
		return ds.repo.ClaimPending(ctx, limit)
	}

	rows, err := ds.pool.Query(ctx, `
		UPDATE deliveries
		SET next_retry_at = NOW() + INTERVAL '1 minute', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM deliveries
			WHERE status = 'pending' AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, subscription_id, event_type, payload, status, attempts, max_attempts, next_retry_at, last_error, delivered_at, created_at, updated_at
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending deliveries: %w", err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

// MarkDelivered records a successful attempt
func (ds *DeliveryService) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	if ds.repo != nil {
		return ds.repo.MarkDelivered(ctx, id)
	}

	_, err := ds.pool.Exec(ctx, `
		UPDATE deliveries
		SET status = 'delivered', attempts = attempts + 1, delivered_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark delivery delivered: %w", err)
	}
	return nil
}

// ScheduleRetry increments the attempt counter and parks the delivery until nextRetryAt
func (ds *DeliveryService) ScheduleRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error {
	if ds.repo != nil {
		return ds.repo.ScheduleRetry(ctx, id, nextRetryAt, lastError)
	}

	_, err := ds.pool.Exec(ctx, `
		UPDATE deliveries
		SET attempts = attempts + 1, next_retry_at = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1
	`, id, nextRetryAt, lastError)
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	return nil
}

// MarkDead dead-letters the delivery after exhausted or non-retriable failure
func (ds *DeliveryService) MarkDead(ctx context.Context, id uuid.UUID, lastError string) error {
	if ds.repo != nil {
		return ds.repo.MarkDead(ctx, id, lastError)
	}

	_, err := ds.pool.Exec(ctx, `
		UPDATE deliveries
		SET status = 'dead', attempts = attempts + 1, last_error = $2, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark delivery dead: %w", err)
	}
	return nil
}

// Requeue resets a dead delivery to pending with a fresh attempt budget
func (ds *DeliveryService) Requeue(ctx context.Context, id uuid.UUID) error {
	if ds.repo != nil {
		return ds.repo.Requeue(ctx, id)
	}

	result, err := ds.pool.Exec(ctx, `
		UPDATE deliveries
		SET status = 'pending', attempts = 0, next_retry_at = NULL, last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'dead'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to requeue delivery: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delivery %s is not dead-lettered", id)
	}
	return nil
}

// ListDead returns dead-lettered deliveries for the operator surface, newest first
func (ds *DeliveryService) ListDead(ctx context.Context, limit, offset int) ([]*models.Delivery, int, error) {
	if ds.repo != nil {
		return ds.repo.ListDead(ctx, limit, offset)
	}

	var total int
	if err := ds.pool.QueryRow(ctx, "SELECT COUNT(*) FROM deliveries WHERE status = 'dead'").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dead deliveries: %w", err)
	}

	rows, err := ds.pool.Query(ctx, `
		SELECT id, subscription_id, event_type, payload, status, attempts, max_attempts, next_retry_at, last_error, delivered_at, created_at, updated_at
		FROM deliveries
		WHERE status = 'dead'
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dead deliveries: %w", err)
	}
	defer rows.Close()

	deliveries, err := collectDeliveries(rows)
	if err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

// DeleteFinishedBefore removes delivered and dead rows older than cutoff
func (ds *DeliveryService) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if ds.repo != nil {
		return ds.repo.DeleteFinishedBefore(ctx, cutoff)
	}

	result, err := ds.pool.Exec(ctx, `
		DELETE FROM deliveries
		WHERE status IN ('delivered', 'dead') AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished deliveries: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(
		&d.ID, &d.SubscriptionID, &d.EventType, &d.Payload, &d.Status,
		&d.Attempts, &d.MaxAttempts, &d.NextRetryAt, &d.LastError,
		&d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDeliveries(rows pgx.Rows) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
