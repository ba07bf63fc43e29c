package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/repositories"
	"github.com/adaptivestartup/webhooks-platform/src/vault"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// SecretPrefix marks plaintext webhook signing secrets
const SecretPrefix = "whsec_"

// SubscriptionService handles webhook subscription registration.
// Signing secrets live in the vault; this service only ever holds the
// plaintext long enough to hand it to the caller once at creation time.
type SubscriptionService struct {
	pool  *pgxpool.Pool
	repo  repositories.SubscriptionRepository
	vault vault.Vault
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(pool *pgxpool.Pool, v vault.Vault) *SubscriptionService {
	return &SubscriptionService{pool: pool, vault: v}
}

// NewSubscriptionServiceWithRepo creates a subscription service backed by a repository (for testing)
func NewSubscriptionServiceWithRepo(repo repositories.SubscriptionRepository, v vault.Vault) *SubscriptionService {
	return &SubscriptionService{repo: repo, vault: v}
}

// generateSecret returns a fresh signing secret: whsec_ + 64 lowercase hex chars (256 bits)
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return SecretPrefix + hex.EncodeToString(raw), nil
}

// validateRegistration checks the caller-supplied url and event types
func validateRegistration(url string, eventTypes []string) error {
	if !strings.HasPrefix(url, "https://") {
		return errors.New("url must be an https endpoint")
	}
	if len(eventTypes) == 0 {
		return errors.New("at least one event type is required")
	}
	for _, et := range eventTypes {
		if !models.IsKnownEventType(et) {
			return fmt.Errorf("unknown event type: %s", et)
		}
	}
	return nil
}

// CreateSubscription registers a webhook endpoint and returns the subscription
// together with the plaintext signing secret. The secret is stored in the
// vault before the subscription row exists (an orphaned secret is safer than a
// subscription referencing a missing one) and is never retrievable again.
func (ss *SubscriptionService) CreateSubscription(ctx context.Context, ownerID, url string, eventTypes []string) (*models.WebhookSubscription, string, error) {
	if err := validateRegistration(url, eventTypes); err != nil {
		return nil, "", err
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, "", err
	}

	ref, err := ss.vault.Store(ctx, vault.EntryName(ownerID), secret, ownerID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store signing secret: %w", err)
	}

	now := time.Now()
	sub := &models.WebhookSubscription{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		URL:        url,
		EventTypes: eventTypes,
		SecretRef:  ref,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := ss.createRecord(ctx, sub); err != nil {
		// Roll the vault write back so no orphaned pair survives
		if delErr := ss.vault.Delete(ctx, ref); delErr != nil {
			log.Error().Err(delErr).Str("secret_ref", ref).Msg("failed to roll back vault secret after registration failure")
		}
		return nil, "", fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, secret, nil
}

func (ss *SubscriptionService) createRecord(ctx context.Context, sub *models.WebhookSubscription) error {
	if ss.repo != nil {
		return ss.repo.Create(ctx, sub)
	}

	eventsJSON, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal event types: %w", err)
	}

	_, err = ss.pool.Exec(ctx, `
		INSERT INTO webhook_subscriptions (id, owner_id, url, event_types, secret_ref, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sub.ID, sub.OwnerID, sub.URL, eventsJSON, sub.SecretRef, sub.Active, sub.CreatedAt, sub.UpdatedAt)
	return err
}

// GetSubscription retrieves a subscription by id
func (ss *SubscriptionService) GetSubscription(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error) {
	if ss.repo != nil {
		sub, err := ss.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, ErrSubscriptionNotFound
		}
		return sub, nil
	}

	row := ss.pool.QueryRow(ctx, `
		SELECT id, owner_id, url, event_types, secret_ref, active, created_at, updated_at
		FROM webhook_subscriptions
		WHERE id = $1
	`, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns a tenant's subscriptions, newest first.
// Secret material is never included — only the opaque vault reference.
func (ss *SubscriptionService) ListSubscriptions(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	if ss.repo != nil {
		return ss.repo.ListByOwner(ctx, ownerID)
	}

	rows, err := ss.pool.Query(ctx, `
		SELECT id, owner_id, url, event_types, secret_ref, active, created_at, updated_at
		FROM webhook_subscriptions
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

// ListActiveForEvent returns the tenant's active subscriptions listening for eventType
func (ss *SubscriptionService) ListActiveForEvent(ctx context.Context, ownerID, eventType string) ([]*models.WebhookSubscription, error) {
	if ss.repo != nil {
		return ss.repo.ListActiveForEvent(ctx, ownerID, eventType)
	}

	eventJSON, _ := json.Marshal([]string{eventType})

	rows, err := ss.pool.Query(ctx, `
		SELECT id, owner_id, url, event_types, secret_ref, active, created_at, updated_at
		FROM webhook_subscriptions
		WHERE owner_id = $1 AND active = true AND event_types @> $2::jsonb
	`, ownerID, eventJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions by event: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

// ListAllSubscriptions returns subscriptions across every tenant, newest first,
// with the total count. Operator-facing; tenant API paths never reach this.
func (ss *SubscriptionService) ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.WebhookSubscription, int, error) {
	if ss.repo != nil {
		return ss.repo.ListAll(ctx, limit, offset)
	}

	var total int
	if err := ss.pool.QueryRow(ctx, "SELECT COUNT(*) FROM webhook_subscriptions").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	rows, err := ss.pool.Query(ctx, `
		SELECT id, owner_id, url, event_types, secret_ref, active, created_at, updated_at
		FROM webhook_subscriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs, err := collectSubscriptions(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// SubscriptionUpdate carries the mutable subscription fields; nil means unchanged
type SubscriptionUpdate struct {
	URL        *string
	EventTypes []string
	Active     *bool
}

// UpdateSubscription mutates url, event types, or active flag.
// There is no in-place secret rotation: rotate by delete+recreate.
func (ss *SubscriptionService) UpdateSubscription(ctx context.Context, id uuid.UUID, update SubscriptionUpdate) (*models.WebhookSubscription, error) {
	sub, err := ss.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.URL != nil {
		if !strings.HasPrefix(*update.URL, "https://") {
			return nil, errors.New("url must be an https endpoint")
		}
		sub.URL = *update.URL
	}
	if update.EventTypes != nil {
		for _, et := range update.EventTypes {
			if !models.IsKnownEventType(et) {
				return nil, fmt.Errorf("unknown event type: %s", et)
			}
		}
		sub.EventTypes = update.EventTypes
	}
	if update.Active != nil {
		sub.Active = *update.Active
	}
	sub.UpdatedAt = time.Now()

	if ss.repo != nil {
		if err := ss.repo.Update(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	eventsJSON, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event types: %w", err)
	}

	result, err := ss.pool.Exec(ctx, `
		UPDATE webhook_subscriptions
		SET url = $1, event_types = $2, active = $3, updated_at = $4
		WHERE id = $5
	`, sub.URL, eventsJSON, sub.Active, sub.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrSubscriptionNotFound
	}

	return sub, nil
}

// DeleteSubscription removes a subscription and its vault secret. The vault
// delete runs first; if it fails the subscription row is left intact and the
// error is surfaced, so no orphaned secret outlives its record unnoticed.
func (ss *SubscriptionService) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	sub, err := ss.GetSubscription(ctx, id)
	if err != nil {
		return err
	}

	if err := ss.vault.Delete(ctx, sub.SecretRef); err != nil {
		return fmt.Errorf("%w: %v", ErrVaultDeletionFailed, err)
	}

	if ss.repo != nil {
		return ss.repo.Delete(ctx, id)
	}

	result, err := ss.pool.Exec(ctx, "DELETE FROM webhook_subscriptions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	var eventsJSON []byte

	err := row.Scan(
		&sub.ID, &sub.OwnerID, &sub.URL, &eventsJSON,
		&sub.SecretRef, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventsJSON, &sub.EventTypes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event types: %w", err)
	}

	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*models.WebhookSubscription, error) {
	var subs []*models.WebhookSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
