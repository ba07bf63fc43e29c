package repositories

import (
	"context"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/google/uuid"
)

// SubscriptionRepository defines data access for webhook subscriptions
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.WebhookSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error)
	ListActiveForEvent(ctx context.Context, ownerID, eventType string) ([]*models.WebhookSubscription, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.WebhookSubscription, int, error)
	Update(ctx context.Context, sub *models.WebhookSubscription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DeliveryRepository defines data access for the outbound delivery queue
type DeliveryRepository interface {
	Enqueue(ctx context.Context, d *models.Delivery) error
	ClaimPending(ctx context.Context, limit int) ([]*models.Delivery, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error
	MarkDead(ctx context.Context, id uuid.UUID, lastError string) error
	Requeue(ctx context.Context, id uuid.UUID) error
	ListDead(ctx context.Context, limit, offset int) ([]*models.Delivery, int, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AdminRepository defines data access for operator accounts
type AdminRepository interface {
	Create(ctx context.Context, admin *models.AdminUser) error
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	HasAny(ctx context.Context) (bool, error)
	UpdateLastLogin(ctx context.Context, adminID uuid.UUID) error
}
