package mock

import (
	"context"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/google/uuid"
)

// SubscriptionRepository is a mock implementation of repositories.SubscriptionRepository
type SubscriptionRepository struct {
	CreateFunc             func(ctx context.Context, sub *models.WebhookSubscription) error
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error)
	ListByOwnerFunc        func(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error)
	ListActiveForEventFunc func(ctx context.Context, ownerID, eventType string) ([]*models.WebhookSubscription, error)
	ListAllFunc            func(ctx context.Context, limit, offset int) ([]*models.WebhookSubscription, int, error)
	UpdateFunc             func(ctx context.Context, sub *models.WebhookSubscription) error
	DeleteFunc             func(ctx context.Context, id uuid.UUID) error

	// Call tracking
	Calls map[string][]interface{}
}

// NewSubscriptionRepository creates a new mock subscription repository
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		Calls: make(map[string][]interface{}),
	}
}

func (m *SubscriptionRepository) Create(ctx context.Context, sub *models.WebhookSubscription) error {
	m.Calls["Create"] = append(m.Calls["Create"], sub)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sub)
	}
	return nil
}

func (m *SubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error) {
	m.Calls["GetByID"] = append(m.Calls["GetByID"], id)
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *SubscriptionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	m.Calls["ListByOwner"] = append(m.Calls["ListByOwner"], ownerID)
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *SubscriptionRepository) ListActiveForEvent(ctx context.Context, ownerID, eventType string) ([]*models.WebhookSubscription, error) {
	m.Calls["ListActiveForEvent"] = append(m.Calls["ListActiveForEvent"], []interface{}{ownerID, eventType})
	if m.ListActiveForEventFunc != nil {
		return m.ListActiveForEventFunc(ctx, ownerID, eventType)
	}
	return nil, nil
}

func (m *SubscriptionRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.WebhookSubscription, int, error) {
	m.Calls["ListAll"] = append(m.Calls["ListAll"], []interface{}{limit, offset})
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *SubscriptionRepository) Update(ctx context.Context, sub *models.WebhookSubscription) error {
	m.Calls["Update"] = append(m.Calls["Update"], sub)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, sub)
	}
	return nil
}

func (m *SubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.Calls["Delete"] = append(m.Calls["Delete"], id)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}
