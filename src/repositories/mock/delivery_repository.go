package mock

import (
	"context"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/google/uuid"
)

// DeliveryRepository is a mock implementation of repositories.DeliveryRepository
type DeliveryRepository struct {
	EnqueueFunc              func(ctx context.Context, d *models.Delivery) error
	ClaimPendingFunc         func(ctx context.Context, limit int) ([]*models.Delivery, error)
	MarkDeliveredFunc        func(ctx context.Context, id uuid.UUID) error
	ScheduleRetryFunc        func(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error
	MarkDeadFunc             func(ctx context.Context, id uuid.UUID, lastError string) error
	RequeueFunc              func(ctx context.Context, id uuid.UUID) error
	ListDeadFunc             func(ctx context.Context, limit, offset int) ([]*models.Delivery, int, error)
	DeleteFinishedBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	// Call tracking
	Calls map[string][]interface{}
}

// NewDeliveryRepository creates a new mock delivery repository
func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{
		Calls: make(map[string][]interface{}),
	}
}

func (m *DeliveryRepository) Enqueue(ctx context.Context, d *models.Delivery) error {
	m.Calls["Enqueue"] = append(m.Calls["Enqueue"], d)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, d)
	}
	return nil
}

func (m *DeliveryRepository) ClaimPending(ctx context.Context, limit int) ([]*models.Delivery, error) {
	m.Calls["ClaimPending"] = append(m.Calls["ClaimPending"], limit)
	if m.ClaimPendingFunc != nil {
		return m.ClaimPendingFunc(ctx, limit)
	}
	return nil, nil
}

func (m *DeliveryRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	m.Calls["MarkDelivered"] = append(m.Calls["MarkDelivered"], id)
	if m.MarkDeliveredFunc != nil {
		return m.MarkDeliveredFunc(ctx, id)
	}
	return nil
}

func (m *DeliveryRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error {
	m.Calls["ScheduleRetry"] = append(m.Calls["ScheduleRetry"], []interface{}{id, nextRetryAt, lastError})
	if m.ScheduleRetryFunc != nil {
		return m.ScheduleRetryFunc(ctx, id, nextRetryAt, lastError)
	}
	return nil
}

func (m *DeliveryRepository) MarkDead(ctx context.Context, id uuid.UUID, lastError string) error {
	m.Calls["MarkDead"] = append(m.Calls["MarkDead"], []interface{}{id, lastError})
	if m.MarkDeadFunc != nil {
		return m.MarkDeadFunc(ctx, id, lastError)
	}
	return nil
}

func (m *DeliveryRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	m.Calls["Requeue"] = append(m.Calls["Requeue"], id)
	if m.RequeueFunc != nil {
		return m.RequeueFunc(ctx, id)
	}
	return nil
}

func (m *DeliveryRepository) ListDead(ctx context.Context, limit, offset int) ([]*models.Delivery, int, error) {
	m.Calls["ListDead"] = append(m.Calls["ListDead"], []interface{}{limit, offset})
	if m.ListDeadFunc != nil {
		return m.ListDeadFunc(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *DeliveryRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.Calls["DeleteFinishedBefore"] = append(m.Calls["DeleteFinishedBefore"], cutoff)
	if m.DeleteFinishedBeforeFunc != nil {
		return m.DeleteFinishedBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}
