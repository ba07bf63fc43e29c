package mock

import (
	"context"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/google/uuid"
)

// AdminRepository is a mock implementation of repositories.AdminRepository
type AdminRepository struct {
	CreateFunc          func(ctx context.Context, admin *models.AdminUser) error
	GetByUsernameFunc   func(ctx context.Context, username string) (*models.AdminUser, error)
	HasAnyFunc          func(ctx context.Context) (bool, error)
	UpdateLastLoginFunc func(ctx context.Context, adminID uuid.UUID) error

	// Call tracking
	Calls map[string][]interface{}
}

// NewAdminRepository creates a new mock admin repository
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{
		Calls: make(map[string][]interface{}),
	}
}

func (m *AdminRepository) Create(ctx context.Context, admin *models.AdminUser) error {
	m.Calls["Create"] = append(m.Calls["Create"], admin)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, admin)
	}
	return nil
}

func (m *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	m.Calls["GetByUsername"] = append(m.Calls["GetByUsername"], username)
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, nil
}

func (m *AdminRepository) HasAny(ctx context.Context) (bool, error) {
	m.Calls["HasAny"] = append(m.Calls["HasAny"], nil)
	if m.HasAnyFunc != nil {
		return m.HasAnyFunc(ctx)
	}
	return false, nil
}

func (m *AdminRepository) UpdateLastLogin(ctx context.Context, adminID uuid.UUID) error {
	m.Calls["UpdateLastLogin"] = append(m.Calls["UpdateLastLogin"], adminID)
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, adminID)
	}
	return nil
}
