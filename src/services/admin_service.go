package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AdminService handles operator account management and authentication
type AdminService struct {
	pool *pgxpool.Pool
	repo repositories.AdminRepository
}

// NewAdminService creates a new admin service
func NewAdminService(pool *pgxpool.Pool) *AdminService {
	return &AdminService{pool: pool}
}

// NewAdminServiceWithRepo creates a new admin service with repository (for testing)
func NewAdminServiceWithRepo(repo repositories.AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

// CreateAdminUser creates a new admin user with a bcrypt password hash
func (as *AdminService) CreateAdminUser(ctx context.Context, username, password string) (*models.AdminUser, error) {
	if len(username) < 1 || len(username) > 255 {
		return nil, errors.New("username must be between 1 and 255 characters")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		IsActive:     true,
	}

	if as.repo != nil {
		if err := as.repo.Create(ctx, admin); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
		return admin, nil
	}

	_, err = as.pool.Exec(ctx, `
		INSERT INTO admin_users (id, username, password_hash, created_at, is_active)
		VALUES ($1, $2, $3, $4, true)
	`, admin.ID, admin.Username, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return admin, nil
}

// HasAdmins reports whether any admin accounts exist
func (as *AdminService) HasAdmins(ctx context.Context) (bool, error) {
	if as.repo != nil {
		return as.repo.HasAny(ctx)
	}

	var count int
	if err := as.pool.QueryRow(ctx, "SELECT COUNT(*) FROM admin_users").Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check admin users: %w", err)
	}
	return count > 0, nil
}

// SeedDefaultAdmin creates the configured admin account if none exists yet
func (as *AdminService) SeedDefaultAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	exists, err := as.HasAdmins(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := as.CreateAdminUser(ctx, username, password); err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("Seeded default admin account")
	return nil
}

// AuthenticateAdmin verifies username and password. Every failure path
// returns the same ErrInvalidCredentials so responses cannot distinguish an
// unknown account from a wrong password.
func (as *AdminService) AuthenticateAdmin(ctx context.Context, username, password string) (*models.AdminUser, error) {
	var admin *models.AdminUser
	var err error

	if as.repo != nil {
		admin, err = as.repo.GetByUsername(ctx, username)
		if err != nil || admin == nil {
			return nil, ErrInvalidCredentials
		}
	} else {
		admin = &models.AdminUser{}
		err = as.pool.QueryRow(ctx, `
			SELECT id, username, password_hash, created_at, last_login, is_active
			FROM admin_users
			WHERE username = $1 AND is_active = true
		`, username).Scan(
			&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt, &admin.LastLogin, &admin.IsActive,
		)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if as.repo != nil {
		if err := as.repo.UpdateLastLogin(ctx, admin.ID); err != nil {
			log.Warn().Err(err).Str("username", admin.Username).Msg("Failed to update last_login")
		}
	} else {
		if _, err := as.pool.Exec(ctx, "UPDATE admin_users SET last_login = $1 WHERE id = $2", time.Now(), admin.ID); err != nil {
			log.Warn().Err(err).Str("username", admin.Username).Msg("Failed to update last_login")
		}
	}

	return admin, nil
}
