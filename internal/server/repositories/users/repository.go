// Package users provides persistence for identity and profile records.
package users

import (
	"context"

	"github.com/mzheleznov/profilehub/internal/server/models"
)

// Repository is the storage contract for user identity/profile records.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateUsername(ctx context.Context, id string, username string) error
	UpdateAvatarKey(ctx context.Context, id string, key string) error
}
