// Package sessions provides a PostgreSQL-backed store for refresh sessions
// used in the server's authentication flow.
package sessions

import (
	"context"
	"time"

	"github.com/mzheleznov/profilehub/internal/server/models"
)

// Repository is the storage contract for refresh sessions.
type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*models.RefreshSession, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID string) error
}
