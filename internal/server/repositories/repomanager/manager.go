// Package repomanager lets services obtain repositories bound to either a
// plain connection or a transaction, without knowing the storage backend.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/mzheleznov/profilehub/internal/dbx"
	"github.com/mzheleznov/profilehub/internal/server/repositories/sessions"
	"github.com/mzheleznov/profilehub/internal/server/repositories/users"
)

// RepositoryManager vends repository instances bound to the provided DBTX,
// which may be a *sql.DB or an in-flight *sql.Tx.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
