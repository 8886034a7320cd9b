// Package services contains server-side business logic. This file implements
// IdentityService: registration, login, logout, and issuing/refreshing JWTs
// plus server-stored refresh sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/dbx"
	"github.com/mzheleznov/profilehub/internal/server/auth"
	"github.com/mzheleznov/profilehub/internal/server/config"
	"github.com/mzheleznov/profilehub/internal/server/models"
	"github.com/mzheleznov/profilehub/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

const minPasswordLength = 6

// IdentityService provides authentication-related operations:
//   - Register: create an identity and its profile record in one transaction
//   - Login: verify credentials and mint tokens
//   - Refresh: rotate refresh sessions and mint new access tokens
//   - Logout: invalidate a persisted refresh session
type IdentityService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewIdentityService constructs an IdentityService using repositories and
// server config.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a new identity with its profile fields (email, username)
// and returns the stored user plus a fresh token pair. The identity row and
// profile fields live in the same table and are written in one transaction,
// so a partial failure can never leave an orphaned identity.
//
// An empty or whitespace-only username yields common.ErrValidation before
// anything is written. A short password or duplicate email yields
// common.ErrAuth.
func (s *IdentityService) Register(ctx context.Context, email, password, username string) (*models.User, *TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, nil, fmt.Errorf("%w: password too short", common.ErrAuth)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, common.ErrInternal
	}

	user := &models.User{Email: email, Username: username, PasswordHash: hash}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		user = created

		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user.ID, tx)
		return genErr
	}); err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login verifies the provided credentials and, on success, returns the user
// and a new token pair. Unknown accounts and bad passwords are
// indistinguishable to the caller: both yield common.ErrAuth.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: invalid credentials", common.ErrAuth)
		}
		return nil, nil, common.ErrInternal
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, common.ErrInternal
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: invalid credentials", common.ErrAuth)
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.Sessions(s.db)

	session, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", common.ErrAuth)
		}
		return nil, fmt.Errorf("error searching refresh session: %w", err)
	}
	if session.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Sessions(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh session: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, session.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout deletes the persisted refresh session, invalidating it for future
// refreshes. Deleting an unknown token is not an error.
func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repomanager.Sessions(s.db).Delete(ctx, refreshToken)
}

// VerifyAccessToken returns the user id embedded in a valid access token.
func (s *IdentityService) VerifyAccessToken(tokenString string) (string, error) {
	return auth.GetUserIDFromToken(tokenString, s.jwtSecret)
}

// --- helpers below ---

func (s *IdentityService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}
	if err := s.repomanager.Sessions(tx).Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
