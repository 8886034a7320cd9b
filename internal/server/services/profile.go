package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/server/repositories/repomanager"

	"database/sql"
)

// ObjectStorage is the subset of StorageService the profile service needs.
type ObjectStorage interface {
	NewUploadURL(ctx context.Context, userID, ext, contentType string) (string, string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// ProfileView is the profile record as returned to clients. AvatarURL is a
// presigned download URL resolved from the stored key; empty when no avatar
// has been uploaded.
type ProfileView struct {
	UserID    string
	Email     string
	Username  string
	AvatarKey string
	AvatarURL string
	CreatedAt time.Time
}

// ProfileService reads and mutates profile records. All mutations are
// single-statement updates, so concurrent writers resolve to
// last-writer-wins rather than merged state.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     ObjectStorage
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, storage ObjectStorage) *ProfileService {
	return &ProfileService{db: db, repomanager: m, storage: storage}
}

// Get returns the profile record for userID, resolving the avatar key to a
// download URL when one is set.
func (s *ProfileService) Get(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error reading profile: %w", err)
	}

	view := &ProfileView{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		AvatarKey: user.AvatarKey,
		CreatedAt: user.CreatedAt,
	}

	if user.AvatarKey != "" {
		url, err := s.storage.DownloadURL(ctx, user.AvatarKey)
		if err != nil {
			return nil, fmt.Errorf("error resolving avatar url: %w", err)
		}
		view.AvatarURL = url
	}

	return view, nil
}

// UpdateUsername overwrites the profile's username. Empty or whitespace-only
// values yield common.ErrValidation.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if err := s.repomanager.Users(s.db).UpdateUsername(ctx, userID, username); err != nil {
		return fmt.Errorf("error updating username: %w", err)
	}
	return nil
}

// SetAvatar links an uploaded object to the profile record and returns the
// refreshed view. The caller confirms the key only after the upload has
// succeeded; keys outside the user's namespace yield common.ErrPermission.
func (s *ProfileService) SetAvatar(ctx context.Context, userID, key string) (*ProfileView, error) {
	if !OwnsKey(userID, key) {
		return nil, fmt.Errorf("%w: key does not belong to user", common.ErrPermission)
	}
	if err := s.repomanager.Users(s.db).UpdateAvatarKey(ctx, userID, key); err != nil {
		return nil, fmt.Errorf("error updating avatar: %w", err)
	}
	return s.Get(ctx, userID)
}

// NewAvatarUploadURL vends a presigned PUT URL and the derived object key
// for userID. The profile record is untouched until the key is confirmed
// via SetAvatar.
func (s *ProfileService) NewAvatarUploadURL(ctx context.Context, userID, ext, contentType string) (string, string, error) {
	return s.storage.NewUploadURL(ctx, userID, ext, contentType)
}
