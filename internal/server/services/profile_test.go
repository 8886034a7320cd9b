package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	uploadKey string
	uploadURL string
	uploadErr error

	downloadURL string
	downloadErr error
	downloaded  []string
}

func (f *fakeStorage) NewUploadURL(ctx context.Context, userID, ext, contentType string) (string, string, error) {
	if f.uploadErr != nil {
		return "", "", f.uploadErr
	}
	return f.uploadKey, f.uploadURL, nil
}

func (f *fakeStorage) DownloadURL(ctx context.Context, key string) (string, error) {
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	f.downloaded = append(f.downloaded, key)
	return f.downloadURL, nil
}

func newProfileService(t *testing.T, rm *fakeRepoManager, st *fakeStorage) *ProfileService {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewProfileService(db, rm, st)
}

func TestProfileGet_WithAvatar(t *testing.T) {
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{byID: map[string]*models.User{
			"uid-1": {ID: "uid-1", Email: "b@x.com", Username: "bob", AvatarKey: "avatars/uid-1/a.jpg"},
		}},
		sessions: &fakeSessionsRepo{},
	}
	st := &fakeStorage{downloadURL: "https://s3/avatars/uid-1/a.jpg?sig"}
	s := newProfileService(t, rm, st)

	view, err := s.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", view.Username)
	assert.Equal(t, "b@x.com", view.Email)
	assert.Equal(t, "https://s3/avatars/uid-1/a.jpg?sig", view.AvatarURL)
	assert.Equal(t, []string{"avatars/uid-1/a.jpg"}, st.downloaded)
}

func TestProfileGet_NoAvatarSkipsStorage(t *testing.T) {
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{byID: map[string]*models.User{
			"uid-1": {ID: "uid-1", Email: "b@x.com", Username: "bob"},
		}},
		sessions: &fakeSessionsRepo{},
	}
	st := &fakeStorage{downloadErr: errors.New("must not be called")}
	s := newProfileService(t, rm, st)

	view, err := s.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Empty(t, view.AvatarURL)
}

func TestProfileGet_Missing(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newProfileService(t, rm, &fakeStorage{})

	_, err := s.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateUsername_Validation(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newProfileService(t, rm, &fakeStorage{})

	err := s.UpdateUsername(context.Background(), "uid-1", "   ")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, rm.users.updatedUsername)
}

func TestUpdateUsername_TrimsAndStores(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newProfileService(t, rm, &fakeStorage{})

	require.NoError(t, s.UpdateUsername(context.Background(), "uid-1", "  bob  "))
	assert.Equal(t, "bob", rm.users.updatedUsername)
}

func TestSetAvatar_Success(t *testing.T) {
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{byID: map[string]*models.User{
			"uid-1": {ID: "uid-1", Email: "b@x.com", Username: "bob", AvatarKey: "avatars/uid-1/new.png"},
		}},
		sessions: &fakeSessionsRepo{},
	}
	st := &fakeStorage{downloadURL: "https://s3/new"}
	s := newProfileService(t, rm, st)

	view, err := s.SetAvatar(context.Background(), "uid-1", "avatars/uid-1/new.png")
	require.NoError(t, err)
	assert.Equal(t, "avatars/uid-1/new.png", rm.users.updatedAvatarKey)
	assert.Equal(t, "https://s3/new", view.AvatarURL)
}

func TestSetAvatar_ForeignKeyIsPermissionError(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newProfileService(t, rm, &fakeStorage{})

	_, err := s.SetAvatar(context.Background(), "uid-1", "avatars/uid-2/stolen.png")
	require.ErrorIs(t, err, common.ErrPermission)
	assert.Empty(t, rm.users.updatedAvatarKey, "record must stay untouched")
}
