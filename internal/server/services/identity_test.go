package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/mzheleznov/profilehub/internal/dbx"
	"github.com/mzheleznov/profilehub/internal/server/auth"
	"github.com/mzheleznov/profilehub/internal/server/config"
	"github.com/mzheleznov/profilehub/internal/server/models"
	"github.com/mzheleznov/profilehub/internal/server/repositories/sessions"
	"github.com/mzheleznov/profilehub/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	created   []*models.User

	byEmail map[string]*models.User
	byID    map[string]*models.User

	updatedUsername  string
	updatedAvatarKey string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, u)
	if f.createOut != nil {
		return f.createOut, nil
	}
	out := *u
	out.ID = "uid-1"
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) UpdateUsername(ctx context.Context, id string, username string) error {
	f.updatedUsername = username
	return nil
}

func (f *fakeUsersRepo) UpdateAvatarKey(ctx context.Context, id string, key string) error {
	f.updatedAvatarKey = key
	return nil
}

type fakeSessionsRepo struct {
	findOut *models.RefreshSession
	findErr error

	created []string
	deleted []string

	createErr error
	deleteErr error
}

func (f *fakeSessionsRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeSessionsRepo) Find(ctx context.Context, token string) (*models.RefreshSession, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeSessionsRepo) DeleteForUser(ctx context.Context, userID string) error { return nil }

type fakeRepoManager struct {
	users    *fakeUsersRepo
	sessions *fakeSessionsRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository          { return m.users }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessions.Repository    { return m.sessions }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// --- helpers ---

func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	// Transactions opened by the service succeed unconditionally; the fakes
	// capture the actual repo calls.
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	return db
}

func newIdentityService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *IdentityService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewIdentityService(db, rm, cfg)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password)
	require.NoError(t, err)
	return h
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	user, pair, err := s.Register(context.Background(), "B@X.com", "secret1", "bob")
	require.NoError(t, err)

	assert.Equal(t, "uid-1", user.ID)
	assert.Equal(t, "b@x.com", user.Email, "email must be normalized")
	assert.Equal(t, "bob", user.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Len(t, rm.sessions.created, 1)
}

func TestRegister_EmptyUsernameIsValidationError(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	for _, username := range []string{"", "   ", "\t\n"} {
		_, _, err := s.Register(context.Background(), "b@x.com", "secret1", username)
		require.ErrorIs(t, err, common.ErrValidation, "username: %q", username)
	}

	assert.Empty(t, rm.users.created, "no identity may be created on validation failure")
}

func TestRegister_WeakPasswordIsAuthError(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	_, _, err := s.Register(context.Background(), "b@x.com", "short", "bob")
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Empty(t, rm.users.created)
}

func TestRegister_BadEmailIsValidationError(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	_, _, err := s.Register(context.Background(), "not-an-email", "secret1", "bob")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestRegister_DuplicateEmailRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		users:    &fakeUsersRepo{createErr: common.ErrAuth},
		sessions: &fakeSessionsRepo{},
	}
	s := newIdentityService(t, db, rm)

	_, _, err = s.Register(context.Background(), "b@x.com", "secret1", "bob")
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Empty(t, rm.sessions.created, "no session may be created when identity creation fails")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Success(t *testing.T) {
	hash := mustHash(t, "secret1")
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{byEmail: map[string]*models.User{
			"b@x.com": {ID: "uid-1", Email: "b@x.com", Username: "bob", PasswordHash: hash},
		}},
		sessions: &fakeSessionsRepo{},
	}
	s := newIdentityService(t, newTxDB(t), rm)

	user, pair, err := s.Login(context.Background(), "b@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	userID, err := s.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", userID)
}

func TestLogin_UnknownAccountIsAuthError(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	_, _, err := s.Login(context.Background(), "a@x.com", "secret")
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestLogin_WrongPasswordIsAuthError(t *testing.T) {
	hash := mustHash(t, "secret1")
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{byEmail: map[string]*models.User{
			"b@x.com": {ID: "uid-1", Email: "b@x.com", PasswordHash: hash},
		}},
		sessions: &fakeSessionsRepo{},
	}
	s := newIdentityService(t, newTxDB(t), rm)

	_, _, err := s.Login(context.Background(), "b@x.com", "nope-nope")
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestRefresh_RotatesSession(t *testing.T) {
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{},
		sessions: &fakeSessionsRepo{
			findOut: &models.RefreshSession{UserID: "uid-1", Token: "old", Expires: time.Now().Add(time.Hour)},
		},
	}
	s := newIdentityService(t, newTxDB(t), rm)

	pair, err := s.Refresh(context.Background(), "old")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Contains(t, rm.sessions.deleted, "old")
	assert.Len(t, rm.sessions.created, 1)
	assert.NotEqual(t, "old", rm.sessions.created[0])
}

func TestRefresh_Expired(t *testing.T) {
	rm := &fakeRepoManager{
		users: &fakeUsersRepo{},
		sessions: &fakeSessionsRepo{
			findOut: &models.RefreshSession{UserID: "uid-1", Token: "old", Expires: time.Now().Add(-time.Minute)},
		},
	}
	s := newIdentityService(t, newTxDB(t), rm)

	_, err := s.Refresh(context.Background(), "old")
	require.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefresh_UnknownTokenIsAuthError(t *testing.T) {
	rm := &fakeRepoManager{
		users:    &fakeUsersRepo{},
		sessions: &fakeSessionsRepo{findErr: common.ErrNotFound},
	}
	s := newIdentityService(t, newTxDB(t), rm)

	_, err := s.Refresh(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestLogout_DeletesSession(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	require.NoError(t, s.Logout(context.Background(), "tok"))
	assert.Contains(t, rm.sessions.deleted, "tok")
}

func TestLogout_EmptyTokenIsNoop(t *testing.T) {
	rm := &fakeRepoManager{users: &fakeUsersRepo{}, sessions: &fakeSessionsRepo{}}
	s := newIdentityService(t, newTxDB(t), rm)

	require.NoError(t, s.Logout(context.Background(), ""))
	assert.Empty(t, rm.sessions.deleted)
}
