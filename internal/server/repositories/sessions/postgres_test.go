package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mzheleznov/profilehub/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("uid-1", "tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), "uid-1", "tok", time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFind_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRepository(db)

	expires := time.Now().Add(time.Hour)
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).AddRow("uid-1", expires))

	s, err := repo.Find(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", s.UserID)
	assert.Equal(t, "tok", s.Token)
	assert.WithinDuration(t, expires, s.Expires, time.Second)
}

func TestFind_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRepository(db)

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "tok"))
}

func TestDeleteForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRepository(db)

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("uid-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteForUser(context.Background(), "uid-1"))
}
