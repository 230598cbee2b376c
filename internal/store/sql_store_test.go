package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/ender-accounts/internal/database"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "full_name", "username", "email", "password_hash", "created_at", "updated_at"}

func newMockStore(t *testing.T, dialect database.Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(db, dialect)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s, mock
}

func TestSQLStore_FindByUsername(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = ?")).
		WithArgs("ann").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "Ann Lee", "ann", "ann@x.io", "hash", created, created))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM user_roles WHERE user_id = ? ORDER BY role")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("ADMIN").AddRow("USER"))

	u, err := s.FindByUsername(context.Background(), "ann")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Ann Lee", u.FullName)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, []string{"ADMIN", "USER"}, u.Roles)
	assert.True(t, created.Equal(u.CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindNotFound(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("nobody@x.io").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := s.FindByEmail(context.Background(), "nobody@x.io")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindQueryError(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ?")).
		WithArgs(int64(4)).
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.FindByID(context.Background(), 4)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "db error")
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	s, mock := newMockStore(t, database.DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ann").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := s.FindByUsername(context.Background(), "ann")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindAll(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "Ann", "ann", "ann@x.io", "h1", ts, ts).
			AddRow(int64(2), "Bob", "bob", "bob@x.io", "h2", ts, ts))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, role FROM user_roles ORDER BY user_id, role")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}).
			AddRow(int64(1), "ADMIN").
			AddRow(int64(1), "USER").
			AddRow(int64(2), "USER"))

	users, err := s.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"ADMIN", "USER"}, users[0].Roles)
	assert.Equal(t, []string{"USER"}, users[1].Roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindAllEmpty(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(userCols))

	users, err := s.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveInsert(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)
	now := s.now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Ann", "ann", "ann@x.io", "hash", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id, role) VALUES (?, ?)")).
		WithArgs(int64(5), "USER").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	in := &models.User{FullName: "Ann", Username: "ann", Email: "ann@x.io", PasswordHash: "hash", Roles: []string{"USER", "USER"}}
	saved, err := s.Save(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.ID)
	assert.Equal(t, now, saved.CreatedAt)
	assert.Equal(t, now, saved.UpdatedAt)
	assert.Zero(t, in.ID, "input must not be mutated")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveDuplicate(t *testing.T) {
	s, mock := newMockStore(t, database.DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})
	mock.ExpectRollback()

	_, err := s.Save(context.Background(), &models.User{Username: "ann", Email: "a@x.io", Roles: []string{"USER"}})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveRoleFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WillReturnError(errors.New("write failed"))
	mock.ExpectRollback()

	_, err := s.Save(context.Background(), &models.User{Username: "ann", Email: "a@x.io", Roles: []string{"USER"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveUpdate(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)
	now := s.now()
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET full_name = ?")).
		WithArgs("Ann B", "ann", "ann@y.io", "hash", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM users WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE user_id = ?")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WithArgs(int64(1), "ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).
		WithArgs(int64(1), "USER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := s.Save(context.Background(), &models.User{
		ID: 1, FullName: "Ann B", Username: "ann", Email: "ann@y.io", PasswordHash: "hash",
		Roles: []string{"ADMIN", "USER"},
	})
	require.NoError(t, err)
	assert.True(t, created.Equal(saved.CreatedAt))
	assert.Equal(t, now, saved.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveUpdateMissing(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Save(context.Background(), &models.User{ID: 42, Username: "x", Roles: []string{"USER"}})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveRequiresRole(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	_, err := s.Save(context.Background(), &models.User{Username: "ann"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Delete(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles WHERE user_id = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), &models.User{ID: 3}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteMissing(t *testing.T) {
	s, mock := newMockStore(t, database.DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.Delete(context.Background(), &models.User{ID: 3}), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed")))
	assert.False(t, isUniqueViolation(nil))
}
