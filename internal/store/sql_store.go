package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/ender-accounts/internal/database"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const userColumns = "id, full_name, username, email, password_hash, created_at, updated_at"

// SQLStore implements UserStore over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "username = ?", username)
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *SQLStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := s.dialect.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)

	var u models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	roles, err := s.rolesFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (s *SQLStore) rolesFor(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind("SELECT role FROM user_roles WHERE user_id = ? ORDER BY role"), userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return roles, nil
}

// FindAll returns every user ordered by id.
func (s *SQLStore) FindAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []models.User
	index := make(map[int64]int)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		index[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	roleRows, err := s.db.QueryContext(ctx, "SELECT user_id, role FROM user_roles ORDER BY user_id, role")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var (
			userID int64
			role   string
		)
		if err := roleRows.Scan(&userID, &role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Roles = append(users[i].Roles, role)
		}
	}
	if err := roleRows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

// Save inserts or updates user and its roles in one transaction. The
// returned record carries the store-assigned id and timestamps.
func (s *SQLStore) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if len(user.Roles) == 0 {
		return nil, errors.New("user must have at least one role")
	}

	saved := *user
	saved.Roles = append([]string(nil), user.Roles...)
	now := s.now()

	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		if saved.ID == 0 {
			saved.CreatedAt, saved.UpdatedAt = now, now
			return s.insert(ctx, tx, &saved)
		}
		saved.UpdatedAt = now
		return s.update(ctx, tx, &saved)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *SQLStore) insert(ctx context.Context, tx database.DBTX, u *models.User) error {
	query := s.dialect.Rebind(
		`INSERT INTO users (full_name, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`)
	err := tx.QueryRowContext(ctx, query,
		u.FullName, u.Username, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return mapWriteError(err)
	}
	return s.insertRoles(ctx, tx, u.ID, u.Roles)
}

func (s *SQLStore) update(ctx context.Context, tx database.DBTX, u *models.User) error {
	query := s.dialect.Rebind(
		`UPDATE users SET full_name = ?, username = ?, email = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`)
	res, err := tx.ExecContext(ctx, query, u.FullName, u.Username, u.Email, u.PasswordHash, u.UpdatedAt, u.ID)
	if err != nil {
		return mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	var createdAt time.Time
	if err := tx.QueryRowContext(ctx, s.dialect.Rebind("SELECT created_at FROM users WHERE id = ?"), u.ID).Scan(&createdAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	u.CreatedAt = createdAt

	if _, err := tx.ExecContext(ctx, s.dialect.Rebind("DELETE FROM user_roles WHERE user_id = ?"), u.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return s.insertRoles(ctx, tx, u.ID, u.Roles)
}

func (s *SQLStore) insertRoles(ctx context.Context, tx database.DBTX, userID int64, roles []string) error {
	query := s.dialect.Rebind("INSERT INTO user_roles (user_id, role) VALUES (?, ?)")
	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		if seen[role] {
			continue
		}
		seen[role] = true
		if _, err := tx.ExecContext(ctx, query, userID, role); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// Delete removes the user and its roles.
func (s *SQLStore) Delete(ctx context.Context, user *models.User) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind("DELETE FROM user_roles WHERE user_id = ?"), user.ID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.dialect.Rebind("DELETE FROM users WHERE id = ?"), user.ID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// mapWriteError turns driver-specific unique violations into ErrDuplicate.
func mapWriteError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}
