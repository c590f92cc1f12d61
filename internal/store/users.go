package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Adrijan-Petek/miniapp-admin-kit/credential"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
)

// NewUser is the input for UserRepo.Create.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Role         permission.Role
}

// UserRepo reads and writes the users table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a repository over db.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const selectUserByUsername = `SELECT id, username, email, password_hash, role, is_active, last_login
FROM users WHERE username = $1`

// FindByUsername returns credential.ErrUserNotFound for an unknown username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (credential.UserRecord, error) {
	var (
		id        int64
		rec       credential.UserRecord
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, selectUserByUsername, username).Scan(
		&id, &rec.Username, &rec.Email, &rec.PasswordHash, &rec.Role, &rec.Active, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return credential.UserRecord{}, credential.ErrUserNotFound
	}
	if err != nil {
		return credential.UserRecord{}, fmt.Errorf("find user: %w", err)
	}

	rec.ID = strconv.FormatInt(id, 10)
	if lastLogin.Valid {
		t := lastLogin.Time
		rec.LastLogin = &t
	}
	return rec, nil
}

// ExistsByUsername reports whether username is taken.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

// Create inserts an active user and returns its id.
func (r *UserRepo) Create(ctx context.Context, u NewUser) (string, error) {
	if !u.Role.Valid() {
		return "", fmt.Errorf("create user: unknown role %q", u.Role)
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, TRUE) RETURNING id`,
		u.Username, u.Email, u.PasswordHash, string(u.Role),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	return r.exec(ctx, "update last login",
		`UPDATE users SET last_login = $1, updated_at = NOW() WHERE id = $2`, at, id)
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	return r.exec(ctx, "update password hash",
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
}

func (r *UserRepo) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, credential.ErrUserNotFound)
	}
	return nil
}

func parseUserID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", userID)
	}
	return id, nil
}
