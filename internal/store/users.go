package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser returns ErrConflict when the username is taken, compared
// case-insensitively.
func (q queries) CreateUser(ctx context.Context, u User) error {
	_, err := q.exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Username, u.PasswordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q: %w", u.Username, ErrConflict)
	}
	return err
}

func (q queries) UserByUsername(ctx context.Context, username string) (User, error) {
	return q.user(ctx, `
		SELECT id, username, password_hash, created_at FROM users
		WHERE lower(username) = lower(?)
	`, username)
}

func (q queries) UserByID(ctx context.Context, id string) (User, error) {
	return q.user(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE id = ?
	`, id)
}

func (q queries) user(ctx context.Context, query string, arg string) (User, error) {
	var u User
	var createdAt string
	err := q.queryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt, err = parseTime(createdAt)
	return u, err
}
