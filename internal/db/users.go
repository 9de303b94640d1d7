package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Ensure creates the user if needed and records that it was seen.
func (r *UserRepository) Ensure(ctx context.Context, id string) (*User, error) {
	query := `
		INSERT INTO users (id, created_at, last_seen_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET last_seen_at = NOW()
		RETURNING id, created_at, last_seen_at
	`
	var user User
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.CreatedAt, &user.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return &user, nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, created_at, last_seen_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.CreatedAt, &user.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}
