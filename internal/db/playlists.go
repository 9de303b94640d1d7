package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-moodify/internal/mood"
)

// PlaylistRepository handles mood playlist database operations.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

// SongsForMood returns the playlist for a mood, in display order.
func (r *PlaylistRepository) SongsForMood(ctx context.Context, m mood.Label) ([]string, error) {
	query := `SELECT songs FROM playlists WHERE mood = $1`
	var songs []string
	err := r.pool.QueryRow(ctx, query, m.String()).Scan(&songs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return songs, nil
}

// Get retrieves a full playlist record.
func (r *PlaylistRepository) Get(ctx context.Context, m mood.Label) (*Playlist, error) {
	query := `SELECT mood, songs, updated_at FROM playlists WHERE mood = $1`
	var (
		p     Playlist
		label string
	)
	err := r.pool.QueryRow(ctx, query, m.String()).Scan(&label, &p.Songs, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	p.Mood = mood.Label(label)
	return &p, nil
}

// Replace stores songs as the playlist for a mood.
func (r *PlaylistRepository) Replace(ctx context.Context, m mood.Label, songs []string) error {
	if songs == nil {
		songs = []string{}
	}
	query := `
		INSERT INTO playlists (mood, songs, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (mood) DO UPDATE SET
			songs = EXCLUDED.songs,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, m.String(), songs); err != nil {
		return fmt.Errorf("replacing playlist: %w", err)
	}
	return nil
}
