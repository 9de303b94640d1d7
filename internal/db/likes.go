package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LikeRepository handles liked-song database operations. Likes behave as
// a set per user.
type LikeRepository struct {
	pool *pgxpool.Pool
}

// Like adds song to the user's liked songs. Liking twice is a no-op.
func (r *LikeRepository) Like(ctx context.Context, userID, song string) error {
	query := `
		INSERT INTO likes (user_id, song, liked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, song) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, userID, song); err != nil {
		return fmt.Errorf("liking song: %w", err)
	}
	return nil
}

// Unlike removes song from the user's liked songs. Removing a song that
// is not liked is a no-op.
func (r *LikeRepository) Unlike(ctx context.Context, userID, song string) error {
	query := `DELETE FROM likes WHERE user_id = $1 AND song = $2`
	if _, err := r.pool.Exec(ctx, query, userID, song); err != nil {
		return fmt.Errorf("unliking song: %w", err)
	}
	return nil
}

// ForUser returns the user's liked songs, most recent first.
func (r *LikeRepository) ForUser(ctx context.Context, userID string) ([]Like, error) {
	query := `
		SELECT user_id, song, liked_at
		FROM likes
		WHERE user_id = $1
		ORDER BY liked_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying likes: %w", err)
	}
	defer rows.Close()

	var likes []Like
	for rows.Next() {
		var like Like
		if err := rows.Scan(&like.UserID, &like.Song, &like.LikedAt); err != nil {
			return nil, fmt.Errorf("scanning like: %w", err)
		}
		likes = append(likes, like)
	}
	return likes, rows.Err()
}

// IsLiked reports whether the user liked song.
func (r *LikeRepository) IsLiked(ctx context.Context, userID, song string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND song = $2)`
	var liked bool
	if err := r.pool.QueryRow(ctx, query, userID, song).Scan(&liked); err != nil {
		return false, fmt.Errorf("querying like: %w", err)
	}
	return liked, nil
}

// LikedAmong returns which of songs the user liked.
func (r *LikeRepository) LikedAmong(ctx context.Context, userID string, songs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(songs))
	if len(songs) == 0 {
		return liked, nil
	}

	query := `SELECT song FROM likes WHERE user_id = $1 AND song = ANY($2)`
	rows, err := r.pool.Query(ctx, query, userID, songs)
	if err != nil {
		return nil, fmt.Errorf("querying likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var song string
		if err := rows.Scan(&song); err != nil {
			return nil, fmt.Errorf("scanning like: %w", err)
		}
		liked[song] = true
	}
	return liked, rows.Err()
}
