package db

import (
	"time"

	"github.com/justestif/go-moodify/internal/mood"
)

// User is an anonymous listener identified by a session-issued ID.
type User struct {
	ID         string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Playlist is the ordered song list shown for a mood.
type Playlist struct {
	Mood      mood.Label
	Songs     []string
	UpdatedAt time.Time
}

// Like records that a user liked a song.
type Like struct {
	UserID  string
	Song    string
	LikedAt time.Time
}
