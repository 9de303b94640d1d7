// Package media resolves song titles into playable links.
package media

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoResults is returned when a provider has no match for a song.
	ErrNoResults = errors.New("no results")

	// ErrRateLimited is returned when a provider's rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when a provider rejects the credentials.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Provider names a link source.
type Provider string

const (
	ProviderYouTube Provider = "youtube"
	ProviderSpotify Provider = "spotify"
)

// Link is a playable match for a song.
type Link struct {
	Song     string   `json:"song"`
	Provider Provider `json:"provider"`
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
}

// Lookup finds a playable link for a song title.
type Lookup interface {
	Find(ctx context.Context, song string) (Link, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, song string) (Link, error)

// Find calls f.
func (f LookupFunc) Find(ctx context.Context, song string) (Link, error) { return f(ctx, song) }

// Chain tries each lookup in order and returns the first match. Only
// ErrNoResults moves on to the next lookup.
type Chain []Lookup

// Find implements Lookup.
func (c Chain) Find(ctx context.Context, song string) (Link, error) {
	for _, l := range c {
		link, err := l.Find(ctx, song)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, ErrNoResults) {
			return Link{}, err
		}
	}
	return Link{}, fmt.Errorf("%q: %w", song, ErrNoResults)
}
