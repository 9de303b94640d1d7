package media

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Spotify searches the Spotify catalogue for tracks.
type Spotify struct {
	api *spotify.Client
}

// NewSpotify creates a Spotify search client authenticated with the
// client-credentials flow. The token is refreshed as needed.
func NewSpotify(ctx context.Context, clientID, clientSecret string) *Spotify {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewSpotifyFromClient(spotify.New(cfg.Client(ctx), spotify.WithRetry(true)))
}

// NewSpotifyFromClient wraps an already authenticated client.
func NewSpotifyFromClient(api *spotify.Client) *Spotify {
	return &Spotify{api: api}
}

// Find returns the best matching track for song.
func (s *Spotify) Find(ctx context.Context, song string) (Link, error) {
	res, err := s.api.Search(ctx, song, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return Link{}, fmt.Errorf("searching spotify: %w", err)
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return Link{}, fmt.Errorf("spotify %q: %w", song, ErrNoResults)
	}

	track := res.Tracks.Tracks[0]
	return Link{
		Song:     song,
		Provider: ProviderSpotify,
		ID:       string(track.ID),
		Title:    trackTitle(track),
		URL:      track.ExternalURLs["spotify"],
	}, nil
}

// trackTitle formats a track as "Name - Artist, Artist".
func trackTitle(t spotify.FullTrack) string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	title := t.Name + " - "
	for i, a := range t.Artists {
		if i > 0 {
			title += ", "
		}
		title += a.Name
	}
	return title
}
