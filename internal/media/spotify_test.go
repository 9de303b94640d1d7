package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zmb3/spotify/v2"
)

func TestSpotifyFind(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLink Link
		wantErr  error
	}{
		{
			name: "first track",
			body: `{"tracks":{"items":[{
				"id":"4uLU6hMCjMI75M1A2tKUQC",
				"name":"Someone Like You",
				"artists":[{"name":"Adele"}],
				"external_urls":{"spotify":"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"}
			}]}}`,
			wantLink: Link{
				Song:     "someone like you",
				Provider: ProviderSpotify,
				ID:       "4uLU6hMCjMI75M1A2tKUQC",
				Title:    "Someone Like You - Adele",
				URL:      "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			},
		},
		{
			name:    "no tracks",
			body:    `{"tracks":{"items":[]}}`,
			wantErr: ErrNoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" || r.URL.Query().Get("type") != "track" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			api := spotify.New(srv.Client(), spotify.WithBaseURL(srv.URL+"/"))
			link, err := NewSpotifyFromClient(api).Find(context.Background(), "someone like you")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if link != tt.wantLink {
				t.Errorf("link = %+v, want %+v", link, tt.wantLink)
			}
		})
	}
}

func TestTrackTitle(t *testing.T) {
	track := spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
		Name:    "Collab",
		Artists: []spotify.SimpleArtist{{Name: "A"}, {Name: "B"}},
	}}
	if got := trackTitle(track); got != "Collab - A, B" {
		t.Errorf("trackTitle = %q", got)
	}

	track.Artists = nil
	if got := trackTitle(track); got != "Collab" {
		t.Errorf("trackTitle without artists = %q", got)
	}
}
