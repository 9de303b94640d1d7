package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"
	youtubeWatchURL  = "https://www.youtube.com/watch?v="
	userAgent        = "moodify/1.0"
)

// YouTube API error reasons.
const (
	reasonQuotaExceeded     = "quotaExceeded"
	reasonRateLimitExceeded = "rateLimitExceeded"
	reasonKeyInvalid        = "keyInvalid"
)

// YouTube searches the YouTube Data API for embeddable videos.
type YouTube struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	delays     []time.Duration
}

// YouTubeOption configures a YouTube client.
type YouTubeOption func(*YouTube)

// WithYouTubeBaseURL points the client at a different search endpoint.
func WithYouTubeBaseURL(u string) YouTubeOption {
	return func(y *YouTube) {
		y.baseURL = u
	}
}

// WithYouTubeHTTPClient sets the HTTP client.
func WithYouTubeHTTPClient(c *http.Client) YouTubeOption {
	return func(y *YouTube) {
		if c != nil {
			y.httpClient = c
		}
	}
}

// NewYouTube creates a YouTube Data API client.
func NewYouTube(apiKey string, opts ...YouTubeOption) *YouTube {
	y := &YouTube{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: youtubeSearchURL,
		delays:  []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Find returns the most relevant embeddable video for song.
func (y *YouTube) Find(ctx context.Context, song string) (Link, error) {
	params := url.Values{
		"part":            {"snippet"},
		"q":               {song},
		"type":            {"video"},
		"videoEmbeddable": {"true"},
		"videoSyndicated": {"true"},
		"order":           {"relevance"},
		"maxResults":      {"1"},
		"key":             {y.apiKey},
	}

	body, err := y.doRequest(ctx, params)
	if err != nil {
		return Link{}, fmt.Errorf("searching youtube: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Link{}, fmt.Errorf("parsing youtube response: %w", err)
	}

	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		return Link{
			Song:     song,
			Provider: ProviderYouTube,
			ID:       item.ID.VideoID,
			Title:    item.Snippet.Title,
			URL:      youtubeWatchURL + item.ID.VideoID,
		}, nil
	}
	return Link{}, fmt.Errorf("youtube %q: %w", song, ErrNoResults)
}

// doRequest performs a GET request, retrying with backoff while rate limited.
func (y *YouTube) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := y.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= len(y.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(y.delays[attempt-1]):
			}
		}

		body, err := y.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (y *YouTube) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		for _, e := range apiErr.Error.Errors {
			switch e.Reason {
			case reasonQuotaExceeded, reasonRateLimitExceeded:
				return nil, ErrRateLimited
			case reasonKeyInvalid:
				return nil, ErrInvalidAPIKey
			}
		}
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
	}
	return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
}
