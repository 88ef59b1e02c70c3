// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/hibiki/internal/domain/track"
)

// Client is a Spotify API client used as a track catalog.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	return newClient(auth.Client(ctx, token), cfg.Market), nil
}

// NewWithHTTPClient creates a client that talks to baseURL with an already
// authenticated HTTP client.
func NewWithHTTPClient(httpClient *http.Client, baseURL, market string) *Client {
	return newClient(httpClient, market, spotify.WithBaseURL(baseURL))
}

func newClient(httpClient *http.Client, market string, opts ...spotify.ClientOption) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client:     spotify.New(httpClient, opts...),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// GetTrack retrieves track information by ID, URL, or URI.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	id := extractTrackID(trackID)
	if id == "" {
		return nil, errors.New("track id is required")
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get track: track_id=%s", id)
	}

	t := convertTrack(result)
	return &t, nil
}

// Search searches for tracks on Spotify. An empty query returns no tracks.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []track.Track{}, nil
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(limit),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search: query=%s", query)
	}

	if result.Tracks == nil {
		return []track.Track{}, nil
	}
	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for i := range result.Tracks.Tracks {
		t := &result.Tracks.Tracks[i]
		if t.ID == "" {
			continue
		}
		tracks = append(tracks, convertTrack(t))
	}

	return tracks, nil
}

// StreamURL returns the public Spotify page of the track.
// Spotify does not hand out raw audio streams.
func (c *Client) StreamURL(_ context.Context, trackID string) (string, error) {
	id := extractTrackID(trackID)
	if id == "" {
		return "", errors.New("track id is required")
	}
	return GetTrackURL(id), nil
}

// convertTrack converts a Spotify FullTrack to domain Track.
func convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	var artistID string
	if len(t.Artists) > 0 {
		artistID = string(t.Artists[0].ID)
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	streamable := true
	if t.IsPlayable != nil {
		streamable = *t.IsPlayable
	}

	return track.Track{
		ID:          string(t.ID),
		Title:       t.Name,
		Artist:      strings.Join(artists, ", "),
		ArtistID:    artistID,
		Album:       t.Album.Name,
		AlbumID:     string(t.Album.ID),
		AlbumArtURL: albumArt,
		ReleaseDate: t.Album.ReleaseDate,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		Explicit:    t.Explicit,
		Streamable:  streamable,
		URL:         GetTrackURL(string(t.ID)),
	}
}

// GetTrackURL returns the Spotify URL for a track.
func GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			zlog.Debug().Msgf("spotify request failed, retrying: attempt=%d err=%v", i+1, err)
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
