// Package dab provides a client for the dab music API.
package dab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/domain/track"
)

const (
	// DefaultBaseURL is the public dab API endpoint.
	DefaultBaseURL = "https://dab.yeet.su/api"
	// DefaultQuality requests the highest stream quality.
	DefaultQuality = 27

	defaultLimit = 10
	maxLimit     = 50
)

// ErrNotStreamable is returned when the API has no stream URL for a track.
var ErrNotStreamable = errors.New("track is not streamable")

// Config represents dab client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Quality int
}

// Client is a dab API client.
type Client struct {
	baseURL    string
	quality    int
	httpClient *http.Client

	// Cache for search results keyed by query and limit
	searchCache map[string][]track.Track
	cacheMu     sync.RWMutex
}

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// apiTrack mirrors a track object of the search response.
type apiTrack struct {
	ID              flexID  `json:"id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	ArtistID        flexID  `json:"artistId"`
	AlbumTitle      string  `json:"albumTitle"`
	AlbumCover      string  `json:"albumCover"`
	AlbumID         flexID  `json:"albumId"`
	ReleaseDate     string  `json:"releaseDate"`
	Genre           string  `json:"genre"`
	Duration        float64 `json:"duration"` // seconds
	ParentalWarning bool    `json:"parental_warning"`
	Streamable      bool    `json:"streamable"`
	ISRC            string  `json:"isrc"`
	Images          struct {
		Large string `json:"large"`
	} `json:"images"`
}

// SearchResponse represents the response of the search endpoint.
type SearchResponse struct {
	Tracks []apiTrack `json:"tracks"`
}

// StreamResponse represents the response of the stream endpoint.
type StreamResponse struct {
	URL string `json:"url"`
}

// apiError represents an error body returned by the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New creates a new dab client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrapf(err, "invalid dab base url: %s", base)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	quality := cfg.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	return &Client{
		baseURL:     base,
		quality:     quality,
		httpClient:  &http.Client{Timeout: timeout},
		searchCache: make(map[string][]track.Track),
	}, nil
}

// Search finds tracks matching query. An empty query returns no tracks.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []track.Track{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	cacheKey := fmt.Sprintf("%s:%d", strings.ToLower(query), limit)
	c.cacheMu.RLock()
	if tracks, ok := c.searchCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached search result: query=%s count=%d", query, len(tracks))
		return append([]track.Track(nil), tracks...), nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))

	var response SearchResponse
	if err := c.get(ctx, "/search", params, &response); err != nil {
		return nil, errors.Wrapf(err, "search failed: query=%s", query)
	}

	tracks := make([]track.Track, 0, len(response.Tracks))
	for _, t := range response.Tracks {
		if t.ID == "" {
			continue
		}
		tracks = append(tracks, t.toTrack())
	}

	c.cacheMu.Lock()
	c.searchCache[cacheKey] = tracks
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached search result: query=%s count=%d", query, len(tracks))

	return append([]track.Track(nil), tracks...), nil
}

// StreamURL resolves a playable URL for trackID.
func (c *Client) StreamURL(ctx context.Context, trackID string) (string, error) {
	if strings.TrimSpace(trackID) == "" {
		return "", errors.New("track id is required")
	}

	params := url.Values{}
	params.Set("trackId", trackID)
	params.Set("quality", strconv.Itoa(c.quality))

	var response StreamResponse
	if err := c.get(ctx, "/stream", params, &response); err != nil {
		return "", errors.Wrapf(err, "stream lookup failed: track_id=%s", trackID)
	}
	if response.URL == "" {
		return "", errors.Wrapf(ErrNotStreamable, "track_id=%s", trackID)
	}
	return response.URL, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil {
			if msg := firstNonEmpty(apiErr.Message, apiErr.Error); msg != "" {
				return errors.Errorf("dab API error %d: %s", resp.StatusCode, msg)
			}
		}
		return errors.Errorf("dab API error %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func (t apiTrack) toTrack() track.Track {
	cover := t.AlbumCover
	if cover == "" {
		cover = t.Images.Large
	}
	return track.Track{
		ID:          string(t.ID),
		Title:       t.Title,
		Artist:      t.Artist,
		ArtistID:    string(t.ArtistID),
		Album:       t.AlbumTitle,
		AlbumID:     string(t.AlbumID),
		AlbumArtURL: cover,
		Genre:       t.Genre,
		ReleaseDate: t.ReleaseDate,
		Duration:    time.Duration(t.Duration * float64(time.Second)),
		ISRC:        t.ISRC,
		Explicit:    t.ParentalWarning,
		Streamable:  t.Streamable,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
