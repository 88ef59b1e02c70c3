package dab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
	"tracks": [
		{
			"id": 12345,
			"title": "Track 1",
			"artist": "Artist 1",
			"artistId": 77,
			"albumTitle": "Album 1",
			"albumCover": "https://img/1.jpg",
			"albumId": "alb-1",
			"releaseDate": "2020-01-01",
			"genre": "Rock",
			"duration": 215,
			"parental_warning": true,
			"streamable": true,
			"isrc": "USRC17607839",
			"audioQuality": {"maximumBitDepth": 24, "isHiRes": true}
		},
		{
			"id": "67890",
			"title": "Track 2",
			"artist": "Artist 2",
			"albumCover": "",
			"images": {"large": "https://img/2-large.jpg"},
			"duration": 1.5,
			"streamable": false
		},
		{
			"title": "no id"
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/api/"})
	require.NoError(t, err)
	return client
}

func TestSearch(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "daft punk", r.URL.Query().Get("q"))
		assert.Equal(t, "track", r.URL.Query().Get("type"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchBody)
	})

	ctx := context.Background()
	tracks, err := client.Search(ctx, "daft punk", 5)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	first := tracks[0]
	assert.Equal(t, "12345", first.ID)
	assert.Equal(t, "Track 1", first.Title)
	assert.Equal(t, "Artist 1", first.Artist)
	assert.Equal(t, "77", first.ArtistID)
	assert.Equal(t, "Album 1", first.Album)
	assert.Equal(t, "alb-1", first.AlbumID)
	assert.Equal(t, "https://img/1.jpg", first.AlbumArtURL)
	assert.Equal(t, 215*time.Second, first.Duration)
	assert.True(t, first.Explicit)
	assert.True(t, first.Streamable)
	assert.Equal(t, "USRC17607839", first.ISRC)

	second := tracks[1]
	assert.Equal(t, "67890", second.ID)
	assert.Equal(t, "https://img/2-large.jpg", second.AlbumArtURL)
	assert.Equal(t, 1500*time.Millisecond, second.Duration)

	// Second call is served from the cache
	cached, err := client.Search(ctx, "Daft Punk", 5)
	require.NoError(t, err)
	assert.Equal(t, tracks, cached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty query")
	})

	tracks, err := client.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSearch_LimitIsClamped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"tracks":[]}`)
	})

	_, err := client.Search(context.Background(), "x", 500)
	require.NoError(t, err)
}

func TestSearch_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":"upstream unavailable"}`)
	})

	_, err := client.Search(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dab API error 502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestStreamURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stream", r.URL.Path)
		assert.Equal(t, "12345", r.URL.Query().Get("trackId"))
		assert.Equal(t, "27", r.URL.Query().Get("quality"))
		fmt.Fprint(w, `{"url":"https://cdn/stream.flac"}`)
	})

	u, err := client.StreamURL(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/stream.flac", u)
}

func TestStreamURL_Errors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("trackId") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"url":""}`)
	})
	ctx := context.Background()

	_, err := client.StreamURL(ctx, "")
	assert.Error(t, err)

	_, err = client.StreamURL(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = client.StreamURL(ctx, "silent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotStreamable))
}

func TestNew_Defaults(t *testing.T) {
	client, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultQuality, client.quality)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)

	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}
