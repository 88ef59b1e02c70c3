// Package catalog provides the track sources the queue is filled from.
package catalog

import (
	"context"

	"github.com/osa030/hibiki/internal/domain/track"
)

// Source finds tracks and resolves where they can be played from.
type Source interface {
	// Search returns tracks matching query. An empty query yields no tracks.
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
	// StreamURL resolves a playable URL for the track.
	StreamURL(ctx context.Context, trackID string) (string, error)
}

// Named pairs a source with the provider type it was built from.
type Named struct {
	Source
	Provider string
}
