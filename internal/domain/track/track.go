// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Track represents a playable track returned by a catalog.
// The queue treats it as immutable value data identified by ID.
type Track struct {
	ID          string        `json:"id"`                    // Catalog track ID
	Title       string        `json:"title"`                 // Track title
	Artist      string        `json:"artist"`                // Display artist
	ArtistID    string        `json:"artistId,omitempty"`    // Catalog artist ID
	Album       string        `json:"albumTitle,omitempty"`  // Album title
	AlbumID     string        `json:"albumId,omitempty"`     // Catalog album ID
	AlbumArtURL string        `json:"albumCover,omitempty"`  // Album art URL
	Genre       string        `json:"genre,omitempty"`       // Genre name
	ReleaseDate string        `json:"releaseDate,omitempty"` // Release date as reported by the catalog
	Duration    time.Duration `json:"duration"`              // Track duration
	ISRC        string        `json:"isrc,omitempty"`        // International Standard Recording Code
	Explicit    bool          `json:"explicit,omitempty"`    // Parental warning flag
	Streamable  bool          `json:"streamable"`            // Catalog can resolve a stream URL
	URL         string        `json:"url,omitempty"`         // Public page for the track
}

// IsZero reports whether t carries no identity.
func (t *Track) IsZero() bool {
	return strings.TrimSpace(t.ID) == ""
}

// DisplayName returns "Artist - Title", or only the title when the artist is unknown.
func (t *Track) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// SameAs reports whether both tracks refer to the same catalog entry.
func (t *Track) SameAs(other Track) bool {
	return t.ID != "" && t.ID == other.ID
}
