// Package queue provides the playback queue model and its transition rules.
package queue

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/osa030/hibiki/internal/domain/track"
)

const (
	HistoryLimit      = 10  // Maximum number of remembered previously-current items
	DefaultVolume     = 0.2 // Volume of a fresh state
	DefaultVolumeStep = 0.1 // Step used by IncreaseVolume/DecreaseVolume
	unmuteVolume      = 1.0 // Volume restored by ToggleMute when nothing was remembered
)

// Item is a single slot in the queue.
// ID identifies the slot, not the track: the same track may occupy several slots.
type Item struct {
	ID    string      `json:"id"`
	Track track.Track `json:"track"`
}

// State is the full snapshot of the queue.
type State struct {
	Items        []Item  `json:"items"`
	CurrentIndex int     `json:"currentIndex"`
	History      []Item  `json:"history"` // most recent last
	Shuffle      bool    `json:"isShuffling"`
	Loop         bool    `json:"isLooping"`
	Volume       float64 `json:"volume"`
	LastVolume   float64 `json:"lastVolume,omitempty"` // volume before mute, 0 if none
}

// NewState returns the state used when nothing was persisted.
func NewState() State {
	return State{
		Items:        []Item{},
		CurrentIndex: -1,
		History:      []Item{},
		Volume:       DefaultVolume,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.Items = copyItems(s.Items)
	c.History = copyItems(s.History)
	return c
}

// Validate checks the state invariants.
func (s State) Validate() error {
	seen := make(map[string]struct{}, len(s.Items))
	for i, it := range s.Items {
		if it.ID == "" {
			return errors.Newf("item %d has an empty id", i)
		}
		if _, dup := seen[it.ID]; dup {
			return errors.Newf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
	}

	if len(s.Items) == 0 {
		if s.CurrentIndex != -1 {
			return errors.Newf("current index %d on empty queue", s.CurrentIndex)
		}
	} else if s.CurrentIndex < -1 || s.CurrentIndex >= len(s.Items) {
		return errors.Newf("current index %d out of range [-1, %d)", s.CurrentIndex, len(s.Items))
	}

	if len(s.History) > HistoryLimit {
		return errors.Newf("history has %d entries (limit %d)", len(s.History), HistoryLimit)
	}

	if !validVolume(s.Volume) {
		return errors.Newf("volume %v out of range [0, 1]", s.Volume)
	}
	if !validVolume(s.LastVolume) {
		return errors.Newf("last volume %v out of range [0, 1]", s.LastVolume)
	}

	return nil
}

// IndexOfItem returns the position of the item with the given id, or -1.
func (s State) IndexOfItem(id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// indexOfTrack returns the position of the first item holding the track, or -1.
func (s State) indexOfTrack(t track.Track) int {
	for i, it := range s.Items {
		if it.Track.SameAs(t) {
			return i
		}
	}
	return -1
}

func validVolume(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
