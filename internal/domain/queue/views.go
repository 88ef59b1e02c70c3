package queue

import "github.com/osa030/hibiki/internal/domain/track"

// CurrentTrack returns the track at the current index.
func (s State) CurrentTrack() (track.Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Items) {
		return track.Track{}, false
	}
	return s.Items[s.CurrentIndex].Track, true
}

// CurrentItem returns the slot at the current index.
func (s State) CurrentItem() (Item, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Items) {
		return Item{}, false
	}
	return s.Items[s.CurrentIndex], true
}

// QueueLength returns the number of slots.
func (s State) QueueLength() int {
	return len(s.Items)
}

// HasNext reports whether Next can move forward.
func (s State) HasNext() bool {
	return s.CurrentIndex < len(s.Items)-1 || s.Loop
}

// HasPrevious reports whether Previous has somewhere to go.
func (s State) HasPrevious() bool {
	return s.CurrentIndex > 0 || s.Loop || len(s.History) > 0
}

// IsMuted reports whether the volume is zero.
func (s State) IsMuted() bool {
	return s.Volume == 0
}

// Upcoming returns the slots after the current one.
func (s State) Upcoming() []Item {
	start := s.CurrentIndex + 1
	if start >= len(s.Items) {
		return []Item{}
	}
	return copyItems(s.Items[start:])
}

// Views is a read-only projection of a State.
type Views struct {
	CurrentTrack *track.Track `json:"currentTrack,omitempty"`
	QueueLength  int          `json:"queueLength"`
	HasNext      bool         `json:"hasNext"`
	HasPrevious  bool         `json:"hasPrevious"`
	Volume       float64      `json:"volume"`
	IsMuted      bool         `json:"isMuted"`
}

// ViewsOf computes the projections of s.
func ViewsOf(s State) Views {
	v := Views{
		QueueLength: s.QueueLength(),
		HasNext:     s.HasNext(),
		HasPrevious: s.HasPrevious(),
		Volume:      s.Volume,
		IsMuted:     s.IsMuted(),
	}
	if t, ok := s.CurrentTrack(); ok {
		v.CurrentTrack = &t
	}
	return v
}
