package queue

import (
	"math"
	"math/rand/v2"

	"github.com/osa030/hibiki/internal/domain/track"
)

// Engine computes queue transitions.
// Every method returns a new State and leaves its input untouched.
// Invalid arguments (unknown ids, out-of-range indices) return the input unchanged.
type Engine struct {
	newID func() string
	intn  func(n int) int
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides the item id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithRandom overrides the source used to pick shuffle targets.
// fn must return a value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(e *Engine) {
		e.intn = fn
	}
}

// NewEngine creates a new transition engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		newID: NewID,
		intn:  rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) item(t track.Track) Item {
	return Item{ID: e.newID(), Track: t}
}

// AddTrack appends a track without selecting it.
func (e *Engine) AddTrack(s State, t track.Track) State {
	next := s.Clone()
	next.Items = append(next.Items, e.item(t))
	return next
}

// AddTracks appends tracks in order without selecting any of them.
func (e *Engine) AddTracks(s State, tracks []track.Track) State {
	if len(tracks) == 0 {
		return s
	}
	next := s.Clone()
	for _, t := range tracks {
		next.Items = append(next.Items, e.item(t))
	}
	return next
}

// PlayTrack selects the slot already holding t, or appends t and selects it.
func (e *Engine) PlayTrack(s State, t track.Track) State {
	if idx := s.indexOfTrack(t); idx >= 0 {
		if idx == s.CurrentIndex {
			return s
		}
		next := s.Clone()
		next.CurrentIndex = idx
		return next
	}

	next := s.Clone()
	next.Items = append(next.Items, e.item(t))
	next.CurrentIndex = len(next.Items) - 1
	return next
}

// PlayNext inserts t right after the current slot.
func (e *Engine) PlayNext(s State, t track.Track) State {
	pos := s.CurrentIndex + 1
	next := s.Clone()
	next.Items = append(next.Items, Item{})
	copy(next.Items[pos+1:], next.Items[pos:])
	next.Items[pos] = e.item(t)
	return next
}

// RemoveTrack deletes the slot with the given id.
// Removing the current slot keeps the index, so playback moves to what now occupies it.
func (e *Engine) RemoveTrack(s State, itemID string) State {
	idx := s.IndexOfItem(itemID)
	if idx < 0 {
		return s
	}

	next := s.Clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)

	switch {
	case idx < next.CurrentIndex:
		next.CurrentIndex--
	case idx == next.CurrentIndex && next.CurrentIndex >= len(next.Items):
		next.CurrentIndex = len(next.Items) - 1
	}
	return next
}

// Next advances to the following slot, or to a random one in shuffle mode.
// The current item is pushed onto the history only when the index actually moves.
func (e *Engine) Next(s State) State {
	n := len(s.Items)
	if n == 0 {
		return s
	}

	cur := s.CurrentIndex
	target := cur
	switch {
	case s.Shuffle && cur < 0:
		target = e.intn(n)
	case s.Shuffle && n > 1:
		// uniform over every index except cur
		target = e.intn(n - 1)
		if target >= cur {
			target++
		}
	case s.Shuffle:
		// single item: looping wraps onto itself
		if s.Loop {
			target = 0
		}
	default:
		target = cur + 1
		if target >= n {
			if s.Loop {
				target = 0
			} else {
				target = n - 1
			}
		}
	}

	return e.moveTo(s, target)
}

// Previous returns to the most recent history entry, or steps back one slot.
func (e *Engine) Previous(s State) State {
	n := len(s.Items)
	if n == 0 {
		return s
	}

	if len(s.History) > 0 {
		last := s.History[len(s.History)-1]
		next := s.Clone()
		next.History = next.History[:len(next.History)-1]
		if idx := s.IndexOfItem(last.ID); idx >= 0 {
			next.CurrentIndex = idx
		} else {
			next.CurrentIndex = max(0, s.CurrentIndex-1)
		}
		return next
	}

	target := s.CurrentIndex - 1
	if target < 0 {
		if s.Loop {
			target = n - 1
		} else {
			target = 0
		}
	}
	if target == s.CurrentIndex {
		return s
	}
	next := s.Clone()
	next.CurrentIndex = target
	return next
}

// ReorderQueue moves the slot at from to position to.
func (e *Engine) ReorderQueue(s State, from, to int) State {
	n := len(s.Items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return s
	}

	next := s.Clone()
	moved := next.Items[from]
	if from < to {
		copy(next.Items[from:to], next.Items[from+1:to+1])
	} else {
		copy(next.Items[to+1:from+1], next.Items[to:from])
	}
	next.Items[to] = moved

	cur := s.CurrentIndex
	switch {
	case cur == from:
		next.CurrentIndex = to
	case from < cur && to >= cur:
		next.CurrentIndex = cur - 1
	case from > cur && to <= cur:
		next.CurrentIndex = cur + 1
	}
	return next
}

// ToggleShuffle flips shuffle mode.
func (e *Engine) ToggleShuffle(s State) State {
	next := s.Clone()
	next.Shuffle = !s.Shuffle
	return next
}

// ToggleLoop flips loop mode.
func (e *Engine) ToggleLoop(s State) State {
	next := s.Clone()
	next.Loop = !s.Loop
	return next
}

// Clear empties the queue and its history. Modes and volume are kept.
func (e *Engine) Clear(s State) State {
	next := s.Clone()
	next.Items = []Item{}
	next.History = []Item{}
	next.CurrentIndex = -1
	return next
}

// SetCurrentIndex jumps to the given slot.
func (e *Engine) SetCurrentIndex(s State, index int) State {
	if index < 0 || index >= len(s.Items) {
		return s
	}
	return e.moveTo(s, index)
}

// SetVolume sets the volume, clamped to [0, 1].
func (e *Engine) SetVolume(s State, v float64) State {
	if math.IsNaN(v) {
		return s
	}
	next := s.Clone()
	next.Volume = clampVolume(v)
	return next
}

// IncreaseVolume raises the volume by step (DefaultVolumeStep when step <= 0).
func (e *Engine) IncreaseVolume(s State, step float64) State {
	return e.SetVolume(s, s.Volume+normalizeStep(step))
}

// DecreaseVolume lowers the volume by step (DefaultVolumeStep when step <= 0).
func (e *Engine) DecreaseVolume(s State, step float64) State {
	return e.SetVolume(s, s.Volume-normalizeStep(step))
}

// ToggleMute mutes while remembering the volume, or restores the remembered volume.
func (e *Engine) ToggleMute(s State) State {
	next := s.Clone()
	if s.Volume > 0 {
		next.LastVolume = s.Volume
		next.Volume = 0
		return next
	}

	next.Volume = unmuteVolume
	if s.LastVolume > 0 {
		next.Volume = s.LastVolume
	}
	next.LastVolume = 0
	return next
}

// moveTo selects target, recording the previous current item in the history.
func (e *Engine) moveTo(s State, target int) State {
	if target == s.CurrentIndex {
		return s
	}
	next := s.Clone()
	if s.CurrentIndex >= 0 {
		next.History = pushHistory(next.History, s.Items[s.CurrentIndex])
	}
	next.CurrentIndex = target
	return next
}

func pushHistory(history []Item, it Item) []Item {
	history = append(history, it)
	if over := len(history) - HistoryLimit; over > 0 {
		history = copyItems(history[over:])
	}
	return history
}

func normalizeStep(step float64) float64 {
	if math.IsNaN(step) || step <= 0 {
		return DefaultVolumeStep
	}
	return step
}

// clampVolume clamps to [0, 1] and drops float noise below 1e-6.
func clampVolume(v float64) float64 {
	v = math.Round(v*1e6) / 1e6
	return math.Max(0, math.Min(1, v))
}
