package queue

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/hibiki/internal/domain/track"
)

var (
	trackA = track.Track{ID: "a", Title: "Song A", Artist: "Artist"}
	trackB = track.Track{ID: "b", Title: "Song B", Artist: "Artist"}
	trackC = track.Track{ID: "c", Title: "Song C", Artist: "Artist"}
	trackD = track.Track{ID: "d", Title: "Song D", Artist: "Artist"}
)

// newTestEngine returns an engine with sequential ids and a scripted random source.
func newTestEngine(picks ...int) *Engine {
	n := 0
	return NewEngine(
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("item-%d", n)
		}),
		WithRandom(func(limit int) int {
			if len(picks) == 0 {
				return 0
			}
			p := picks[0]
			picks = picks[1:]
			return p % limit
		}),
	)
}

func trackIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.Track.ID
	}
	return ids
}

func stateWith(e *Engine, current int, tracks ...track.Track) State {
	s := e.AddTracks(NewState(), tracks)
	s.CurrentIndex = current
	return s
}

func TestEngine_AddTrack_DoesNotSelect(t *testing.T) {
	e := newTestEngine()

	s := e.AddTrack(NewState(), trackA)

	assert.Equal(t, []string{"a"}, trackIDs(s.Items))
	assert.Equal(t, -1, s.CurrentIndex)
	assert.Equal(t, "item-1", s.Items[0].ID)
}

func TestEngine_AddTracks(t *testing.T) {
	e := newTestEngine()

	s := e.AddTracks(NewState(), []track.Track{trackA, trackB, trackA})

	assert.Equal(t, []string{"a", "b", "a"}, trackIDs(s.Items))
	assert.Equal(t, -1, s.CurrentIndex)
	require.NoError(t, s.Validate(), "same track in several slots keeps ids unique")

	// Empty input is a no-op
	assert.Equal(t, s, e.AddTracks(s, nil))
}

func TestEngine_PlayTrack(t *testing.T) {
	e := newTestEngine()

	s := e.PlayTrack(NewState(), trackA)
	assert.Equal(t, []string{"a"}, trackIDs(s.Items))
	assert.Equal(t, 0, s.CurrentIndex)

	// Playing it again selects the existing slot
	again := e.PlayTrack(s, trackA)
	assert.Equal(t, s, again)

	s = e.PlayTrack(s, trackB)
	assert.Equal(t, []string{"a", "b"}, trackIDs(s.Items))
	assert.Equal(t, 1, s.CurrentIndex)

	// Existing track elsewhere in the queue: jump, no duplication, no history
	s = e.PlayTrack(s, trackA)
	assert.Equal(t, []string{"a", "b"}, trackIDs(s.Items))
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Empty(t, s.History)
}

func TestEngine_PlayNext(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		expected []string
	}{
		{name: "after current", current: 0, expected: []string{"a", "d", "b", "c"}},
		{name: "after last", current: 2, expected: []string{"a", "b", "c", "d"}},
		{name: "nothing selected", current: -1, expected: []string{"d", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			s := stateWith(e, tt.current, trackA, trackB, trackC)

			next := e.PlayNext(s, trackD)

			assert.Equal(t, tt.expected, trackIDs(next.Items))
			assert.Equal(t, tt.current, next.CurrentIndex)
			assert.Equal(t, []string{"a", "b", "c"}, trackIDs(s.Items), "input must not be mutated")
		})
	}
}

func TestEngine_RemoveTrack(t *testing.T) {
	tests := []struct {
		name            string
		current         int
		remove          int
		expectedIDs     []string
		expectedCurrent int
	}{
		{name: "before current", current: 2, remove: 0, expectedIDs: []string{"b", "c"}, expectedCurrent: 1},
		{name: "after current", current: 0, remove: 2, expectedIDs: []string{"a", "b"}, expectedCurrent: 0},
		{name: "current in middle", current: 1, remove: 1, expectedIDs: []string{"a", "c"}, expectedCurrent: 1},
		{name: "current at end", current: 2, remove: 2, expectedIDs: []string{"a", "b"}, expectedCurrent: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			s := stateWith(e, tt.current, trackA, trackB, trackC)

			next := e.RemoveTrack(s, s.Items[tt.remove].ID)

			assert.Equal(t, tt.expectedIDs, trackIDs(next.Items))
			assert.Equal(t, tt.expectedCurrent, next.CurrentIndex)
			assert.NoError(t, next.Validate())
		})
	}
}

func TestEngine_RemoveTrack_LastItem(t *testing.T) {
	e := newTestEngine()
	s := e.PlayTrack(NewState(), trackA)

	s = e.RemoveTrack(s, s.Items[0].ID)

	assert.Empty(t, s.Items)
	assert.Equal(t, -1, s.CurrentIndex)
}

func TestEngine_RemoveTrack_UnknownID(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB)

	assert.Equal(t, s, e.RemoveTrack(s, "missing"))
}

func TestEngine_Next_Sequential(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB)

	s = e.Next(s)
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, []string{"a"}, trackIDs(s.History))

	// At the end without loop nothing moves, nothing is recorded
	end := e.Next(s)
	assert.Equal(t, s, end)

	// With loop it wraps to the start
	s = e.ToggleLoop(s)
	s = e.Next(s)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, []string{"a", "b"}, trackIDs(s.History))
}

func TestEngine_Next_EmptyQueue(t *testing.T) {
	e := newTestEngine()
	s := NewState()

	assert.Equal(t, s, e.Next(s))
}

func TestEngine_Next_NothingSelected(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, -1, trackA, trackB)

	s = e.Next(s)

	assert.Equal(t, 0, s.CurrentIndex)
	assert.Empty(t, s.History)
}

func TestEngine_Next_Shuffle(t *testing.T) {
	// picks are offsets among the indices other than current
	e := newTestEngine(0, 2, 1)
	s := stateWith(e, 1, trackA, trackB, trackC, trackD)
	s = e.ToggleShuffle(s)

	s = e.Next(s) // others: [0,2,3] pick 0 -> 0
	assert.Equal(t, 0, s.CurrentIndex)

	s = e.Next(s) // others: [1,2,3] pick 2 -> 3
	assert.Equal(t, 3, s.CurrentIndex)

	s = e.Next(s) // others: [0,1,2] pick 1 -> 1
	assert.Equal(t, 1, s.CurrentIndex)

	assert.Equal(t, []string{"b", "a", "d"}, trackIDs(s.History))
}

func TestEngine_Next_ShuffleNeverRepeatsCurrent(t *testing.T) {
	e := NewEngine()
	s := stateWith(e, 0, trackA, trackB, trackC)
	s = e.ToggleShuffle(s)

	for i := 0; i < 200; i++ {
		next := e.Next(s)
		require.NotEqual(t, s.CurrentIndex, next.CurrentIndex)
		require.NoError(t, next.Validate())
		s = next
	}
	assert.Len(t, s.History, HistoryLimit)
}

func TestEngine_Next_ShuffleSingleItem(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA)
	s = e.ToggleShuffle(s)

	assert.Equal(t, s, e.Next(s))

	s = e.ToggleLoop(s)
	assert.Equal(t, s, e.Next(s))
}

func TestEngine_Next_HistoryIsBounded(t *testing.T) {
	e := newTestEngine()
	var tracks []track.Track
	for i := 0; i < 15; i++ {
		tracks = append(tracks, track.Track{ID: fmt.Sprintf("t%d", i)})
	}
	s := stateWith(e, 0, tracks...)

	for i := 0; i < 14; i++ {
		s = e.Next(s)
	}

	require.Len(t, s.History, HistoryLimit)
	assert.Equal(t, "t4", s.History[0].Track.ID, "oldest entries are evicted first")
	assert.Equal(t, "t13", s.History[HistoryLimit-1].Track.ID)
	assert.Equal(t, 14, s.CurrentIndex)
}

func TestEngine_Previous_FromHistory(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB)
	s = e.Next(s)

	s = e.Previous(s)

	assert.Equal(t, 0, s.CurrentIndex)
	assert.Empty(t, s.History)
}

func TestEngine_Previous_HistoryItemMoved(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB, trackC)
	s = e.Next(s)              // current b, history [a]
	s = e.ReorderQueue(s, 0, 2) // [b c a], current 0

	s = e.Previous(s)

	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, "a", s.Items[s.CurrentIndex].Track.ID)
}

func TestEngine_Previous_HistoryItemRemoved(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB, trackC)
	s = e.Next(s) // current b (1), history [a]
	s = e.Next(s) // current c (2), history [a b]
	s = e.RemoveTrack(s, s.History[1].ID)

	s = e.Previous(s)

	// b is gone: fall back one step from c (now at 1)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, []string{"a"}, trackIDs(s.History))
}

func TestEngine_Previous_WithoutHistory(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		loop     bool
		expected int
	}{
		{name: "step back", current: 2, expected: 1},
		{name: "clamp at start", current: 0, expected: 0},
		{name: "wrap with loop", current: 0, loop: true, expected: 2},
		{name: "nothing selected", current: -1, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			s := stateWith(e, tt.current, trackA, trackB, trackC)
			s.Loop = tt.loop

			next := e.Previous(s)

			assert.Equal(t, tt.expected, next.CurrentIndex)
			assert.Empty(t, next.History)
		})
	}
}

func TestEngine_Previous_EmptyQueue(t *testing.T) {
	e := newTestEngine()
	s := NewState()

	assert.Equal(t, s, e.Previous(s))
}

func TestEngine_ReorderQueue(t *testing.T) {
	tests := []struct {
		name            string
		current         int
		from, to        int
		expectedIDs     []string
		expectedCurrent int
	}{
		{name: "move current forward", current: 0, from: 0, to: 2, expectedIDs: []string{"b", "c", "a"}, expectedCurrent: 2},
		{name: "move current backward", current: 2, from: 2, to: 0, expectedIDs: []string{"c", "a", "b"}, expectedCurrent: 0},
		{name: "move across current forward", current: 1, from: 0, to: 2, expectedIDs: []string{"b", "c", "a"}, expectedCurrent: 0},
		{name: "move across current backward", current: 1, from: 2, to: 0, expectedIDs: []string{"c", "a", "b"}, expectedCurrent: 2},
		{name: "move onto current from before", current: 1, from: 0, to: 1, expectedIDs: []string{"b", "a", "c"}, expectedCurrent: 0},
		{name: "move after current", current: 0, from: 1, to: 2, expectedIDs: []string{"a", "c", "b"}, expectedCurrent: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			s := stateWith(e, tt.current, trackA, trackB, trackC)
			current := s.Items[tt.current]

			next := e.ReorderQueue(s, tt.from, tt.to)

			assert.Equal(t, tt.expectedIDs, trackIDs(next.Items))
			assert.Equal(t, tt.expectedCurrent, next.CurrentIndex)
			assert.Equal(t, current, next.Items[next.CurrentIndex], "current slot follows the item")
		})
	}
}

func TestEngine_ReorderQueue_OutOfBounds(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB)

	assert.Equal(t, s, e.ReorderQueue(s, -1, 0))
	assert.Equal(t, s, e.ReorderQueue(s, 0, 2))
	assert.Equal(t, s, e.ReorderQueue(s, 5, 1))
}

func TestEngine_Clear_KeepsModesAndVolume(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB)
	s = e.Next(s)
	s = e.ToggleShuffle(s)
	s = e.ToggleLoop(s)
	s = e.SetVolume(s, 0.7)

	s = e.Clear(s)

	assert.Empty(t, s.Items)
	assert.Empty(t, s.History)
	assert.Equal(t, -1, s.CurrentIndex)
	assert.True(t, s.Shuffle)
	assert.True(t, s.Loop)
	assert.Equal(t, 0.7, s.Volume)
}

func TestEngine_SetCurrentIndex(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA, trackB, trackC)

	s = e.SetCurrentIndex(s, 2)
	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, []string{"a"}, trackIDs(s.History))

	assert.Equal(t, s, e.SetCurrentIndex(s, 2), "same index is a no-op")
	assert.Equal(t, s, e.SetCurrentIndex(s, 3), "out of range is a no-op")
	assert.Equal(t, s, e.SetCurrentIndex(s, -1), "negative is a no-op")
}

func TestEngine_SetCurrentIndex_NothingSelected(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, -1, trackA, trackB)

	s = e.SetCurrentIndex(s, 1)

	assert.Equal(t, 1, s.CurrentIndex)
	assert.Empty(t, s.History)
}

func TestEngine_Volume(t *testing.T) {
	e := newTestEngine()
	s := NewState()

	s = e.IncreaseVolume(s, 0)
	assert.Equal(t, 0.3, s.Volume)

	s = e.IncreaseVolume(s, 0.5)
	assert.Equal(t, 0.8, s.Volume)

	s = e.IncreaseVolume(s, 0.5)
	assert.Equal(t, 1.0, s.Volume)

	s = e.DecreaseVolume(s, 2)
	assert.Equal(t, 0.0, s.Volume)

	s = e.SetVolume(s, 1.7)
	assert.Equal(t, 1.0, s.Volume)

	s = e.SetVolume(s, -3)
	assert.Equal(t, 0.0, s.Volume)

	assert.Equal(t, s, e.SetVolume(s, math.NaN()))
}

func TestEngine_ToggleMute_RestoresVolume(t *testing.T) {
	e := newTestEngine()
	s := e.SetVolume(NewState(), 0.6)

	muted := e.ToggleMute(s)
	assert.Equal(t, 0.0, muted.Volume)
	assert.True(t, muted.IsMuted())

	restored := e.ToggleMute(muted)
	assert.Equal(t, 0.6, restored.Volume)
	assert.Equal(t, s, restored)
}

func TestEngine_ToggleMute_NothingRemembered(t *testing.T) {
	e := newTestEngine()
	s := e.SetVolume(NewState(), 0)

	s = e.ToggleMute(s)

	assert.Equal(t, 1.0, s.Volume)
}

func TestEngine_TogglesAreInvolutions(t *testing.T) {
	e := newTestEngine()
	s := stateWith(e, 0, trackA)

	assert.Equal(t, s, e.ToggleShuffle(e.ToggleShuffle(s)))
	assert.Equal(t, s, e.ToggleLoop(e.ToggleLoop(s)))
	assert.Equal(t, s, e.ToggleMute(e.ToggleMute(s)))
}

func TestEngine_InvariantsHoldUnderRandomActions(t *testing.T) {
	e := NewEngine()
	s := NewState()
	tracks := []track.Track{trackA, trackB, trackC, trackD}

	for i := 0; i < 2000; i++ {
		tr := tracks[i%len(tracks)]
		switch (i * 7) % 13 {
		case 0:
			s = e.AddTrack(s, tr)
		case 1:
			s = e.PlayTrack(s, tr)
		case 2:
			s = e.PlayNext(s, tr)
		case 3:
			if len(s.Items) > 0 {
				s = e.RemoveTrack(s, s.Items[i%len(s.Items)].ID)
			}
		case 4:
			s = e.Next(s)
		case 5:
			s = e.Previous(s)
		case 6:
			s = e.ReorderQueue(s, i%5, (i+3)%5)
		case 7:
			s = e.ToggleShuffle(s)
		case 8:
			s = e.ToggleLoop(s)
		case 9:
			s = e.SetCurrentIndex(s, i%6)
		case 10:
			s = e.IncreaseVolume(s, 0.3)
		case 11:
			s = e.ToggleMute(s)
		case 12:
			if i%100 == 12 {
				s = e.Clear(s)
			} else {
				s = e.DecreaseVolume(s, 0.2)
			}
		}
		require.NoError(t, s.Validate(), "step %d", i)
	}
}
