package queue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/hibiki/internal/domain/track"
)

func TestNewState(t *testing.T) {
	s := NewState()

	assert.Empty(t, s.Items)
	assert.NotNil(t, s.Items)
	assert.Equal(t, -1, s.CurrentIndex)
	assert.Empty(t, s.History)
	assert.False(t, s.Shuffle)
	assert.False(t, s.Loop)
	assert.Equal(t, 0.2, s.Volume)
	require.NoError(t, s.Validate())
}

func TestState_Validate(t *testing.T) {
	item := func(id string) Item {
		return Item{ID: id, Track: track.Track{ID: "t-" + id}}
	}

	tests := []struct {
		name    string
		mutate  func(s *State)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(s *State) {},
		},
		{
			name:    "duplicate ids",
			mutate:  func(s *State) { s.Items = append(s.Items, item("1")) },
			wantErr: "duplicate item id",
		},
		{
			name:    "empty id",
			mutate:  func(s *State) { s.Items[1].ID = "" },
			wantErr: "empty id",
		},
		{
			name:    "index past end",
			mutate:  func(s *State) { s.CurrentIndex = 2 },
			wantErr: "out of range",
		},
		{
			name:    "index below -1",
			mutate:  func(s *State) { s.CurrentIndex = -2 },
			wantErr: "out of range",
		},
		{
			name: "index on empty queue",
			mutate: func(s *State) {
				s.Items = []Item{}
				s.CurrentIndex = 0
			},
			wantErr: "empty queue",
		},
		{
			name: "history too long",
			mutate: func(s *State) {
				for i := 0; i <= HistoryLimit; i++ {
					s.History = append(s.History, item("h"))
				}
			},
			wantErr: "history",
		},
		{
			name:    "volume above one",
			mutate:  func(s *State) { s.Volume = 1.5 },
			wantErr: "volume",
		},
		{
			name:    "volume NaN",
			mutate:  func(s *State) { s.Volume = math.NaN() },
			wantErr: "volume",
		},
		{
			name:    "last volume negative",
			mutate:  func(s *State) { s.LastVolume = -0.1 },
			wantErr: "last volume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			s.Items = []Item{item("1"), item("2")}
			s.CurrentIndex = 0
			tt.mutate(&s)

			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	s := NewState()
	s.Items = []Item{{ID: "1", Track: trackA}}
	s.History = []Item{{ID: "0", Track: trackB}}
	s.CurrentIndex = 0

	c := s.Clone()
	c.Items[0].ID = "changed"
	c.History[0].ID = "changed"

	assert.Equal(t, "1", s.Items[0].ID)
	assert.Equal(t, "0", s.History[0].ID)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
