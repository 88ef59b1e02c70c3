// Package playback provides the queue store that owns the playback queue.
package playback

import (
	"context"
	"sort"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/domain/queue"
	"github.com/osa030/hibiki/internal/domain/track"
)

// Persister saves committed states.
type Persister interface {
	Save(ctx context.Context, st queue.State) error
}

// Option configures a Store.
type Option func(*Store)

// WithEngine replaces the default transition engine.
func WithEngine(e *queue.Engine) Option {
	return func(s *Store) {
		s.engine = e
	}
}

// WithPersister saves every committed state through p.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

type pendingAction struct {
	action Action
	apply  func(queue.State) queue.State
}

// Store is the single owner of the queue state.
//
// Actions run one at a time: each one computes the next state, commits it,
// saves it, and notifies every subscriber before the next action starts.
// An action issued while another is in flight (from another goroutine or from
// inside a subscriber) is queued and runs afterwards in FIFO order.
type Store struct {
	mu sync.Mutex

	engine    *queue.Engine
	persister Persister

	state queue.State
	seq   uint64

	pending     []pendingAction
	dispatching bool
	waiters     []chan struct{}

	subscribers map[uint64]func(Event)
	nextSubID   uint64
}

// NewStore creates a store holding initial.
func NewStore(initial queue.State, opts ...Option) *Store {
	s := &Store{
		engine:      queue.NewEngine(),
		state:       initial.Clone(),
		subscribers: make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() queue.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Views returns the derived projections of the current state.
func (s *Store) Views() queue.Views {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queue.ViewsOf(s.state)
}

// Seq returns the number of committed actions.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Current returns the sequence number and a copy of the state it belongs to.
func (s *Store) Current() (uint64, queue.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq, s.state.Clone()
}

// Settle blocks until no action is queued or running.
// It must not be called from a subscriber, which runs inside an action.
func (s *Store) Settle(ctx context.Context) error {
	s.mu.Lock()
	if !s.dispatching {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to receive every committed state.
// The returned function removes the subscription; calling it twice is harmless.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// AddTrack appends a track without selecting it.
func (s *Store) AddTrack(t track.Track) {
	s.dispatch(ActionAddTrack, func(st queue.State) queue.State {
		return s.engine.AddTrack(st, t)
	})
}

// AddTracks appends tracks in order.
func (s *Store) AddTracks(tracks []track.Track) {
	tracks = append([]track.Track(nil), tracks...)
	s.dispatch(ActionAddTracks, func(st queue.State) queue.State {
		return s.engine.AddTracks(st, tracks)
	})
}

// PlayTrack selects t, appending it first when it is not queued.
func (s *Store) PlayTrack(t track.Track) {
	s.dispatch(ActionPlayTrack, func(st queue.State) queue.State {
		return s.engine.PlayTrack(st, t)
	})
}

// PlayNext inserts t right after the current slot.
func (s *Store) PlayNext(t track.Track) {
	s.dispatch(ActionPlayNext, func(st queue.State) queue.State {
		return s.engine.PlayNext(st, t)
	})
}

// RemoveTrack deletes the slot with the given id.
func (s *Store) RemoveTrack(itemID string) {
	s.dispatch(ActionRemoveTrack, func(st queue.State) queue.State {
		return s.engine.RemoveTrack(st, itemID)
	})
}

// Next advances playback.
func (s *Store) Next() {
	s.dispatch(ActionNext, s.engine.Next)
}

// Previous goes back in playback.
func (s *Store) Previous() {
	s.dispatch(ActionPrevious, s.engine.Previous)
}

// ReorderQueue moves the slot at from to position to.
func (s *Store) ReorderQueue(from, to int) {
	s.dispatch(ActionReorder, func(st queue.State) queue.State {
		return s.engine.ReorderQueue(st, from, to)
	})
}

// ToggleShuffle flips shuffle mode.
func (s *Store) ToggleShuffle() {
	s.dispatch(ActionToggleShuffle, s.engine.ToggleShuffle)
}

// ToggleLoop flips loop mode.
func (s *Store) ToggleLoop() {
	s.dispatch(ActionToggleLoop, s.engine.ToggleLoop)
}

// Clear empties the queue and history.
func (s *Store) Clear() {
	s.dispatch(ActionClear, s.engine.Clear)
}

// SetCurrentIndex jumps to the given slot.
func (s *Store) SetCurrentIndex(index int) {
	s.dispatch(ActionSetCurrentIndex, func(st queue.State) queue.State {
		return s.engine.SetCurrentIndex(st, index)
	})
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Store) SetVolume(v float64) {
	s.dispatch(ActionSetVolume, func(st queue.State) queue.State {
		return s.engine.SetVolume(st, v)
	})
}

// IncreaseVolume raises the volume by step; non-positive steps use the default.
func (s *Store) IncreaseVolume(step float64) {
	s.dispatch(ActionIncreaseVolume, func(st queue.State) queue.State {
		return s.engine.IncreaseVolume(st, step)
	})
}

// DecreaseVolume lowers the volume by step; non-positive steps use the default.
func (s *Store) DecreaseVolume(step float64) {
	s.dispatch(ActionDecreaseVolume, func(st queue.State) queue.State {
		return s.engine.DecreaseVolume(st, step)
	})
}

// ToggleMute mutes or restores the remembered volume.
func (s *Store) ToggleMute() {
	s.dispatch(ActionToggleMute, s.engine.ToggleMute)
}

// dispatch queues an action and, unless another call is already draining the
// queue, runs queued actions to completion.
func (s *Store) dispatch(action Action, apply func(queue.State) queue.State) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingAction{action: action, apply: apply})
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.pending) > 0 {
		p := s.pending[0]
		s.pending = s.pending[1:]

		next := p.apply(s.state)
		s.state = next
		s.seq++
		ev := Event{Action: p.action, Seq: s.seq, State: next.Clone()}
		subs := s.subscribersLocked()
		s.mu.Unlock()

		zlog.Debug().Msgf("queue action committed: action=%s seq=%d items=%d current_index=%d",
			p.action, ev.Seq, len(next.Items), next.CurrentIndex)

		s.persist(next)
		for _, fn := range subs {
			notify(fn, ev)
		}

		s.mu.Lock()
	}

	s.pending = nil
	s.dispatching = false
	for _, ch := range s.waiters {
		close(ch)
	}
	s.waiters = nil
	s.mu.Unlock()
}

// subscribersLocked returns the subscribers in registration order.
// Must be called with s.mu held.
func (s *Store) subscribersLocked() []func(Event) {
	ids := make([]uint64, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	subs := make([]func(Event), len(ids))
	for i, id := range ids {
		subs[i] = s.subscribers[id]
	}
	return subs
}

func (s *Store) persist(st queue.State) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(context.Background(), st); err != nil {
		zlog.Warn().Msgf("failed to persist queue state: %v", err)
	}
}

func notify(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("queue subscriber panicked: action=%s seq=%d panic=%v", ev.Action, ev.Seq, r)
		}
	}()
	fn(ev)
}
