// Package snapshot persists queue state as JSON in a key-value backend.
package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/domain/queue"
	"github.com/osa030/hibiki/internal/infra/storage"
)

const (
	// Key is the storage key holding the queue snapshot.
	Key = "hibiki-queue"

	defaultSaveTimeout = 2 * time.Second
)

// Store loads and saves queue snapshots.
type Store struct {
	backend     storage.Backend
	saveTimeout time.Duration
}

// New creates a snapshot store on top of backend.
// A non-positive saveTimeout selects the default of two seconds.
func New(backend storage.Backend, saveTimeout time.Duration) *Store {
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveTimeout
	}
	return &Store{
		backend:     backend,
		saveTimeout: saveTimeout,
	}
}

// Load returns the persisted state.
// A missing, unreadable, or malformed snapshot yields queue.NewState.
func (s *Store) Load(ctx context.Context) queue.State {
	raw, ok, err := s.backend.Get(ctx, Key)
	if err != nil {
		zlog.Warn().Msgf("failed to read queue snapshot, starting empty: %v", err)
		return queue.NewState()
	}
	if !ok {
		zlog.Debug().Msgf("no queue snapshot found: key=%s", Key)
		return queue.NewState()
	}

	st, err := Decode([]byte(raw))
	if err != nil {
		zlog.Warn().Msgf("ignoring malformed queue snapshot: %v", err)
		return queue.NewState()
	}

	zlog.Info().Msgf("restored queue snapshot: items=%d current_index=%d", len(st.Items), st.CurrentIndex)
	return st
}

// Save writes st under Key, bounded by the store's save timeout.
func (s *Store) Save(ctx context.Context, st queue.State) error {
	data, err := Encode(st)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.saveTimeout)
	defer cancel()

	if err := s.backend.Set(ctx, Key, string(data)); err != nil {
		return errors.Wrap(err, "failed to save queue snapshot")
	}
	return nil
}

// Encode serializes a state.
func Encode(st queue.State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode queue snapshot")
	}
	return data, nil
}

// Decode parses a serialized state and checks its invariants.
func Decode(data []byte) (queue.State, error) {
	var st queue.State
	if err := json.Unmarshal(data, &st); err != nil {
		return queue.State{}, errors.Wrap(err, "failed to decode queue snapshot")
	}

	if st.Items == nil {
		st.Items = []queue.Item{}
	}
	if st.History == nil {
		st.History = []queue.Item{}
	}

	if err := st.Validate(); err != nil {
		return queue.State{}, errors.Wrap(err, "invalid queue snapshot")
	}
	return st, nil
}
