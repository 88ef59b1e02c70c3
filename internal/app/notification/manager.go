// Package notification provides the notification manager for broadcasting queue changes.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/api/queuev1"
	"github.com/osa030/hibiki/internal/app/playback"
	"github.com/osa030/hibiki/internal/domain/queue"
)

const defaultSendTimeout = 500 * time.Millisecond

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*queuev1.Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   defaultSendTimeout,
	}
}

// Attach forwards every committed state of store to the subscribers.
// The returned function detaches the manager.
func (m *Manager) Attach(store *playback.Store) func() {
	return store.Subscribe(func(ev playback.Event) {
		m.Broadcast(StateChanged(ev))
	})
}

// StateChanged builds the notification for a committed store event.
func StateChanged(ev playback.Event) *queuev1.Notification {
	return &queuev1.Notification{
		Type:       queuev1.NotificationTypeStateChanged,
		SequenceNo: ev.Seq,
		Action:     ev.Action.String(),
		State:      ev.State,
		Views:      queue.ViewsOf(ev.State),
	}
}

// InitialState builds the first notification of a subscription.
func InitialState(seq uint64, st queue.State) *queuev1.Notification {
	return &queuev1.Notification{
		Type:       queuev1.NotificationTypeInitialState,
		SequenceNo: seq,
		State:      st,
		Views:      queue.ViewsOf(st),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("subscriber added: subscription_id=%s total=%d", id, len(m.subscriptions))
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast sends a notification to all subscribers.
// Each send runs in its own goroutine and is abandoned after the send timeout,
// so a stalled stream cannot hold up the queue.
func (m *Manager) Broadcast(notification *queuev1.Notification) {
	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification send failed: subscription_id=%s err=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification send timed out: subscription_id=%s seq=%d", s.id, notification.SequenceNo)
			}
		}(sub)
	}

	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
