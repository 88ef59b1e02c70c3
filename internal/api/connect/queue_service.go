package connect

import (
	"context"
	"sync"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hibiki/internal/api/queuev1"
	"github.com/osa030/hibiki/internal/app/notification"
	"github.com/osa030/hibiki/internal/app/playback"
	"github.com/osa030/hibiki/internal/domain/queue"
)

// QueueService implements the QueueService RPC.
type QueueService struct {
	store         *playback.Store
	notifications *notification.Manager
	volumeStep    float64

	done      chan struct{}
	closeOnce sync.Once
}

// NewQueueService creates a new QueueService.
// A non-positive volumeStep falls back to the queue default.
func NewQueueService(store *playback.Store, notifications *notification.Manager, volumeStep float64) *QueueService {
	if volumeStep <= 0 {
		volumeStep = queue.DefaultVolumeStep
	}
	return &QueueService{
		store:         store,
		notifications: notifications,
		volumeStep:    volumeStep,
		done:          make(chan struct{}),
	}
}

// Ensure QueueService implements the interface.
var _ queuev1.QueueServiceHandler = (*QueueService)(nil)

// Close ends every open Subscribe stream.
func (s *QueueService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// respond waits for queued actions and returns the resulting state.
func (s *QueueService) respond(ctx context.Context) (*connect.Response[queuev1.StateResponse], error) {
	if err := s.store.Settle(ctx); err != nil {
		return nil, toConnectError(err)
	}
	seq, st := s.store.Current()
	return connect.NewResponse(&queuev1.StateResponse{
		Seq:   seq,
		State: st,
		Views: queue.ViewsOf(st),
	}), nil
}

// GetState returns the current queue.
func (s *QueueService) GetState(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	return s.respond(ctx)
}

// AddTracks appends tracks to the queue.
func (s *QueueService) AddTracks(
	ctx context.Context,
	req *connect.Request[queuev1.AddTracksRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if err := validateTracks(req.Msg.Tracks...); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("add tracks: count=%d", len(req.Msg.Tracks))
	if len(req.Msg.Tracks) == 1 {
		s.store.AddTrack(req.Msg.Tracks[0])
	} else {
		s.store.AddTracks(req.Msg.Tracks)
	}
	return s.respond(ctx)
}

// PlayTrack selects a track, appending it when it is not queued.
func (s *QueueService) PlayTrack(
	ctx context.Context,
	req *connect.Request[queuev1.TrackRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	if err := validateTracks(req.Msg.Track); err != nil {
		return nil, err
	}
	zlog.Info().Msgf("play track: track_id=%s name=%s", req.Msg.Track.ID, req.Msg.Track.DisplayName())
	s.store.PlayTrack(req.Msg.Track)
	return s.respond(ctx)
}

// PlayNext inserts a track right after the current one.
func (s *QueueService) PlayNext(
	ctx context.Context,
	req *connect.Request[queuev1.TrackRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	if err := validateTracks(req.Msg.Track); err != nil {
		return nil, err
	}
	s.store.PlayNext(req.Msg.Track)
	return s.respond(ctx)
}

// RemoveTrack removes a slot. Unknown item IDs leave the queue unchanged.
func (s *QueueService) RemoveTrack(
	ctx context.Context,
	req *connect.Request[queuev1.RemoveTrackRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	s.store.RemoveTrack(req.Msg.ItemID)
	return s.respond(ctx)
}

// Next advances to the next track.
func (s *QueueService) Next(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.Next()
	return s.respond(ctx)
}

// Previous returns to the previously played track.
func (s *QueueService) Previous(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.Previous()
	return s.respond(ctx)
}

// Reorder moves a slot. Out-of-range positions leave the queue unchanged.
func (s *QueueService) Reorder(
	ctx context.Context,
	req *connect.Request[queuev1.ReorderRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.ReorderQueue(req.Msg.From, req.Msg.To)
	return s.respond(ctx)
}

// SetCurrentIndex jumps to a slot.
func (s *QueueService) SetCurrentIndex(
	ctx context.Context,
	req *connect.Request[queuev1.SetCurrentIndexRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.SetCurrentIndex(req.Msg.Index)
	return s.respond(ctx)
}

// ToggleShuffle flips shuffle mode.
func (s *QueueService) ToggleShuffle(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.ToggleShuffle()
	return s.respond(ctx)
}

// ToggleLoop flips loop mode.
func (s *QueueService) ToggleLoop(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.ToggleLoop()
	return s.respond(ctx)
}

// Clear empties the queue.
func (s *QueueService) Clear(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	zlog.Info().Msg("clear queue")
	s.store.Clear()
	return s.respond(ctx)
}

// SetVolume sets the volume. Values outside [0, 1] are clamped.
func (s *QueueService) SetVolume(
	ctx context.Context,
	req *connect.Request[queuev1.SetVolumeRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.SetVolume(req.Msg.Volume)
	return s.respond(ctx)
}

// AdjustVolume raises or lowers the volume by the requested or configured step.
func (s *QueueService) AdjustVolume(
	ctx context.Context,
	req *connect.Request[queuev1.AdjustVolumeRequest],
) (*connect.Response[queuev1.StateResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	step := req.Msg.Step
	if step == 0 {
		step = s.volumeStep
	}
	if req.Msg.Up {
		s.store.IncreaseVolume(step)
	} else {
		s.store.DecreaseVolume(step)
	}
	return s.respond(ctx)
}

// ToggleMute mutes or restores the volume.
func (s *QueueService) ToggleMute(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
) (*connect.Response[queuev1.StateResponse], error) {
	s.store.ToggleMute()
	return s.respond(ctx)
}

// Subscribe streams the current queue followed by every committed change.
func (s *QueueService) Subscribe(
	ctx context.Context,
	req *connect.Request[queuev1.Empty],
	stream *connect.ServerStream[queuev1.Notification],
) error {
	// Register first so no commit between the snapshot and the
	// subscription is lost; anything up to the snapshot is dropped.
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notifications.Subscribe(adapter)
	defer func() {
		s.notifications.Unsubscribe(subscriptionID)
		adapter.stop()
	}()

	seq, st := s.store.Current()
	if err := adapter.start(notification.InitialState(seq, st)); err != nil {
		return err
	}
	zlog.Debug().Msgf("subscription started: subscription_id=%s seq=%d", subscriptionID, seq)

	// Wait for context cancellation or server shutdown
	select {
	case <-ctx.Done():
	case <-s.done:
	}

	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Notifications arriving before the initial state are held back, and
// sequence numbers already delivered are skipped.
type notificationStreamAdapter struct {
	mu       sync.Mutex
	stream   *connect.ServerStream[queuev1.Notification]
	started  bool
	stopped  bool
	lastSeq  uint64
	buffered []*queuev1.Notification
}

func (a *notificationStreamAdapter) start(initial *queuev1.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.stream.Send(initial); err != nil {
		return err
	}
	a.started = true
	a.lastSeq = initial.SequenceNo

	buffered := a.buffered
	a.buffered = nil
	for _, n := range buffered {
		if err := a.sendLocked(n); err != nil {
			return err
		}
	}
	return nil
}

// stop drops every later notification. The stream must not be used once
// the handler has returned.
func (a *notificationStreamAdapter) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.buffered = nil
}

func (a *notificationStreamAdapter) Send(n *queuev1.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return nil
	}
	if !a.started {
		a.buffered = append(a.buffered, n)
		return nil
	}
	return a.sendLocked(n)
}

func (a *notificationStreamAdapter) sendLocked(n *queuev1.Notification) error {
	if n.SequenceNo <= a.lastSeq {
		return nil
	}
	if err := a.stream.Send(n); err != nil {
		return err
	}
	a.lastSeq = n.SequenceNo
	return nil
}
