// Package queuev1 defines the messages and Connect plumbing of the hibiki queue API.
package queuev1

import (
	"github.com/osa030/hibiki/internal/domain/queue"
	"github.com/osa030/hibiki/internal/domain/track"
)

// Empty is used by procedures that take no arguments.
type Empty struct{}

// StateResponse carries the queue after a call.
type StateResponse struct {
	Seq   uint64      `json:"seq"`
	State queue.State `json:"state"`
	Views queue.Views `json:"views"`
}

// AddTracksRequest appends tracks to the queue.
type AddTracksRequest struct {
	Tracks []track.Track `json:"tracks" validate:"required,min=1"`
}

// TrackRequest names a single track.
type TrackRequest struct {
	Track track.Track `json:"track"`
}

// RemoveTrackRequest removes a slot by item id.
type RemoveTrackRequest struct {
	ItemID string `json:"itemId" validate:"required"`
}

// ReorderRequest moves a slot.
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SetCurrentIndexRequest jumps to a slot.
type SetCurrentIndexRequest struct {
	Index int `json:"index"`
}

// SetVolumeRequest sets an absolute volume.
type SetVolumeRequest struct {
	Volume float64 `json:"volume"`
}

// AdjustVolumeRequest raises or lowers the volume by Step.
// A zero Step uses the server's configured step.
type AdjustVolumeRequest struct {
	Up   bool    `json:"up"`
	Step float64 `json:"step,omitempty" validate:"gte=0,lte=1"`
}

// NotificationType represents the kind of notification.
type NotificationType int

const (
	NotificationTypeInitialState NotificationType = iota // Sent once when a subscription opens
	NotificationTypeStateChanged                         // Sent after every committed action
)

// String returns the string representation of the notification type.
func (t NotificationType) String() string {
	switch t {
	case NotificationTypeInitialState:
		return "initial_state"
	case NotificationTypeStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Notification is streamed to subscribers.
type Notification struct {
	Type       NotificationType `json:"type"`
	SequenceNo uint64           `json:"sequenceNo"`
	Action     string           `json:"action,omitempty"`
	State      queue.State      `json:"state"`
	Views      queue.Views      `json:"views"`
}

// SearchRequest searches the catalog.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// SearchResponse lists matching tracks.
type SearchResponse struct {
	Tracks []track.Track `json:"tracks"`
}

// StreamURLRequest asks for a playable URL.
type StreamURLRequest struct {
	TrackID string `json:"trackId" validate:"required"`
}

// StreamURLResponse carries a playable URL.
type StreamURLResponse struct {
	URL string `json:"url"`
}
