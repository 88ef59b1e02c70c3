package playback

import "github.com/osa030/hibiki/internal/domain/queue"

// Action identifies the store operation that produced a state.
type Action int

const (
	ActionAddTrack Action = iota
	ActionAddTracks
	ActionPlayTrack
	ActionPlayNext
	ActionRemoveTrack
	ActionNext
	ActionPrevious
	ActionReorder
	ActionToggleShuffle
	ActionToggleLoop
	ActionClear
	ActionSetCurrentIndex
	ActionSetVolume
	ActionIncreaseVolume
	ActionDecreaseVolume
	ActionToggleMute
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionAddTrack:
		return "add_track"
	case ActionAddTracks:
		return "add_tracks"
	case ActionPlayTrack:
		return "play_track"
	case ActionPlayNext:
		return "play_next"
	case ActionRemoveTrack:
		return "remove_track"
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	case ActionReorder:
		return "reorder"
	case ActionToggleShuffle:
		return "toggle_shuffle"
	case ActionToggleLoop:
		return "toggle_loop"
	case ActionClear:
		return "clear"
	case ActionSetCurrentIndex:
		return "set_current_index"
	case ActionSetVolume:
		return "set_volume"
	case ActionIncreaseVolume:
		return "increase_volume"
	case ActionDecreaseVolume:
		return "decrease_volume"
	case ActionToggleMute:
		return "toggle_mute"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after each committed action.
type Event struct {
	Action Action      // Action that produced State
	Seq    uint64      // Monotonic commit number, starting at 1
	State  queue.State // Committed state
}
