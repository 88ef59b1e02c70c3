package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/osa030/hibiki/internal/domain/track"
	"github.com/osa030/hibiki/internal/infra/dab"
)

var validate = validator.New()

// validateRequest validates msg against its struct tags.
func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, errors.Wrap(err, "invalid request"))
	}
	return nil
}

// validateTracks requires every track to carry an ID.
func validateTracks(tracks ...track.Track) error {
	for i := range tracks {
		if tracks[i].IsZero() {
			return connect.NewError(connect.CodeInvalidArgument, errors.Newf("track %d has an empty id", i))
		}
	}
	return nil
}

// toConnectError maps an application error to a Connect error.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, dab.ErrNotStreamable):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeUnavailable, err)
	}
}
