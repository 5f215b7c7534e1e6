package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/osa030/nostrbeat/internal/app/library"
	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/infra/relay"
)

var validate = validator.New()

// validateRequest checks struct tags on a request message.
func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// toConnectError maps application errors to RPC codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var code connect.Code
	switch {
	case errors.Is(err, library.ErrNotFound), errors.Is(err, relay.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, library.ErrNothingPlayable), errors.Is(err, library.ErrNotPlayablePage):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrInvalidRate), errors.Is(err, playback.ErrInvalidVolume), errors.Is(err, playback.ErrInvalidSeek):
		code = connect.CodeInvalidArgument
	case errors.Is(err, relay.ErrAllRelaysFailed), errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
