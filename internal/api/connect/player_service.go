package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/library"
	"github.com/osa030/nostrbeat/internal/app/notification"
	"github.com/osa030/nostrbeat/internal/app/playback"
)

// PlayerService implements the read side: state, subscriptions and page lookups.
type PlayerService struct {
	player  *playback.Controller
	library *library.Library
	notify  *notification.Manager
	done    <-chan struct{}
}

// NewPlayerService creates a new PlayerService. Streams end when done is closed.
func NewPlayerService(player *playback.Controller, lib *library.Library, notify *notification.Manager, done <-chan struct{}) *PlayerService {
	return &PlayerService{
		player:  player,
		library: lib,
		notify:  notify,
		done:    done,
	}
}

// GetState returns the current playback state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[GetStateRequest],
) (*connect.Response[StateResponse], error) {
	return connect.NewResponse(&StateResponse{State: NewStateMessage(s.player.Snapshot())}), nil
}

// SubscribeState streams the current state followed by every change.
func (s *PlayerService) SubscribeState(
	ctx context.Context,
	req *connect.Request[SubscribeStateRequest],
	stream *connect.ServerStream[StateUpdate],
) error {
	initial := &notification.Notification{
		SequenceNo: s.notify.NextSequenceNo(),
		Event:      "initial_state",
		Snapshot:   s.player.Snapshot(),
	}
	if err := stream.Send(newStateUpdate(initial)); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notify.Subscribe(adapter)
	zlog.Debug().Msgf("State subscriber joined: id=%s", subscriptionID)

	// Wait for context cancellation or server shutdown
	select {
	case <-ctx.Done():
	case <-s.done:
	}

	s.notify.Unsubscribe(subscriptionID)
	zlog.Debug().Msgf("State subscriber left: id=%s", subscriptionID)
	return nil
}

// Resolve maps an identifier to a page and optionally loads it.
func (s *PlayerService) Resolve(
	ctx context.Context,
	req *connect.Request[ResolveRequest],
) (*connect.Response[ResolveResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	route := s.library.Router().Resolve(req.Msg.Identifier)
	resp := newResolveResponse(route)
	if !req.Msg.Load || !route.Found() {
		return connect.NewResponse(resp), nil
	}

	page, err := s.library.Load(ctx, route)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp.fill(page)
	return connect.NewResponse(resp), nil
}

// Engagement summarises reactions, zaps and comments for a target.
func (s *PlayerService) Engagement(
	ctx context.Context,
	req *connect.Request[EngagementRequest],
) (*connect.Response[EngagementResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	e, err := s.library.Engagement(ctx, req.Msg.Target)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(newEngagementResponse(e)), nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[StateUpdate]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	return a.stream.Send(newStateUpdate(n))
}

func newStateUpdate(n *notification.Notification) *StateUpdate {
	return &StateUpdate{
		SequenceNo: n.SequenceNo,
		Event:      n.Event,
		State:      NewStateMessage(n.Snapshot),
		SentAt:     n.SentAt,
	}
}
