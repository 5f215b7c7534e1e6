package connect

import (
	"context"

	"connectrpc.com/connect"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/library"
	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/domain/track"
)

// ControlService implements the transport controls.
type ControlService struct {
	player  *playback.Controller
	library *library.Library
}

// NewControlService creates a new ControlService.
func NewControlService(player *playback.Controller, lib *library.Library) *ControlService {
	return &ControlService{
		player:  player,
		library: lib,
	}
}

func (s *ControlService) state() *connect.Response[StateResponse] {
	return connect.NewResponse(&StateResponse{State: NewStateMessage(s.player.Snapshot())})
}

// PlayRoute plays the page behind a NIP-19 identifier.
func (s *ControlService) PlayRoute(
	ctx context.Context,
	req *connect.Request[PlayRouteRequest],
) (*connect.Response[PlayRouteResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	route, q, err := s.library.PlayRoute(ctx, req.Msg.Identifier, req.Msg.Index)
	if err != nil {
		zlog.Info().Msgf("PlayRoute failed: identifier=%s error=%v", req.Msg.Identifier, err)
		return nil, toConnectError(err)
	}

	resp := &PlayRouteResponse{
		Page:   string(route.Page),
		Label:  q.Label,
		Queued: len(q.Tracks),
		State:  NewStateMessage(s.player.Snapshot()),
	}
	for _, r := range q.Rejected {
		resp.Rejected = append(resp.Rejected, RejectionMessage{
			TrackID: r.Track.ID,
			Title:   r.Track.DisplayTitle(),
			Code:    r.Code,
		})
	}
	return connect.NewResponse(resp), nil
}

// PlayTrack plays a bare audio URL as a one-track queue.
func (s *ControlService) PlayTrack(
	ctx context.Context,
	req *connect.Request[PlayTrackRequest],
) (*connect.Response[StateResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	s.player.PlayTrack(track.NewAdHoc(req.Msg.Title, req.Msg.Artist, req.Msg.URL))
	return s.state(), nil
}

// Play starts, resumes or retries the current track.
func (s *ControlService) Play(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[StateResponse], error) {
	s.player.Play()
	return s.state(), nil
}

// Pause pauses playback.
func (s *ControlService) Pause(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[StateResponse], error) {
	s.player.Pause()
	return s.state(), nil
}

// Stop clears the queue.
func (s *ControlService) Stop(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[StateResponse], error) {
	s.player.Stop()
	return s.state(), nil
}

// Seek moves the playback position.
func (s *ControlService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[StateResponse], error) {
	if err := s.player.SeekTo(req.Msg.Seconds); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// Next skips to the next track.
func (s *ControlService) Next(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[StateResponse], error) {
	s.player.NextTrack()
	return s.state(), nil
}

// Previous returns to the previous track.
func (s *ControlService) Previous(
	ctx context.Context,
	req *connect.Request[ControlRequest],
) (*connect.Response[StateResponse], error) {
	s.player.PreviousTrack()
	return s.state(), nil
}

// SetVolume sets the volume.
func (s *ControlService) SetVolume(
	ctx context.Context,
	req *connect.Request[SetVolumeRequest],
) (*connect.Response[StateResponse], error) {
	if err := s.player.SetVolume(req.Msg.Volume); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// SetPlaybackRate sets the playback rate.
func (s *ControlService) SetPlaybackRate(
	ctx context.Context,
	req *connect.Request[SetPlaybackRateRequest],
) (*connect.Response[StateResponse], error) {
	if err := s.player.SetPlaybackRate(req.Msg.Rate); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}
