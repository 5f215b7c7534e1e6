package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// PlayerClient is a client for the PlayerService.
type PlayerClient struct {
	getState       *connect.Client[GetStateRequest, StateResponse]
	subscribeState *connect.Client[SubscribeStateRequest, StateUpdate]
	resolve        *connect.Client[ResolveRequest, ResolveResponse]
	engagement     *connect.Client[EngagementRequest, EngagementResponse]
}

// NewPlayerClient creates a PlayerService client for the server at baseURL.
func NewPlayerClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &PlayerClient{
		getState:       connect.NewClient[GetStateRequest, StateResponse](httpClient, baseURL+PlayerServiceGetStateProcedure, opts...),
		subscribeState: connect.NewClient[SubscribeStateRequest, StateUpdate](httpClient, baseURL+PlayerServiceSubscribeStateProcedure, opts...),
		resolve:        connect.NewClient[ResolveRequest, ResolveResponse](httpClient, baseURL+PlayerServiceResolveProcedure, opts...),
		engagement:     connect.NewClient[EngagementRequest, EngagementResponse](httpClient, baseURL+PlayerServiceEngagementProcedure, opts...),
	}
}

// GetState calls PlayerService.GetState.
func (c *PlayerClient) GetState(ctx context.Context) (*StateResponse, error) {
	resp, err := c.getState.CallUnary(ctx, connect.NewRequest(&GetStateRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// SubscribeState calls PlayerService.SubscribeState.
func (c *PlayerClient) SubscribeState(ctx context.Context) (*connect.ServerStreamForClient[StateUpdate], error) {
	return c.subscribeState.CallServerStream(ctx, connect.NewRequest(&SubscribeStateRequest{}))
}

// Resolve calls PlayerService.Resolve.
func (c *PlayerClient) Resolve(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error) {
	resp, err := c.resolve.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Engagement calls PlayerService.Engagement.
func (c *PlayerClient) Engagement(ctx context.Context, target string) (*EngagementResponse, error) {
	resp, err := c.engagement.CallUnary(ctx, connect.NewRequest(&EngagementRequest{Target: target}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ControlClient is a client for the ControlService.
type ControlClient struct {
	playRoute       *connect.Client[PlayRouteRequest, PlayRouteResponse]
	playTrack       *connect.Client[PlayTrackRequest, StateResponse]
	play            *connect.Client[ControlRequest, StateResponse]
	pause           *connect.Client[ControlRequest, StateResponse]
	stop            *connect.Client[ControlRequest, StateResponse]
	seek            *connect.Client[SeekRequest, StateResponse]
	next            *connect.Client[ControlRequest, StateResponse]
	previous        *connect.Client[ControlRequest, StateResponse]
	setVolume       *connect.Client[SetVolumeRequest, StateResponse]
	setPlaybackRate *connect.Client[SetPlaybackRateRequest, StateResponse]
}

// NewControlClient creates a ControlService client for the server at baseURL.
func NewControlClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ControlClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &ControlClient{
		playRoute:       connect.NewClient[PlayRouteRequest, PlayRouteResponse](httpClient, baseURL+ControlServicePlayRouteProcedure, opts...),
		playTrack:       connect.NewClient[PlayTrackRequest, StateResponse](httpClient, baseURL+ControlServicePlayTrackProcedure, opts...),
		play:            connect.NewClient[ControlRequest, StateResponse](httpClient, baseURL+ControlServicePlayProcedure, opts...),
		pause:           connect.NewClient[ControlRequest, StateResponse](httpClient, baseURL+ControlServicePauseProcedure, opts...),
		stop:            connect.NewClient[ControlRequest, StateResponse](httpClient, baseURL+ControlServiceStopProcedure, opts...),
		seek:            connect.NewClient[SeekRequest, StateResponse](httpClient, baseURL+ControlServiceSeekProcedure, opts...),
		next:            connect.NewClient[ControlRequest, StateResponse](httpClient, baseURL+ControlServiceNextProcedure, opts...),
		previous:        connect.NewClient[ControlRequest, StateResponse](httpClient, baseURL+ControlServicePreviousProcedure, opts...),
		setVolume:       connect.NewClient[SetVolumeRequest, StateResponse](httpClient, baseURL+ControlServiceSetVolumeProcedure, opts...),
		setPlaybackRate: connect.NewClient[SetPlaybackRateRequest, StateResponse](httpClient, baseURL+ControlServiceSetPlaybackRateProcedure, opts...),
	}
}

func callState[Req any](ctx context.Context, c *connect.Client[Req, StateResponse], req *Req) (*StateResponse, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// PlayRoute calls ControlService.PlayRoute.
func (c *ControlClient) PlayRoute(ctx context.Context, identifier string, index int) (*PlayRouteResponse, error) {
	resp, err := c.playRoute.CallUnary(ctx, connect.NewRequest(&PlayRouteRequest{Identifier: identifier, Index: index}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// PlayTrack calls ControlService.PlayTrack.
func (c *ControlClient) PlayTrack(ctx context.Context, req *PlayTrackRequest) (*StateResponse, error) {
	return callState(ctx, c.playTrack, req)
}

// Play calls ControlService.Play.
func (c *ControlClient) Play(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.play, &ControlRequest{})
}

// Pause calls ControlService.Pause.
func (c *ControlClient) Pause(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.pause, &ControlRequest{})
}

// Stop calls ControlService.Stop.
func (c *ControlClient) Stop(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.stop, &ControlRequest{})
}

// Seek calls ControlService.Seek.
func (c *ControlClient) Seek(ctx context.Context, seconds float64) (*StateResponse, error) {
	return callState(ctx, c.seek, &SeekRequest{Seconds: seconds})
}

// Next calls ControlService.Next.
func (c *ControlClient) Next(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.next, &ControlRequest{})
}

// Previous calls ControlService.Previous.
func (c *ControlClient) Previous(ctx context.Context) (*StateResponse, error) {
	return callState(ctx, c.previous, &ControlRequest{})
}

// SetVolume calls ControlService.SetVolume.
func (c *ControlClient) SetVolume(ctx context.Context, volume float64) (*StateResponse, error) {
	return callState(ctx, c.setVolume, &SetVolumeRequest{Volume: volume})
}

// SetPlaybackRate calls ControlService.SetPlaybackRate.
func (c *ControlClient) SetPlaybackRate(ctx context.Context, rate float64) (*StateResponse, error) {
	return callState(ctx, c.setPlaybackRate, &SetPlaybackRateRequest{Rate: rate})
}
