package connect

import (
	"net/http"

	"connectrpc.com/connect"
)

// NewPlayerServiceHandler builds an HTTP handler serving the PlayerService.
// It returns the path on which to mount the handler.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerServiceGetStateProcedure, connect.NewUnaryHandler(PlayerServiceGetStateProcedure, svc.GetState, opts...))
	mux.Handle(PlayerServiceSubscribeStateProcedure, connect.NewServerStreamHandler(PlayerServiceSubscribeStateProcedure, svc.SubscribeState, opts...))
	mux.Handle(PlayerServiceResolveProcedure, connect.NewUnaryHandler(PlayerServiceResolveProcedure, svc.Resolve, opts...))
	mux.Handle(PlayerServiceEngagementProcedure, connect.NewUnaryHandler(PlayerServiceEngagementProcedure, svc.Engagement, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// NewControlServiceHandler builds an HTTP handler serving the ControlService.
// It returns the path on which to mount the handler.
func NewControlServiceHandler(svc *ControlService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ControlServicePlayRouteProcedure, connect.NewUnaryHandler(ControlServicePlayRouteProcedure, svc.PlayRoute, opts...))
	mux.Handle(ControlServicePlayTrackProcedure, connect.NewUnaryHandler(ControlServicePlayTrackProcedure, svc.PlayTrack, opts...))
	mux.Handle(ControlServicePlayProcedure, connect.NewUnaryHandler(ControlServicePlayProcedure, svc.Play, opts...))
	mux.Handle(ControlServicePauseProcedure, connect.NewUnaryHandler(ControlServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(ControlServiceStopProcedure, connect.NewUnaryHandler(ControlServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(ControlServiceSeekProcedure, connect.NewUnaryHandler(ControlServiceSeekProcedure, svc.Seek, opts...))
	mux.Handle(ControlServiceNextProcedure, connect.NewUnaryHandler(ControlServiceNextProcedure, svc.Next, opts...))
	mux.Handle(ControlServicePreviousProcedure, connect.NewUnaryHandler(ControlServicePreviousProcedure, svc.Previous, opts...))
	mux.Handle(ControlServiceSetVolumeProcedure, connect.NewUnaryHandler(ControlServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(ControlServiceSetPlaybackRateProcedure, connect.NewUnaryHandler(ControlServiceSetPlaybackRateProcedure, svc.SetPlaybackRate, opts...))
	return "/" + ControlServiceName + "/", mux
}
