package connect

const (
	// PlayerServiceName is the fully-qualified name of the PlayerService.
	PlayerServiceName = "nostrbeat.v1.PlayerService"
	// ControlServiceName is the fully-qualified name of the ControlService.
	ControlServiceName = "nostrbeat.v1.ControlService"
)

// Procedure paths.
const (
	PlayerServiceGetStateProcedure       = "/nostrbeat.v1.PlayerService/GetState"
	PlayerServiceSubscribeStateProcedure = "/nostrbeat.v1.PlayerService/SubscribeState"
	PlayerServiceResolveProcedure        = "/nostrbeat.v1.PlayerService/Resolve"
	PlayerServiceEngagementProcedure     = "/nostrbeat.v1.PlayerService/Engagement"

	ControlServicePlayRouteProcedure       = "/nostrbeat.v1.ControlService/PlayRoute"
	ControlServicePlayTrackProcedure       = "/nostrbeat.v1.ControlService/PlayTrack"
	ControlServicePlayProcedure            = "/nostrbeat.v1.ControlService/Play"
	ControlServicePauseProcedure           = "/nostrbeat.v1.ControlService/Pause"
	ControlServiceStopProcedure            = "/nostrbeat.v1.ControlService/Stop"
	ControlServiceSeekProcedure            = "/nostrbeat.v1.ControlService/Seek"
	ControlServiceNextProcedure            = "/nostrbeat.v1.ControlService/Next"
	ControlServicePreviousProcedure        = "/nostrbeat.v1.ControlService/Previous"
	ControlServiceSetVolumeProcedure       = "/nostrbeat.v1.ControlService/SetVolume"
	ControlServiceSetPlaybackRateProcedure = "/nostrbeat.v1.ControlService/SetPlaybackRate"
)
