package connect

import (
	"time"

	"github.com/osa030/nostrbeat/internal/app/library"
	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/app/playerview"
	"github.com/osa030/nostrbeat/internal/app/router"
	"github.com/osa030/nostrbeat/internal/domain/track"
)

// SourceMessage describes where a track came from.
type SourceMessage struct {
	Kind      string `json:"kind"`
	Pubkey    string `json:"pubkey,omitempty"`
	ReleaseID string `json:"release_id,omitempty"`
	EventKind int    `json:"event_kind,omitempty"`
	Title     string `json:"title,omitempty"`
}

// TrackMessage is a track on the wire.
type TrackMessage struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Artist          string        `json:"artist"`
	AudioURL        string        `json:"audio_url,omitempty"`
	DurationSeconds float64       `json:"duration_seconds,omitempty"`
	ImageURL        string        `json:"image_url,omitempty"`
	Explicit        bool          `json:"explicit,omitempty"`
	Language        string        `json:"language,omitempty"`
	Pubkey          string        `json:"pubkey,omitempty"`
	Source          SourceMessage `json:"source"`
	Origin          string        `json:"origin,omitempty"` // NIP-19 identifier of the source page
}

// StateMessage is a playback snapshot on the wire.
type StateMessage struct {
	State        string         `json:"state"`
	Label        string         `json:"label,omitempty"`
	Tracks       []TrackMessage `json:"tracks,omitempty"`
	Index        int            `json:"index"`
	IsPlaying    bool           `json:"is_playing"`
	IsLoading    bool           `json:"is_loading"`
	Error        string         `json:"error,omitempty"`
	CurrentTime  float64        `json:"current_time"`
	Duration     float64        `json:"duration"`
	Volume       float64        `json:"volume"`
	PlaybackRate float64        `json:"playback_rate"`
	HasNext      bool           `json:"has_next"`
	HasPrevious  bool           `json:"has_previous"`
}

// Requests and responses.
type (
	GetStateRequest struct{}

	StateResponse struct {
		State StateMessage `json:"state"`
	}

	SubscribeStateRequest struct{}

	StateUpdate struct {
		SequenceNo uint64       `json:"sequence_no"`
		Event      string       `json:"event"`
		State      StateMessage `json:"state"`
		SentAt     time.Time    `json:"sent_at"`
	}

	ResolveRequest struct {
		Identifier string `json:"identifier" validate:"required"`
		Load       bool   `json:"load"` // Also fetch the page data
	}

	ResolveResponse struct {
		Page        string         `json:"page"`
		Identifier  string         `json:"identifier"`
		Pubkey      string         `json:"pubkey,omitempty"`
		EventID     string         `json:"event_id,omitempty"`
		Kind        int            `json:"kind,omitempty"`
		D           string         `json:"d,omitempty"`
		Address     string         `json:"address,omitempty"`
		Relays      []string       `json:"relays,omitempty"`
		Reason      string         `json:"reason,omitempty"`
		Title       string         `json:"title,omitempty"`
		Description string         `json:"description,omitempty"`
		ImageURL    string         `json:"image_url,omitempty"`
		Content     string         `json:"content,omitempty"`
		Tracks      []TrackMessage `json:"tracks,omitempty"`
	}

	EngagementRequest struct {
		Target string `json:"target" validate:"required"` // Event address or id
	}

	CommentMessage struct {
		ID        string `json:"id"`
		Pubkey    string `json:"pubkey"`
		Parent    string `json:"parent"`
		Content   string `json:"content"`
		CreatedAt int64  `json:"created_at"`
	}

	EngagementResponse struct {
		Target        string           `json:"target"`
		Likes         int              `json:"likes"`
		Reactions     map[string]int   `json:"reactions"`
		ZapCount      int              `json:"zap_count"`
		ZapTotalMsats int64            `json:"zap_total_msats"`
		Comments      []CommentMessage `json:"comments"`
	}

	PlayRouteRequest struct {
		Identifier string `json:"identifier" validate:"required"`
		Index      int    `json:"index" validate:"gte=0"` // Position on the page, counting tracks the queue skips
	}

	RejectionMessage struct {
		TrackID string `json:"track_id"`
		Title   string `json:"title"`
		Code    string `json:"code"`
	}

	PlayRouteResponse struct {
		Page     string             `json:"page"`
		Label    string             `json:"label"`
		Queued   int                `json:"queued"`
		Rejected []RejectionMessage `json:"rejected,omitempty"`
		State    StateMessage       `json:"state"`
	}

	PlayTrackRequest struct {
		URL    string `json:"url" validate:"required,url"`
		Title  string `json:"title"`
		Artist string `json:"artist"`
	}

	ControlRequest struct{}

	SeekRequest struct {
		Seconds float64 `json:"seconds"`
	}

	SetVolumeRequest struct {
		Volume float64 `json:"volume"`
	}

	SetPlaybackRateRequest struct {
		Rate float64 `json:"rate"`
	}
)

// NewTrackMessage converts a track.
func NewTrackMessage(t track.Track) TrackMessage {
	m := TrackMessage{
		ID:              t.ID,
		Title:           t.Title,
		Artist:          t.Artist,
		AudioURL:        t.AudioURL,
		DurationSeconds: t.Duration.Seconds(),
		ImageURL:        t.ImageURL,
		Explicit:        t.Explicit,
		Language:        t.Language,
		Pubkey:          t.Pubkey,
		Source:          SourceMessage{Kind: string(track.SourceKindStandalone)},
		Origin:          playerview.OriginOf(t),
	}
	switch s := t.Source.(type) {
	case track.ProfileSource:
		m.Source = SourceMessage{Kind: string(s.Kind()), Pubkey: s.Pubkey}
	case track.ReleaseSource:
		m.Source = SourceMessage{
			Kind:      string(s.Kind()),
			Pubkey:    s.Pubkey,
			ReleaseID: s.ReleaseID,
			EventKind: s.EventKind,
			Title:     s.Title,
		}
	}
	return m
}

// Track converts the message back into a track.
func (m TrackMessage) Track() track.Track {
	t := track.Track{
		ID:       m.ID,
		Title:    m.Title,
		Artist:   m.Artist,
		AudioURL: m.AudioURL,
		Duration: time.Duration(m.DurationSeconds * float64(time.Second)),
		ImageURL: m.ImageURL,
		Explicit: m.Explicit,
		Language: m.Language,
		Pubkey:   m.Pubkey,
		Source:   track.StandaloneSource{},
	}
	switch track.SourceKind(m.Source.Kind) {
	case track.SourceKindProfile:
		t.Source = track.ProfileSource{Pubkey: m.Source.Pubkey}
	case track.SourceKindRelease:
		t.Source = track.ReleaseSource{
			Pubkey:    m.Source.Pubkey,
			ReleaseID: m.Source.ReleaseID,
			EventKind: m.Source.EventKind,
			Title:     m.Source.Title,
		}
	}
	return t
}

func newTrackMessages(tracks []track.Track) []TrackMessage {
	if len(tracks) == 0 {
		return nil
	}
	out := make([]TrackMessage, len(tracks))
	for i, t := range tracks {
		out[i] = NewTrackMessage(t)
	}
	return out
}

// NewStateMessage converts a snapshot.
func NewStateMessage(s playback.Snapshot) StateMessage {
	return StateMessage{
		State:        s.State.String(),
		Label:        s.Label,
		Tracks:       newTrackMessages(s.Tracks),
		Index:        s.Index,
		IsPlaying:    s.IsPlaying,
		IsLoading:    s.IsLoading,
		Error:        s.Error,
		CurrentTime:  s.CurrentTime,
		Duration:     s.Duration,
		Volume:       s.Volume,
		PlaybackRate: s.PlaybackRate,
		HasNext:      s.HasNext,
		HasPrevious:  s.HasPrevious,
	}
}

// Snapshot converts the message back into a snapshot, e.g. for rendering.
func (m StateMessage) Snapshot() playback.Snapshot {
	state, _ := playback.ParseState(m.State)
	s := playback.Snapshot{
		State:        state,
		Label:        m.Label,
		Index:        m.Index,
		IsPlaying:    m.IsPlaying,
		IsLoading:    m.IsLoading,
		Error:        m.Error,
		CurrentTime:  m.CurrentTime,
		Duration:     m.Duration,
		Volume:       m.Volume,
		PlaybackRate: m.PlaybackRate,
		HasNext:      m.HasNext,
		HasPrevious:  m.HasPrevious,
	}
	s.Tracks = make([]track.Track, len(m.Tracks))
	for i, t := range m.Tracks {
		s.Tracks[i] = t.Track()
	}
	if m.Index >= 0 && m.Index < len(s.Tracks) {
		cur := s.Tracks[m.Index]
		s.CurrentTrack = &cur
	}
	return s
}

func newResolveResponse(route router.Route) *ResolveResponse {
	return &ResolveResponse{
		Page:       string(route.Page),
		Identifier: route.Identifier,
		Pubkey:     route.Pubkey,
		EventID:    route.EventID,
		Kind:       route.Kind,
		D:          route.D,
		Address:    route.Address(),
		Relays:     route.Relays,
		Reason:     route.Reason,
	}
}

func (r *ResolveResponse) fill(page *library.Page) {
	switch {
	case page.Release != nil:
		r.Title = page.Release.Title
		r.Description = page.Release.Description
		r.ImageURL = page.Release.ImageURL
	case page.Track != nil:
		r.Title = page.Track.DisplayTitle()
		r.ImageURL = page.Track.ImageURL
		r.Tracks = []TrackMessage{NewTrackMessage(*page.Track)}
	case page.Profile != nil:
		r.Title = page.Profile.BestName()
		r.Description = page.Profile.About
		r.ImageURL = page.Profile.Picture
	case page.Event != nil:
		r.Content = page.Event.Content
	}
	if len(page.Tracks) > 0 {
		r.Tracks = newTrackMessages(page.Tracks)
	}
}

func newEngagementResponse(e library.Engagement) *EngagementResponse {
	resp := &EngagementResponse{
		Target:        e.Target,
		Likes:         e.Likes,
		Reactions:     e.Reactions,
		ZapCount:      e.ZapCount,
		ZapTotalMsats: e.ZapTotalMsats,
		Comments:      make([]CommentMessage, 0, len(e.Comments)),
	}
	for _, c := range e.Comments {
		resp.Comments = append(resp.Comments, CommentMessage{
			ID:        c.ID,
			Pubkey:    c.Pubkey,
			Parent:    c.Parent,
			Content:   c.Content,
			CreatedAt: c.CreatedAt.Unix(),
		})
	}
	return resp
}
