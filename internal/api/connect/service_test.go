package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nostrbeat/internal/app/library"
	"github.com/osa030/nostrbeat/internal/app/notification"
	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/app/playerview"
	"github.com/osa030/nostrbeat/internal/domain/track"
	"github.com/osa030/nostrbeat/internal/infra/events"
)

const (
	artistPK = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	token    = "secret"
)

type memorySource struct {
	events []*nostr.Event
}

func (m *memorySource) Query(ctx context.Context, f nostr.Filter) ([]*nostr.Event, error) {
	var out []*nostr.Event
	for _, e := range m.events {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type instantEngine struct{}

func (instantEngine) Load(ctx context.Context, url string) (playback.Media, error) {
	return &silentMedia{}, nil
}

type silentMedia struct {
	mu       sync.Mutex
	position time.Duration
}

func (m *silentMedia) Duration() time.Duration { return 2 * time.Minute }

func (m *silentMedia) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *silentMedia) Play(onEnded func()) error { return nil }
func (m *silentMedia) Pause()                    {}

func (m *silentMedia) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
	return nil
}

func (m *silentMedia) SetVolume(v float64) {}
func (m *silentMedia) SetRate(r float64)   {}
func (m *silentMedia) Close() error        { return nil }

func fixtureEvents() []*nostr.Event {
	addr := func(d string) string { return track.Address(36787, artistPK, d) }
	return []*nostr.Event{
		{ID: "p", PubKey: artistPK, Kind: 0, CreatedAt: 1, Content: `{"name":"The Band"}`},
		{
			ID: "rel", PubKey: artistPK, Kind: 34139, CreatedAt: 10,
			Tags: nostr.Tags{{"d", "album"}, {"title", "Album"}, {"a", addr("one")}, {"a", addr("two")}, {"a", addr("three")}},
		},
		{ID: "t1", PubKey: artistPK, Kind: 36787, CreatedAt: 3, Tags: nostr.Tags{{"d", "one"}, {"title", "One"}, {"url", "https://cdn.example.com/1.mp3"}}},
		{ID: "t2", PubKey: artistPK, Kind: 36787, CreatedAt: 2, Tags: nostr.Tags{{"d", "two"}, {"title", "Two"}}},
		{ID: "t3", PubKey: artistPK, Kind: 36787, CreatedAt: 1, Tags: nostr.Tags{{"d", "three"}, {"title", "Three"}, {"url", "https://cdn.example.com/3.mp3"}}},
		{ID: "like", PubKey: artistPK, Kind: 7, CreatedAt: 5, Content: "+", Tags: nostr.Tags{{"a", track.Address(34139, artistPK, "album")}}},
	}
}

type testServer struct {
	player  *PlayerClient
	control *ControlClient
	ctrl    *playback.Controller
	notify  *notification.Manager
	url     string
	client  *http.Client
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	ctrl := playback.NewController(instantEngine{}, playback.Config{DefaultVolume: 0.5})
	lib := library.New(&memorySource{events: fixtureEvents()}, events.DefaultKinds(), library.WithPlayer(ctrl))
	notify := notification.NewManager()
	done := make(chan struct{})

	go notify.Forward(context.Background(), ctrl.Events(), ctrl.Snapshot, 0, nil)

	mux := http.NewServeMux()
	mux.Handle(NewPlayerServiceHandler(NewPlayerService(ctrl, lib, notify, done)))
	mux.Handle(NewControlServiceHandler(
		NewControlService(ctrl, lib),
		connect.WithInterceptors(NewControlAuthInterceptor(token)),
	))

	srv := httptest.NewUnstartedServer(mux)
	srv.EnableHTTP2 = true
	srv.StartTLS()

	t.Cleanup(func() {
		close(done)
		srv.Close()
		ctrl.Close()
	})

	return &testServer{
		player:  NewPlayerClient(srv.Client(), srv.URL),
		control: NewControlClient(srv.Client(), srv.URL, WithControlToken(token)),
		ctrl:    ctrl,
		notify:  notify,
		url:     srv.URL,
		client:  srv.Client(),
	}
}

func releaseNaddr(t *testing.T) string {
	t.Helper()
	naddr, err := nip19.EncodeEntity(artistPK, 34139, "album", nil)
	require.NoError(t, err)
	return naddr
}

func TestPlayerService_GetStateEmpty(t *testing.T) {
	ts := setupServer(t)

	resp, err := ts.player.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "empty", resp.State.State)
	assert.Equal(t, 0.5, resp.State.Volume)
	assert.Equal(t, 1.0, resp.State.PlaybackRate)
}

func TestControlService_RequiresToken(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	_, err := NewControlClient(ts.client, ts.url).Play(ctx)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = NewControlClient(ts.client, ts.url, WithControlToken("wrong")).Play(ctx)
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = ts.control.Play(ctx)
	assert.NoError(t, err)
}

func TestControlService_PlayRoute(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	resp, err := ts.control.PlayRoute(ctx, "nostr:"+releaseNaddr(t), 0)
	require.NoError(t, err)
	assert.Equal(t, "release", resp.Page)
	assert.Equal(t, "Album", resp.Label)
	assert.Equal(t, 2, resp.Queued)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "not_playable", resp.Rejected[0].Code)

	require.Eventually(t, func() bool {
		s, err := ts.player.GetState(ctx)
		return err == nil && s.State.IsPlaying
	}, 2*time.Second, 5*time.Millisecond)

	state, err := ts.control.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.State.Index)

	state, err = ts.control.SetVolume(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, state.State.Volume)

	_, err = ts.control.SetPlaybackRate(ctx, 0)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	state, err = ts.control.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "empty", state.State.State)
	assert.Empty(t, state.State.Tracks)
}

func TestControlService_Errors(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	_, err := ts.control.PlayRoute(ctx, "", 0)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = ts.control.PlayRoute(ctx, releaseNaddr(t), -1)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = ts.control.PlayRoute(ctx, "npub1garbage", 0)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	missing, err := nip19.EncodeEntity(artistPK, 34139, "missing", nil)
	require.NoError(t, err)
	_, err = ts.control.PlayRoute(ctx, missing, 0)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = ts.control.PlayTrack(ctx, &PlayTrackRequest{URL: "not a url"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestControlService_PlayTrack(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	_, err := ts.control.PlayTrack(ctx, &PlayTrackRequest{URL: "https://cdn.example.com/jingle.mp3", Title: "Jingle"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := ts.player.GetState(ctx)
		return err == nil && s.State.IsPlaying
	}, 2*time.Second, 5*time.Millisecond)

	s, err := ts.control.Seek(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 120.0, s.State.CurrentTime)

	s, err = ts.control.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "paused", s.State.State)
	assert.Equal(t, "Jingle", s.State.Tracks[0].Title)
	assert.Equal(t, "standalone", s.State.Tracks[0].Source.Kind)
}

func TestPlayerService_Resolve(t *testing.T) {
	ts := setupServer(t)
	ctx := context.Background()

	resp, err := ts.player.Resolve(ctx, &ResolveRequest{Identifier: releaseNaddr(t)})
	require.NoError(t, err)
	assert.Equal(t, "release", resp.Page)
	assert.Equal(t, track.Address(34139, artistPK, "album"), resp.Address)
	assert.Empty(t, resp.Title)

	resp, err = ts.player.Resolve(ctx, &ResolveRequest{Identifier: releaseNaddr(t), Load: true})
	require.NoError(t, err)
	assert.Equal(t, "Album", resp.Title)
	assert.Len(t, resp.Tracks, 3)
	assert.Equal(t, "The Band", resp.Tracks[0].Artist)

	resp, err = ts.player.Resolve(ctx, &ResolveRequest{Identifier: "nope", Load: true})
	require.NoError(t, err)
	assert.Equal(t, "not_found", resp.Page)
	assert.Equal(t, "invalid identifier", resp.Reason)
}

func TestPlayerService_Engagement(t *testing.T) {
	ts := setupServer(t)

	resp, err := ts.player.Engagement(context.Background(), track.Address(34139, artistPK, "album"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Likes)
	assert.Equal(t, map[string]int{"+": 1}, resp.Reactions)
	assert.Empty(t, resp.Comments)
}

func TestPlayerService_SubscribeState(t *testing.T) {
	ts := setupServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := ts.player.SubscribeState(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "initial state: %v", stream.Err())
	initial := stream.Msg()
	assert.Equal(t, "initial_state", initial.Event)
	assert.Equal(t, "empty", initial.State.State)

	require.Eventually(t, func() bool { return ts.notify.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = ts.control.PlayRoute(ctx, releaseNaddr(t), 0)
	require.NoError(t, err)

	last := initial.SequenceNo
	for stream.Receive() {
		update := stream.Msg()
		assert.Greater(t, update.SequenceNo, last)
		last = update.SequenceNo
		if update.State.IsPlaying {
			assert.Equal(t, "One", update.State.Tracks[update.State.Index].Title)
			return
		}
	}
	t.Fatalf("stream ended before playback started: %v", stream.Err())
}

func TestStateMessage_RendersLikeSnapshot(t *testing.T) {
	tracks := []track.Track{
		{ID: "a", Title: "A", Artist: "X", AudioURL: "https://x/a.mp3", Duration: 90 * time.Second,
			Source: track.ReleaseSource{Pubkey: artistPK, ReleaseID: "album", EventKind: 34139, Title: "Album"}},
		{ID: "b", Title: "B", Artist: "X", AudioURL: "https://x/b.mp3", Source: track.ProfileSource{Pubkey: artistPK}},
	}
	snap := playback.Snapshot{
		State: playback.StatePlaying, Label: "Album", Tracks: tracks, Index: 0, CurrentTrack: &tracks[0],
		IsPlaying: true, CurrentTime: 30, Duration: 90, Volume: 0.7, PlaybackRate: 1.5, HasNext: true,
	}

	msg := NewStateMessage(snap)
	assert.Equal(t, "release", msg.Tracks[0].Source.Kind)
	assert.NotEmpty(t, msg.Tracks[0].Origin)

	back := msg.Snapshot()
	assert.Equal(t, playerview.Render(snap), playerview.Render(back))
	assert.Equal(t, tracks[1].Source, back.Tracks[1].Source)
	assert.True(t, playback.Snapshot{}.IsEmpty())
	assert.True(t, StateMessage{State: "empty"}.Snapshot().IsEmpty())
}
