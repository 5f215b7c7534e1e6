package library

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nostrbeat/internal/app/filter"
	"github.com/osa030/nostrbeat/internal/app/router"
	"github.com/osa030/nostrbeat/internal/domain/track"
	"github.com/osa030/nostrbeat/internal/infra/events"
	"github.com/osa030/nostrbeat/internal/infra/relay"
)

const (
	artistPK = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	fanPK    = "82341f882b6eabcd2ba7f1ef90aad961cf074af15b9ef44a09f9d2a8fbfbe6a2"
)

// memorySource answers queries from a fixed set of events.
type memorySource struct {
	mu      sync.Mutex
	events  []*nostr.Event
	err     error
	queries int
}

func (m *memorySource) Query(ctx context.Context, f nostr.Filter) ([]*nostr.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.err != nil {
		return nil, m.err
	}
	var out []*nostr.Event
	for _, e := range m.events {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	out = relay.Merge(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memorySource) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func trackEvent(d, title, url string, createdAt int64, extra ...nostr.Tag) *nostr.Event {
	tags := nostr.Tags{{"d", d}, {"title", title}}
	if url != "" {
		tags = append(tags, nostr.Tag{"url", url})
	}
	tags = append(tags, extra...)
	return &nostr.Event{
		ID:        "track-" + d,
		PubKey:    artistPK,
		Kind:      36787,
		CreatedAt: nostr.Timestamp(createdAt),
		Tags:      tags,
	}
}

func address(kind int, d string) string {
	return track.Address(kind, artistPK, d)
}

func fixture() *memorySource {
	return &memorySource{events: []*nostr.Event{
		{
			ID: "profile", PubKey: artistPK, Kind: 0, CreatedAt: 1,
			Content: `{"name":"band","display_name":"The Band"}`,
		},
		{
			ID: "release-album", PubKey: artistPK, Kind: 34139, CreatedAt: 100,
			Tags: nostr.Tags{
				{"d", "album"},
				{"title", "Album"},
				{"a", address(36787, "one")},
				{"a", address(36787, "two")},
				{"a", address(36787, "three")},
				{"a", address(36787, "missing")},
			},
		},
		trackEvent("one", "One", "https://cdn.example.com/one.mp3", 10),
		trackEvent("two", "Two", "", 20),
		trackEvent("three", "Three", "https://cdn.example.com/three.mp3", 30, nostr.Tag{"explicit", "true"}),
		{ID: "note-1", PubKey: artistPK, Kind: 1, CreatedAt: 5, Content: "new album out"},
	}}
}

func newLibrary(src Querier, opts ...Option) *Library {
	return New(src, events.DefaultKinds(), opts...)
}

func ids(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = events.Identifier(t.ID)
	}
	return out
}

func TestLibrary_Release(t *testing.T) {
	l := newLibrary(fixture())

	r, err := l.Release(context.Background(), artistPK, "album")
	require.NoError(t, err)

	assert.Equal(t, "Album", r.Title)
	assert.Equal(t, []string{"one", "two", "three"}, ids(r.Tracks))
	for _, tr := range r.Tracks {
		assert.Equal(t, "The Band", tr.Artist)
		src, ok := tr.Source.(track.ReleaseSource)
		require.True(t, ok)
		assert.Equal(t, "album", src.ReleaseID)
	}
}

func TestLibrary_ReleaseQueue_OnlyPlayable(t *testing.T) {
	l := newLibrary(fixture())

	q, err := l.ReleaseQueue(context.Background(), artistPK, "album")
	require.NoError(t, err)

	assert.Equal(t, "Album", q.Label)
	assert.Equal(t, track.SourceKindRelease, q.Origin)
	assert.Equal(t, []string{"one", "three"}, ids(q.Tracks))
	require.Len(t, q.Rejected, 1)
	assert.Equal(t, "not_playable", q.Rejected[0].Code)
}

func TestLibrary_ReleaseQueue_Filters(t *testing.T) {
	chain, err := filter.Build(map[string]filter.Settings{
		"explicit_filter": {Enabled: true},
	})
	require.NoError(t, err)
	l := newLibrary(fixture(), WithFilters(chain))

	q, err := l.ReleaseQueue(context.Background(), artistPK, "album")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, ids(q.Tracks))
	assert.Len(t, q.Rejected, 2)
}

func TestLibrary_ReleaseQueue_NothingPlayable(t *testing.T) {
	src := fixture()
	src.events = append(src.events, &nostr.Event{
		ID: "release-silent", PubKey: artistPK, Kind: 34139, CreatedAt: 100,
		Tags: nostr.Tags{{"d", "silent"}, {"a", address(36787, "two")}},
	})
	l := newLibrary(src)

	_, err := l.ReleaseQueue(context.Background(), artistPK, "silent")
	assert.ErrorIs(t, err, ErrNothingPlayable)
}

func TestLibrary_TrackQueue(t *testing.T) {
	l := newLibrary(fixture())
	ctx := context.Background()

	q, err := l.TrackQueue(ctx, artistPK, "one")
	require.NoError(t, err)
	assert.Equal(t, "One", q.Label)
	assert.Equal(t, track.SourceKindStandalone, q.Origin)
	assert.Equal(t, []string{"one"}, ids(q.Tracks))

	// A single track is queued even without audio so the player reports it
	q, err = l.TrackQueue(ctx, artistPK, "two")
	require.NoError(t, err)
	assert.False(t, q.Tracks[0].IsPlayable())
}

func TestLibrary_ProfileQueue(t *testing.T) {
	l := newLibrary(fixture())

	q, err := l.ProfileQueue(context.Background(), artistPK)
	require.NoError(t, err)
	assert.Equal(t, "The Band", q.Label)
	assert.Equal(t, track.SourceKindProfile, q.Origin)
	// Newest first
	assert.Equal(t, []string{"three", "one"}, ids(q.Tracks))
	assert.Equal(t, track.ProfileSource{Pubkey: artistPK}, q.Tracks[0].Source)
}

func TestLibrary_Errors(t *testing.T) {
	ctx := context.Background()

	l := newLibrary(fixture())
	_, err := l.Release(ctx, artistPK, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Track(ctx, artistPK, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	down := errors.New("relays down")
	l = newLibrary(&memorySource{err: down})
	_, err = l.ReleaseQueue(ctx, artistPK, "album")
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLibrary_Load(t *testing.T) {
	l := newLibrary(fixture())
	ctx := context.Background()

	npub, err := nip19.EncodePublicKey(artistPK)
	require.NoError(t, err)
	page, err := l.Load(ctx, l.Router().Resolve(npub))
	require.NoError(t, err)
	assert.Equal(t, "The Band", page.Profile.BestName())
	assert.Len(t, page.Tracks, 3)

	page, err = l.Load(ctx, router.Route{Page: router.PageNote, EventID: "note-1"})
	require.NoError(t, err)
	assert.Equal(t, "new album out", page.Event.Content)

	_, err = l.Load(ctx, l.Router().Resolve("garbage"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLibrary_Engagement(t *testing.T) {
	target := address(34139, "album")
	zapRequest, err := json.Marshal(nostr.Event{
		PubKey:  fanPK,
		Kind:    9734,
		Content: "great record",
		Tags:    nostr.Tags{{"amount", "21000"}},
	})
	require.NoError(t, err)

	src := &memorySource{events: []*nostr.Event{
		{ID: "r1", PubKey: fanPK, Kind: 7, CreatedAt: 1, Content: "+", Tags: nostr.Tags{{"a", target}}},
		{ID: "r2", PubKey: artistPK, Kind: 7, CreatedAt: 2, Content: "", Tags: nostr.Tags{{"a", target}}},
		{ID: "r3", PubKey: fanPK, Kind: 7, CreatedAt: 3, Content: "🔥", Tags: nostr.Tags{{"a", target}}},
		{ID: "r4", PubKey: fanPK, Kind: 7, CreatedAt: 3, Content: "+", Tags: nostr.Tags{{"a", address(34139, "other")}}},
		{ID: "z1", Kind: 9735, CreatedAt: 4, Tags: nostr.Tags{{"a", target}, {"p", artistPK}, {"description", string(zapRequest)}}},
		{ID: "z2", Kind: 9735, CreatedAt: 5, Tags: nostr.Tags{{"a", target}, {"p", artistPK}, {"bolt11", "lnbc10u1pvjluez"}}},
		{ID: "c2", PubKey: artistPK, Kind: 1111, CreatedAt: 7, Content: "thanks!", Tags: nostr.Tags{{"A", target}, {"e", "c1"}}},
		{ID: "c1", PubKey: fanPK, Kind: 1111, CreatedAt: 6, Content: "love it", Tags: nostr.Tags{{"A", target}, {"a", target}}},
	}}
	l := newLibrary(src)

	e, err := l.Engagement(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, 2, e.Likes)
	assert.Equal(t, map[string]int{"+": 2, "🔥": 1}, e.Reactions)
	assert.Equal(t, 2, e.ZapCount)
	assert.Equal(t, int64(21000+1000000), e.ZapTotalMsats)
	assert.Equal(t, int64(1021), e.ZapTotalSats())
	require.Len(t, e.Comments, 2)
	assert.Equal(t, "love it", e.Comments[0].Content)
	assert.Equal(t, "thanks!", e.Comments[1].Content)
}

func TestLibrary_Engagement_ZapTotalStaysInRange(t *testing.T) {
	target := address(34139, "album")
	zapRequest, err := json.Marshal(nostr.Event{
		PubKey: fanPK,
		Kind:   9734,
		Tags:   nostr.Tags{{"amount", strconv.FormatInt(math.MaxInt64-5, 10)}},
	})
	require.NoError(t, err)

	src := &memorySource{events: []*nostr.Event{
		{ID: "z1", Kind: 9735, CreatedAt: 4, Tags: nostr.Tags{{"a", target}, {"p", artistPK}, {"description", string(zapRequest)}}},
		{ID: "z2", Kind: 9735, CreatedAt: 5, Tags: nostr.Tags{{"a", target}, {"p", artistPK}, {"description", string(zapRequest)}}},
		{ID: "z3", Kind: 9735, CreatedAt: 6, Tags: nostr.Tags{{"a", target}, {"p", artistPK}, {"bolt11", "lnbc100000000000m1qqqq"}}},
	}}

	e, err := newLibrary(src).Engagement(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, e.ZapCount)
	assert.Equal(t, int64(math.MaxInt64-5), e.ZapTotalMsats)
}

func TestLibrary_Engagement_RelayError(t *testing.T) {
	l := newLibrary(&memorySource{err: errors.New("timeout")})
	_, err := l.Engagement(context.Background(), "event-id")
	assert.Error(t, err)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
