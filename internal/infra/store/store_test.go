package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const artist = "artist-pubkey"

// setupStore creates a private in-memory database with a controllable clock.
func setupStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s, err := New(db, 10*time.Minute)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	t.Cleanup(func() { _ = s.Close() })
	return s, &now
}

func trackEvent(id, d string, createdAt int64) *nostr.Event {
	return &nostr.Event{
		ID:        id,
		PubKey:    artist,
		Kind:      36787,
		CreatedAt: nostr.Timestamp(createdAt),
		Tags:      nostr.Tags{{"d", d}, {"title", "Song " + id}},
	}
}

func TestStore_PutAndQuery(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx,
		trackEvent("t1", "one", 100),
		trackEvent("t2", "two", 200),
		&nostr.Event{ID: "n1", PubKey: artist, Kind: 1, CreatedAt: 300, Content: "hello"},
	))

	evts, err := s.Fresh(ctx, nostr.Filter{Kinds: []int{36787}, Authors: []string{artist}})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "t2", evts[0].ID)
	assert.Equal(t, "Song t2", evts[0].Tags[1][1])

	evts, err = s.Fresh(ctx, nostr.Filter{Kinds: []int{36787}, Tags: nostr.TagMap{"d": []string{"one"}}})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "t1", evts[0].ID)

	evts, err = s.Fresh(ctx, nostr.Filter{IDs: []string{"n1"}})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "hello", evts[0].Content)

	evts, err = s.Fresh(ctx, nostr.Filter{Authors: []string{artist}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "n1", evts[0].ID)
}

func TestStore_NewestWins(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, trackEvent("v2", "song", 200)))
	require.NoError(t, s.Put(ctx, trackEvent("v1", "song", 100)))

	evts, err := s.Fresh(ctx, nostr.Filter{Kinds: []int{36787}})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "v2", evts[0].ID)

	require.NoError(t, s.Put(ctx, trackEvent("v3", "song", 300)))
	evts, err = s.Fresh(ctx, nostr.Filter{Kinds: []int{36787}})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "v3", evts[0].ID)

	// Replaceable profiles behave the same way
	require.NoError(t, s.Put(ctx,
		&nostr.Event{ID: "p2", PubKey: artist, Kind: 0, CreatedAt: 20, Content: `{"name":"new"}`},
		&nostr.Event{ID: "p1", PubKey: artist, Kind: 0, CreatedAt: 10, Content: `{"name":"old"}`},
	))
	evts, err = s.Fresh(ctx, nostr.Filter{Kinds: []int{0}, Authors: []string{artist}})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "p2", evts[0].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_Freshness(t *testing.T) {
	s, now := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, trackEvent("t1", "one", 100)))

	*now = now.Add(11 * time.Minute)

	evts, err := s.Fresh(ctx, nostr.Filter{Kinds: []int{36787}})
	require.NoError(t, err)
	assert.Empty(t, evts)

	// Stale records are still available on request
	evts, err = s.Query(ctx, nostr.Filter{Kinds: []int{36787}}, 0)
	require.NoError(t, err)
	assert.Len(t, evts, 1)

	// Refetching the same event refreshes it
	require.NoError(t, s.Put(ctx, trackEvent("t1", "one", 100)))
	evts, err = s.Fresh(ctx, nostr.Filter{Kinds: []int{36787}})
	require.NoError(t, err)
	assert.Len(t, evts, 1)
}

func TestStore_Prune(t *testing.T) {
	s, now := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, trackEvent("t1", "one", 100)))
	*now = now.Add(time.Hour)
	require.NoError(t, s.Put(ctx, trackEvent("t2", "two", 100)))

	removed, err := s.Prune(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
