package router

import (
	"testing"

	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/nostrbeat/internal/infra/events"
)

const (
	pubkey  = "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d"
	eventID = "b9f5441e45ca39179320e0031cfb18e34078673dcc3d3e3a3b3a981760aa5696"
)

func encode(t *testing.T, fn func() (string, error)) string {
	t.Helper()
	s, err := fn()
	require.NoError(t, err)
	return s
}

func TestRouter_Resolve(t *testing.T) {
	r := New(events.DefaultKinds())
	relays := []string{"wss://relay.example.com"}

	npub := encode(t, func() (string, error) { return nip19.EncodePublicKey(pubkey) })
	nprofile := encode(t, func() (string, error) { return nip19.EncodeProfile(pubkey, relays) })
	note := encode(t, func() (string, error) { return nip19.EncodeNote(eventID) })
	nevent := encode(t, func() (string, error) { return nip19.EncodeEvent(eventID, relays, pubkey) })
	release := encode(t, func() (string, error) { return nip19.EncodeEntity(pubkey, 34139, "debut", relays) })
	trk := encode(t, func() (string, error) { return nip19.EncodeEntity(pubkey, 36787, "first-light", nil) })
	article := encode(t, func() (string, error) { return nip19.EncodeEntity(pubkey, 30023, "post", nil) })

	tests := []struct {
		name       string
		identifier string
		page       Page
		check      func(t *testing.T, route Route)
	}{
		{
			name:       "npub",
			identifier: npub,
			page:       PageProfile,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, pubkey, route.Pubkey)
			},
		},
		{
			name:       "nostr uri prefix",
			identifier: "nostr:" + npub,
			page:       PageProfile,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, npub, route.Identifier)
			},
		},
		{
			name:       "nprofile",
			identifier: nprofile,
			page:       PageProfile,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, pubkey, route.Pubkey)
				assert.Equal(t, relays, route.Relays)
			},
		},
		{
			name:       "note",
			identifier: note,
			page:       PageNote,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, eventID, route.EventID)
			},
		},
		{
			name:       "nevent",
			identifier: nevent,
			page:       PageEvent,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, eventID, route.EventID)
				assert.Equal(t, pubkey, route.Pubkey)
			},
		},
		{
			name:       "release naddr",
			identifier: release,
			page:       PageRelease,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, "34139:"+pubkey+":debut", route.Address())
				assert.Equal(t, relays, route.Relays)
			},
		},
		{
			name:       "track naddr",
			identifier: trk,
			page:       PageTrack,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, "first-light", route.D)
				assert.Equal(t, 36787, route.Kind)
			},
		},
		{
			name:       "unsupported naddr kind",
			identifier: article,
			page:       PageNotFound,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, "unsupported address kind", route.Reason)
				assert.Empty(t, route.Address())
			},
		},
		{
			name:       "garbage",
			identifier: "npub1notreallyanything",
			page:       PageNotFound,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, "invalid identifier", route.Reason)
				assert.False(t, route.Found())
			},
		},
		{
			name:       "empty",
			identifier: "   ",
			page:       PageNotFound,
			check: func(t *testing.T, route Route) {
				assert.Equal(t, "empty identifier", route.Reason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := r.Resolve(tt.identifier)
			assert.Equal(t, tt.page, route.Page)
			tt.check(t, route)
		})
	}
}

func TestRouter_CustomKinds(t *testing.T) {
	kinds := events.DefaultKinds()
	kinds.Release = 30119
	r := New(kinds)

	naddr, err := nip19.EncodeEntity(pubkey, 30119, "legacy", nil)
	require.NoError(t, err)

	assert.Equal(t, PageRelease, r.Resolve(naddr).Page)
}
