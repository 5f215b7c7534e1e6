// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// Track represents a playable unit of audio.
// Protocol tracks are identified by their event address; ad-hoc tracks get a synthetic ID.
type Track struct {
	ID       string        // Event address ("<kind>:<pubkey>:<d>") or synthetic "adhoc:<uuid>"
	Title    string        // Track title
	Artist   string        // Artist display name
	AudioURL string        // Audio resource URL (empty means not playable)
	Duration time.Duration // Track duration (0 if unknown)
	ImageURL string        // Artwork URL
	Explicit bool          // Explicit content flag
	Language string        // ISO-639-1 language code
	Pubkey   string        // Author public key (hex), empty for ad-hoc tracks
	Genres   []string      // Genre hashtags
	Source   Source        // Where the track came from
}

// NewAdHoc creates a standalone track for a bare audio URL.
func NewAdHoc(title, artist, audioURL string) Track {
	return Track{
		ID:       "adhoc:" + uuid.New().String(),
		Title:    title,
		Artist:   artist,
		AudioURL: audioURL,
		Source:   StandaloneSource{},
	}
}

// IsPlayable reports whether the track has an audio source.
func (t Track) IsPlayable() bool {
	return t.AudioURL != ""
}

// HasDuration reports whether the duration is known.
func (t Track) HasDuration() bool {
	return t.Duration > 0
}

// DisplayTitle returns the title, or a fallback when it is empty.
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return "Untitled"
}

// DisplayArtist returns the artist name, falling back to a shortened npub.
func (t Track) DisplayArtist() string {
	if t.Artist != "" {
		return t.Artist
	}
	if t.Pubkey != "" {
		return ShortNpub(t.Pubkey)
	}
	return "Unknown artist"
}

// Same reports whether a and b refer to the same track.
// Tracks are rebuilt from relay data between requests, so identity is the ID.
func Same(a, b *Track) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID != "" && a.ID == b.ID
}

// ShortNpub returns an abbreviated npub for display, e.g. "npub1abcd…wxyz".
func ShortNpub(pubkey string) string {
	npub, err := nip19.EncodePublicKey(pubkey)
	if err != nil || len(npub) < 16 {
		if len(pubkey) > 8 {
			return pubkey[:8]
		}
		return pubkey
	}
	return npub[:9] + "…" + npub[len(npub)-4:]
}

// SourceKind identifies the Source variant.
type SourceKind string

const (
	SourceKindProfile    SourceKind = "profile"
	SourceKindRelease    SourceKind = "release"
	SourceKindStandalone SourceKind = "standalone"
)

// Source describes where a track logically belongs.
// The set of implementations is closed: ProfileSource, ReleaseSource, StandaloneSource.
type Source interface {
	Kind() SourceKind
	// Origin returns the NIP-19 identifier of the page the track came from.
	Origin() (string, error)
	isSource()
}

// ProfileSource is a track started from an artist profile.
type ProfileSource struct {
	Pubkey string
}

// ReleaseSource is a track started from a release.
type ReleaseSource struct {
	Pubkey    string
	ReleaseID string // d tag of the release event
	EventKind int    // release event kind
	Title     string
}

// StandaloneSource is a track played on its own.
type StandaloneSource struct{}

var ErrNoOrigin = errors.New("track has no origin page")

func (ProfileSource) Kind() SourceKind    { return SourceKindProfile }
func (ReleaseSource) Kind() SourceKind    { return SourceKindRelease }
func (StandaloneSource) Kind() SourceKind { return SourceKindStandalone }

func (ProfileSource) isSource()    {}
func (ReleaseSource) isSource()    {}
func (StandaloneSource) isSource() {}

// Origin returns the npub of the profile.
func (s ProfileSource) Origin() (string, error) {
	npub, err := nip19.EncodePublicKey(s.Pubkey)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode profile origin")
	}
	return npub, nil
}

// Origin returns the naddr of the release.
func (s ReleaseSource) Origin() (string, error) {
	naddr, err := nip19.EncodeEntity(s.Pubkey, s.EventKind, s.ReleaseID, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode release origin")
	}
	return naddr, nil
}

// Origin always fails for standalone tracks.
func (StandaloneSource) Origin() (string, error) {
	return "", ErrNoOrigin
}

// Address builds an addressable event reference "<kind>:<pubkey>:<d>".
func Address(kind int, pubkey, d string) string {
	return fmt.Sprintf("%d:%s:%s", kind, pubkey, d)
}
