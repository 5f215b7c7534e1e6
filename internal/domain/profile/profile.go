// Package profile provides the artist Profile domain entity.
package profile

import "github.com/osa030/nostrbeat/internal/domain/track"

// Profile represents the kind-0 metadata of a Nostr account.
type Profile struct {
	Pubkey      string // Public key (hex)
	Name        string // Short handle
	DisplayName string // Display name
	About       string // Bio
	Picture     string // Avatar URL
	Banner      string // Banner URL
	Website     string // Website URL
	NIP05       string // NIP-05 identifier
	LUD16       string // Lightning address used for zaps
}

// New creates an empty profile for a public key.
func New(pubkey string) *Profile {
	return &Profile{Pubkey: pubkey}
}

// BestName returns the name shown for the artist.
// Order: display name, name, shortened npub.
func (p *Profile) BestName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Name != "" {
		return p.Name
	}
	return track.ShortNpub(p.Pubkey)
}

// CanReceiveZaps reports whether the profile advertises a lightning address.
func (p *Profile) CanReceiveZaps() bool {
	return p.LUD16 != ""
}

// Source returns the track source for tracks played from this profile.
func (p *Profile) Source() track.ProfileSource {
	return track.ProfileSource{Pubkey: p.Pubkey}
}
