package filter

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// MutedArtistConfig represents the configuration for MutedArtistFilter.
type MutedArtistConfig struct {
	Pubkeys []string `yaml:"pubkeys" mapstructure:"pubkeys" validate:"dive,len=64,hexadecimal"`
}

// MutedArtistFilter drops tracks published by muted pubkeys.
type MutedArtistFilter struct {
	muted map[string]bool
}

func (f *MutedArtistFilter) Name() string {
	return "muted_artist_filter"
}

func (f *MutedArtistFilter) Description() string {
	return "Skips tracks published by muted artists"
}

func (f *MutedArtistFilter) ReturnCodes() []string {
	return []string{"muted_artist"}
}

func (f *MutedArtistFilter) ValidateConfig(settings map[string]any) error {
	var config MutedArtistConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.muted = make(map[string]bool, len(config.Pubkeys))
	for _, pk := range config.Pubkeys {
		f.muted[strings.ToLower(pk)] = true
	}
	return nil
}

func (f *MutedArtistFilter) AppliesTo(origin track.SourceKind) bool {
	// Visiting a muted artist's profile and pressing play is deliberate
	return origin != track.SourceKindProfile
}

func (f *MutedArtistFilter) Check(ctx context.Context, t track.Track, queued []track.Track) Result {
	if f.muted[strings.ToLower(t.Pubkey)] {
		return Reject("muted_artist")
	}
	return Accept()
}

func init() {
	Register("muted_artist_filter", func() Filter {
		return &MutedArtistFilter{}
	})
}
