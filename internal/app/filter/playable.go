package filter

import (
	"context"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// PlayableFilter rejects tracks without an audio source.
type PlayableFilter struct{}

func (f *PlayableFilter) Name() string {
	return "playable_filter"
}

func (f *PlayableFilter) Description() string {
	return "Rejects tracks that have no audio URL"
}

func (f *PlayableFilter) ReturnCodes() []string {
	return []string{"not_playable"}
}

func (f *PlayableFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *PlayableFilter) AppliesTo(origin track.SourceKind) bool {
	// A single track is queued as-is so the player can report the missing source
	return origin != track.SourceKindStandalone
}

func (f *PlayableFilter) Check(ctx context.Context, t track.Track, queued []track.Track) Result {
	if !t.IsPlayable() {
		return Reject("not_playable")
	}
	return Accept()
}

func init() {
	Register("playable_filter", func() Filter {
		return &PlayableFilter{}
	})
}
