package library

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/filter"
	"github.com/osa030/nostrbeat/internal/domain/track"
)

// Queue is a playback queue built for a page.
type Queue struct {
	Label    string
	Origin   track.SourceKind
	Page     []track.Track // Tracks as listed on the page, before filtering
	Tracks   []track.Track
	Rejected []filter.Rejection
}

// IndexFor maps a position in the page's track list to a position in Tracks.
// A rejected track maps to the next accepted one after it, or to the last
// accepted track when none follows.
func (q Queue) IndexFor(pageIndex int) int {
	if len(q.Tracks) == 0 || pageIndex <= 0 {
		return 0
	}
	positions := make(map[string]int, len(q.Tracks))
	for i := len(q.Tracks) - 1; i >= 0; i-- {
		positions[q.Tracks[i].ID] = i
	}
	for i := pageIndex; i < len(q.Page); i++ {
		if pos, ok := positions[q.Page[i].ID]; ok {
			return pos
		}
	}
	return len(q.Tracks) - 1
}

var playable = &filter.PlayableFilter{}

// buildQueue applies the filter chain. Release and profile queues only ever
// contain playable tracks; a standalone track is queued as-is.
func (l *Library) buildQueue(ctx context.Context, label string, origin track.SourceKind, tracks []track.Track) (Queue, error) {
	q := Queue{Label: label, Origin: origin, Page: tracks}

	candidates := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if playable.AppliesTo(origin) {
			if result := playable.Check(ctx, t, candidates); !result.Accepted {
				q.Rejected = append(q.Rejected, filter.Rejection{Track: t, Code: result.Code})
				continue
			}
		}
		candidates = append(candidates, t)
	}

	accepted, rejected := l.chain.Apply(ctx, candidates, origin)
	q.Tracks = accepted
	q.Rejected = append(q.Rejected, rejected...)

	zlog.Debug().Msgf("Queue built: label=%q origin=%s tracks=%d rejected=%d", label, origin, len(q.Tracks), len(q.Rejected))
	if len(q.Tracks) == 0 {
		return q, errors.Wrapf(ErrNothingPlayable, "%q", label)
	}
	return q, nil
}

// ReleaseQueue builds the queue for a release page.
func (l *Library) ReleaseQueue(ctx context.Context, pubkey, d string) (Queue, error) {
	r, err := l.Release(ctx, pubkey, d)
	if err != nil {
		return Queue{}, err
	}
	label := r.Title
	if label == "" {
		label = "Untitled release"
	}
	return l.buildQueue(ctx, label, track.SourceKindRelease, r.Tracks)
}

// TrackQueue builds a one-track queue for a track page.
func (l *Library) TrackQueue(ctx context.Context, pubkey, d string) (Queue, error) {
	t, err := l.Track(ctx, pubkey, d)
	if err != nil {
		return Queue{}, err
	}
	return l.buildQueue(ctx, t.DisplayTitle(), track.SourceKindStandalone, []track.Track{t})
}

// ProfileQueue builds the queue for an artist profile page.
func (l *Library) ProfileQueue(ctx context.Context, pubkey string) (Queue, error) {
	tracks, err := l.ProfileTracks(ctx, pubkey)
	if err != nil {
		return Queue{}, err
	}
	p, _ := l.Profile(ctx, pubkey)
	return l.buildQueue(ctx, p.BestName(), track.SourceKindProfile, tracks)
}
