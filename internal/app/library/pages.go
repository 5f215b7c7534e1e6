package library

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/router"
	"github.com/osa030/nostrbeat/internal/domain/profile"
	"github.com/osa030/nostrbeat/internal/domain/release"
	"github.com/osa030/nostrbeat/internal/domain/track"
	"github.com/osa030/nostrbeat/internal/infra/events"
)

// Page is the data shown for a resolved identifier.
type Page struct {
	Route   router.Route
	Release *release.Release
	Track   *track.Track
	Profile *profile.Profile
	Tracks  []track.Track // Release tracks or the artist's tracks
	Event   *nostr.Event  // Note and generic event pages
}

// Load fetches the data for a route.
func (l *Library) Load(ctx context.Context, route router.Route) (*Page, error) {
	page := &Page{Route: route}

	switch route.Page {
	case router.PageRelease:
		r, err := l.Release(ctx, route.Pubkey, route.D)
		if err != nil {
			return nil, err
		}
		page.Release = r
		page.Tracks = r.Tracks

	case router.PageTrack:
		t, err := l.Track(ctx, route.Pubkey, route.D)
		if err != nil {
			return nil, err
		}
		page.Track = &t

	case router.PageProfile:
		p, err := l.Profile(ctx, route.Pubkey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		page.Profile = p
		tracks, err := l.ProfileTracks(ctx, route.Pubkey)
		if err != nil {
			return nil, err
		}
		page.Tracks = tracks

	case router.PageNote, router.PageEvent:
		evt, err := l.queryOne(ctx, nostr.Filter{IDs: []string{route.EventID}})
		if err != nil {
			return nil, err
		}
		page.Event = evt

	default:
		return nil, errors.Wrap(ErrNotFound, route.Reason)
	}
	return page, nil
}

// Release fetches a release and resolves its tracks in order.
// Referenced tracks that cannot be found are left out.
func (l *Library) Release(ctx context.Context, pubkey, d string) (*release.Release, error) {
	evt, err := l.queryOne(ctx, addressFilter(l.kinds.Release, pubkey, d))
	if err != nil {
		return nil, errors.Wrapf(err, "release %s", track.Address(l.kinds.Release, pubkey, d))
	}

	r, err := events.ParseRelease(evt, l.kinds)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse release")
	}

	tracks, err := l.resolveTracks(ctx, r.TrackRefs)
	if err != nil {
		return nil, err
	}
	source := r.Source()
	for i := range tracks {
		tracks[i].Source = source
	}
	l.fillArtists(ctx, tracks)
	r.Tracks = tracks
	return r, nil
}

// resolveTracks fetches the tracks behind addresses, one query per author.
func (l *Library) resolveTracks(ctx context.Context, refs []string) ([]track.Track, error) {
	byAuthor := make(map[string][]string)
	var authors []string
	for _, ref := range refs {
		_, pubkey, err := events.SplitAddress(ref)
		if err != nil {
			continue
		}
		if _, ok := byAuthor[pubkey]; !ok {
			authors = append(authors, pubkey)
		}
		byAuthor[pubkey] = append(byAuthor[pubkey], events.Identifier(ref))
	}

	found := make(map[string]track.Track, len(refs))
	for _, pubkey := range authors {
		evts, err := l.query(ctx, nostr.Filter{
			Kinds:   []int{l.kinds.Track},
			Authors: []string{pubkey},
			Tags:    nostr.TagMap{"d": byAuthor[pubkey]},
		})
		if err != nil {
			return nil, err
		}
		for _, evt := range evts {
			t, err := events.ParseTrack(evt, l.kinds)
			if err != nil {
				zlog.Debug().Msgf("Skipping malformed track %s: %v", evt.ID, err)
				continue
			}
			if _, ok := found[t.ID]; !ok {
				found[t.ID] = t
			}
		}
	}

	tracks := make([]track.Track, 0, len(refs))
	for _, ref := range refs {
		t, ok := found[ref]
		if !ok {
			zlog.Debug().Msgf("Track not found: %s", ref)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Track fetches a single track.
func (l *Library) Track(ctx context.Context, pubkey, d string) (track.Track, error) {
	evt, err := l.queryOne(ctx, addressFilter(l.kinds.Track, pubkey, d))
	if err != nil {
		return track.Track{}, errors.Wrapf(err, "track %s", track.Address(l.kinds.Track, pubkey, d))
	}

	t, err := events.ParseTrack(evt, l.kinds)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to parse track")
	}
	tracks := []track.Track{t}
	l.fillArtists(ctx, tracks)
	return tracks[0], nil
}

// Profile fetches an artist profile.
func (l *Library) Profile(ctx context.Context, pubkey string) (*profile.Profile, error) {
	evt, err := l.queryOne(ctx, nostr.Filter{Kinds: []int{l.kinds.Profile}, Authors: []string{pubkey}})
	if err != nil {
		return profile.New(pubkey), err
	}
	p, err := events.ParseProfile(evt, l.kinds)
	if err != nil {
		zlog.Debug().Msgf("Invalid profile for %s: %v", pubkey, err)
		return profile.New(pubkey), nil
	}
	return p, nil
}

// ProfileTracks lists an artist's tracks, newest first.
func (l *Library) ProfileTracks(ctx context.Context, pubkey string) ([]track.Track, error) {
	evts, err := l.query(ctx, nostr.Filter{
		Kinds:   []int{l.kinds.Track},
		Authors: []string{pubkey},
		Limit:   l.profileLimit,
	})
	if err != nil {
		return nil, err
	}

	source := track.ProfileSource{Pubkey: pubkey}
	tracks := make([]track.Track, 0, len(evts))
	for _, evt := range evts {
		t, err := events.ParseTrack(evt, l.kinds)
		if err != nil {
			continue
		}
		t.Source = source
		tracks = append(tracks, t)
	}
	l.fillArtists(ctx, tracks)
	return tracks, nil
}
