// Package library builds pages and playback queues from relay data.
package library

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/filter"
	"github.com/osa030/nostrbeat/internal/app/router"
	"github.com/osa030/nostrbeat/internal/domain/track"
	"github.com/osa030/nostrbeat/internal/infra/events"
)

// Errors
var (
	ErrNotFound        = errors.New("not found")
	ErrNothingPlayable = errors.New("nothing playable")
	ErrNotPlayablePage = errors.New("page has no playable content")
	ErrNoPlayer        = errors.New("no player configured")
)

// Player is the playback surface queues are handed to.
type Player interface {
	PlayOrToggle(tracks []track.Track, index int, label string)
}

// Library reads releases, tracks and profiles from a Querier.
type Library struct {
	source       Querier
	kinds        events.Kinds
	router       *router.Router
	chain        *filter.Chain
	player       Player
	profileLimit int
}

// Option configures a Library.
type Option func(*Library)

// WithFilters sets the filter chain applied to every queue.
func WithFilters(chain *filter.Chain) Option {
	return func(l *Library) {
		if chain != nil {
			l.chain = chain
		}
	}
}

// WithPlayer sets the player used by PlayRoute.
func WithPlayer(p Player) Option {
	return func(l *Library) { l.player = p }
}

// WithProfileLimit bounds how many tracks a profile page lists.
func WithProfileLimit(n int) Option {
	return func(l *Library) { l.profileLimit = n }
}

// New creates a library.
func New(source Querier, kinds events.Kinds, opts ...Option) *Library {
	l := &Library{
		source:       source,
		kinds:        kinds,
		router:       router.New(kinds),
		chain:        filter.NewChain(),
		profileLimit: 100,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Router returns the router used to resolve identifiers.
func (l *Library) Router() *router.Router {
	return l.router
}

// Kinds returns the configured event kinds.
func (l *Library) Kinds() events.Kinds {
	return l.kinds
}

func (l *Library) query(ctx context.Context, f nostr.Filter) ([]*nostr.Event, error) {
	evts, err := l.source.Query(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query relays")
	}
	return evts, nil
}

func (l *Library) queryOne(ctx context.Context, f nostr.Filter) (*nostr.Event, error) {
	f.Limit = 1
	evts, err := l.query(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(evts) == 0 {
		return nil, ErrNotFound
	}
	return evts[0], nil
}

func addressFilter(kind int, pubkey, d string) nostr.Filter {
	return nostr.Filter{
		Kinds:   []int{kind},
		Authors: []string{pubkey},
		Tags:    nostr.TagMap{"d": []string{d}},
	}
}

// artistNames looks up display names for pubkeys. Failures leave names out.
func (l *Library) artistNames(ctx context.Context, pubkeys []string) map[string]string {
	names := make(map[string]string, len(pubkeys))
	if len(pubkeys) == 0 {
		return names
	}
	evts, err := l.query(ctx, nostr.Filter{Kinds: []int{l.kinds.Profile}, Authors: pubkeys})
	if err != nil {
		zlog.Debug().Msgf("Artist name lookup failed: %v", err)
		return names
	}
	for _, evt := range evts {
		p, err := events.ParseProfile(evt, l.kinds)
		if err != nil {
			continue
		}
		if _, ok := names[p.Pubkey]; !ok {
			names[p.Pubkey] = p.BestName()
		}
	}
	return names
}

// fillArtists sets missing artist names from profiles.
func (l *Library) fillArtists(ctx context.Context, tracks []track.Track) {
	var missing []string
	seen := make(map[string]bool)
	for _, t := range tracks {
		if t.Artist == "" && t.Pubkey != "" && !seen[t.Pubkey] {
			seen[t.Pubkey] = true
			missing = append(missing, t.Pubkey)
		}
	}
	names := l.artistNames(ctx, missing)
	for i := range tracks {
		if tracks[i].Artist == "" {
			tracks[i].Artist = names[tracks[i].Pubkey]
		}
	}
}
