package library

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/router"
)

// QueueFor builds the queue for a route.
func (l *Library) QueueFor(ctx context.Context, route router.Route) (Queue, error) {
	switch route.Page {
	case router.PageRelease:
		return l.ReleaseQueue(ctx, route.Pubkey, route.D)
	case router.PageTrack:
		return l.TrackQueue(ctx, route.Pubkey, route.D)
	case router.PageProfile:
		return l.ProfileQueue(ctx, route.Pubkey)
	case router.PageNotFound:
		return Queue{}, errors.Wrap(ErrNotFound, route.Reason)
	default:
		return Queue{}, errors.Wrapf(ErrNotPlayablePage, "%s page", route.Page)
	}
}

// PlayRoute resolves identifier, builds its queue and hands it to the player.
// index is the track's position on the page; rejected tracks are skipped.
// Clicking the track that is already current toggles it.
func (l *Library) PlayRoute(ctx context.Context, identifier string, index int) (router.Route, Queue, error) {
	if l.player == nil {
		return router.Route{}, Queue{}, ErrNoPlayer
	}

	route := l.router.Resolve(identifier)
	q, err := l.QueueFor(ctx, route)
	if err != nil {
		return route, q, err
	}

	start := q.IndexFor(index)
	zlog.Info().Msgf("Playing %s page: label=%q tracks=%d index=%d", route.Page, q.Label, len(q.Tracks), start)
	l.player.PlayOrToggle(q.Tracks, start, q.Label)
	return route, q, nil
}
