package library

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
	zlog "github.com/rs/zerolog/log"
)

// Querier fetches events matching a filter.
type Querier interface {
	Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
}

// Cache stores events between relay queries.
type Cache interface {
	Fresh(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
	Query(ctx context.Context, filter nostr.Filter, maxAge time.Duration) ([]*nostr.Event, error)
	Put(ctx context.Context, evts ...*nostr.Event) error
}

// CachedSource answers point lookups from the cache and everything else from relays.
// Relay results are written back; when every relay fails, stale cached events are served.
type CachedSource struct {
	relays Querier
	cache  Cache
}

// NewCachedSource creates a source backed by relays and an optional cache.
func NewCachedSource(relays Querier, cache Cache) *CachedSource {
	return &CachedSource{relays: relays, cache: cache}
}

// Query implements Querier.
func (s *CachedSource) Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	if s.cache == nil {
		return s.relays.Query(ctx, filter)
	}

	if want := expectedCount(filter); want > 0 {
		cached, err := s.cache.Fresh(ctx, filter)
		switch {
		case err != nil:
			zlog.Warn().Msgf("Event cache read failed: %v", err)
		case len(cached) >= want:
			zlog.Debug().Msgf("Served %d events from cache", len(cached))
			return cached, nil
		}
	}

	evts, err := s.relays.Query(ctx, filter)
	if err != nil {
		stale, cerr := s.cache.Query(ctx, filter, 0)
		if cerr == nil && len(stale) > 0 {
			zlog.Warn().Msgf("Relays failed, serving %d cached events: %v", len(stale), err)
			return stale, nil
		}
		return nil, err
	}

	if len(evts) > 0 {
		if err := s.cache.Put(ctx, evts...); err != nil {
			zlog.Warn().Msgf("Failed to cache events: %v", err)
		}
	}
	return evts, nil
}

// expectedCount returns how many events a complete answer to a point lookup
// contains, or 0 when the answer size is unknown.
func expectedCount(filter nostr.Filter) int {
	if len(filter.IDs) > 0 {
		return len(filter.IDs)
	}
	if ds := filter.Tags["d"]; len(ds) > 0 && len(filter.Authors) == 1 && len(filter.Kinds) == 1 {
		return len(ds)
	}
	return 0
}
