package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// Settings configures one filter.
type Settings struct {
	Enabled  bool
	Settings map[string]any
}

// Rejection records a track dropped from a queue.
type Rejection struct {
	Track track.Track
	Code  string
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// priority is the execution order of known filters.
var priority = map[string]int{
	"playable_filter":        0,
	"muted_artist_filter":    1,
	"explicit_filter":        2,
	"language_filter":        3,
	"duration_limit_filter":  4,
	"duplicate_track_filter": 5,
}

// Build creates a chain from the enabled filters in configs.
// Unknown filter names and invalid settings are errors.
func Build(configs map[string]Settings) (*Chain, error) {
	names := make([]string, 0, len(configs))
	for name, cfg := range configs {
		if cfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		pi, iok := priority[names[i]]
		pj, jok := priority[names[j]]
		if iok != jok {
			return iok
		}
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	c := NewChain()
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter %q", name)
		}
		f := factory()
		if err := f.ValidateConfig(configs[name].Settings); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for %s", name)
		}
		c.Add(f)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
// Filters are only applied if they declare they apply to the given origin.
func (c *Chain) Execute(ctx context.Context, t track.Track, queued []track.Track, origin track.SourceKind) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(origin) {
			continue
		}

		result := f.Check(ctx, t, queued)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply filters tracks in order. Each track is checked against the tracks
// accepted before it.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track, origin track.SourceKind) ([]track.Track, []Rejection) {
	accepted := make([]track.Track, 0, len(tracks))
	var rejected []Rejection
	for _, t := range tracks {
		result := c.Execute(ctx, t, accepted, origin)
		if !result.Accepted {
			zlog.Debug().Msgf("Track rejected by filter: id=%s title=%s reason=%s", t.ID, t.Title, result.Code)
			rejected = append(rejected, Rejection{Track: t, Code: result.Code})
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
