package library

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/infra/events"
)

// Engagement summarises reactions, zaps and comments on a release or track.
type Engagement struct {
	Target        string
	Likes         int
	Reactions     map[string]int // Count by reaction content
	ZapCount      int
	ZapTotalMsats int64
	Comments      []events.Comment // Oldest first
}

// ZapTotalSats returns the zap total in whole satoshis.
func (e Engagement) ZapTotalSats() int64 {
	return e.ZapTotalMsats / 1000
}

// Engagement fetches engagement for target, an event address or an event id.
// Each event is counted once even when several queries return it.
func (l *Library) Engagement(ctx context.Context, target string) (Engagement, error) {
	e := Engagement{Target: target, Reactions: make(map[string]int)}

	lower, upper := "e", "E"
	if strings.Contains(target, ":") {
		lower, upper = "a", "A"
	}

	direct, err := l.query(ctx, nostr.Filter{
		Kinds: []int{l.kinds.Reaction, l.kinds.ZapReceipt, l.kinds.Comment},
		Tags:  nostr.TagMap{lower: []string{target}},
	})
	if err != nil {
		return e, err
	}
	// Replies deeper in a thread only reference the root with the uppercase tag
	threaded, err := l.query(ctx, nostr.Filter{
		Kinds: []int{l.kinds.Comment},
		Tags:  nostr.TagMap{upper: []string{target}},
	})
	if err != nil {
		return e, err
	}

	seen := make(map[string]bool)
	for _, evt := range append(direct, threaded...) {
		if seen[evt.ID] {
			continue
		}
		seen[evt.ID] = true

		switch evt.Kind {
		case l.kinds.Reaction:
			r, err := events.ParseReaction(evt, l.kinds)
			if err != nil {
				continue
			}
			if r.IsLike() {
				e.Likes++
				e.Reactions["+"]++
				continue
			}
			e.Reactions[r.Content]++

		case l.kinds.ZapReceipt:
			z, err := events.ParseZapReceipt(evt, l.kinds)
			if err != nil {
				continue
			}
			if z.AmountMsats > math.MaxInt64-e.ZapTotalMsats {
				zlog.Debug().Msgf("Ignoring zap receipt %s: total out of range", evt.ID)
				continue
			}
			e.ZapCount++
			e.ZapTotalMsats += z.AmountMsats

		case l.kinds.Comment:
			c, err := events.ParseComment(evt, l.kinds)
			if err != nil || (c.Root != target && c.Parent != target) {
				continue
			}
			e.Comments = append(e.Comments, c)
		}
	}

	sort.SliceStable(e.Comments, func(i, j int) bool {
		return e.Comments[i].CreatedAt.Before(e.Comments[j].CreatedAt)
	})
	return e, nil
}
