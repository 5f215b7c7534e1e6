package notification

import (
	"context"
	"time"

	"github.com/osa030/nostrbeat/internal/app/playback"
)

// PositionEvent is the event name of periodic position updates.
const PositionEvent = "position"

// Forward broadcasts a snapshot for every playback event until events is
// closed or ctx is done. observe, if set, sees each event first. With a
// positive tick the position is also broadcast periodically while playing.
func (m *Manager) Forward(ctx context.Context, events <-chan playback.Event, snapshot func() playback.Snapshot, tick time.Duration, observe func(playback.Event)) {
	var tickCh <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if observe != nil {
				observe(ev)
			}
			m.Broadcast(&Notification{Event: ev.Type.String(), Snapshot: snapshot()})
		case <-tickCh:
			if m.SubscriberCount() == 0 {
				continue
			}
			if s := snapshot(); s.IsPlaying {
				m.Broadcast(&Notification{Event: PositionEvent, Snapshot: s})
			}
		}
	}
}
