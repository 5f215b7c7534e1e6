// Package notification broadcasts player state to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/app/playback"
)

// Notification is one state update.
type Notification struct {
	SequenceNo uint64
	Event      string // Playback event type that caused the update
	Snapshot   playback.Snapshot
	SentAt     time.Time
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
	onCountChange func(int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithSendTimeout sets how long Broadcast waits for a slow subscriber.
func WithSendTimeout(d time.Duration) Option {
	return func(m *Manager) { m.sendTimeout = d }
}

// WithCountObserver is called with the subscriber count after every change.
func WithCountObserver(fn func(int)) Option {
	return func(m *Manager) { m.onCountChange = fn }
}

// NewManager creates a new notification manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	n := len(m.subscriptions)
	m.mu.Unlock()

	m.countChanged(n)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	_, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	n := len(m.subscriptions)
	m.mu.Unlock()

	if ok {
		m.countChanged(n)
	}
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps notification with the next sequence number and sends it to
// all subscribers in parallel. Subscribers that time out miss this update;
// subscribers whose stream fails are removed.
func (m *Manager) Broadcast(notification *Notification) {
	notification.SequenceNo = m.NextSequenceNo()
	if notification.SentAt.IsZero() {
		notification.SentAt = time.Now()
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("Dropping subscriber %s: %v", s.id, err)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("Subscriber %s timed out: seq=%d", s.id, notification.SequenceNo)
			}
		}(sub)
	}

	wg.Wait()
}

// Send sends a notification to a specific subscriber without consuming a sequence number.
func (m *Manager) Send(subscriptionID string, notification *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	return sub.stream.Send(notification)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	m.subscriptions = make(map[string]*subscription)
	m.mu.Unlock()
	m.countChanged(0)
}

func (m *Manager) countChanged(n int) {
	if m.onCountChange != nil {
		m.onCountChange(n)
	}
}
