// Package relay queries Nostr relays.
package relay

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/infra/events"
)

// Errors
var (
	ErrNoRelays        = errors.New("no relays configured")
	ErrAllRelaysFailed = errors.New("all relays failed")
	ErrNotFound        = errors.New("event not found")
)

// Conn is a single relay connection.
type Conn interface {
	QuerySync(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
	Close() error
}

// Dialer opens a connection to a relay.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Observer is notified after every relay query.
type Observer interface {
	ObserveRelayQuery(url string, elapsed time.Duration, err error)
}

// Config represents relay client configuration.
type Config struct {
	URLs       []string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client fans queries out to every configured relay and merges the results.
type Client struct {
	urls       []string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	dial       Dialer
	observer   Observer

	mu    sync.Mutex
	conns map[string]Conn
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithObserver registers a query observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a new relay client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if len(cfg.URLs) == 0 {
		return nil, ErrNoRelays
	}

	c := &Client{
		urls:       dedupeURLs(cfg.URLs),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		dial:       dialWebsocket,
		conns:      make(map[string]Conn),
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 1
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func dialWebsocket(ctx context.Context, url string) (Conn, error) {
	r, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// URLs returns the relays queried by the client.
func (c *Client) URLs() []string {
	return append([]string(nil), c.urls...)
}

type relayResult struct {
	url    string
	events []*nostr.Event
	err    error
}

// Query sends filter to every relay and returns the merged events, newest first.
// Duplicates are removed and only the newest version of replaceable and
// addressable events is kept. It fails only if every relay failed.
func (c *Client) Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	results := make(chan relayResult, len(c.urls))
	for _, url := range c.urls {
		go func(url string) {
			evts, err := c.queryRelay(ctx, url, filter)
			results <- relayResult{url: url, events: evts, err: err}
		}(url)
	}

	var (
		all    []*nostr.Event
		errs   error
		failed int
	)
	for range c.urls {
		r := <-results
		if r.err != nil {
			failed++
			errs = errors.CombineErrors(errs, errors.Wrapf(r.err, "relay %s", r.url))
			zlog.Debug().Msgf("Relay query failed: %s: %v", r.url, r.err)
			continue
		}
		all = append(all, r.events...)
	}

	if failed == len(c.urls) {
		return nil, errors.Wrapf(ErrAllRelaysFailed, "%v", errs)
	}

	merged := Merge(all)
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}
	return merged, nil
}

// QueryOne returns the newest event matching filter.
func (c *Client) QueryOne(ctx context.Context, filter nostr.Filter) (*nostr.Event, error) {
	evts, err := c.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(evts) == 0 {
		return nil, ErrNotFound
	}
	return evts[0], nil
}

func (c *Client) queryRelay(ctx context.Context, url string, filter nostr.Filter) ([]*nostr.Event, error) {
	start := time.Now()
	var evts []*nostr.Event
	err := c.retry(ctx, func() error {
		qctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		conn, err := c.conn(qctx, url)
		if err != nil {
			return err
		}
		result, err := conn.QuerySync(qctx, filter)
		if err != nil {
			c.drop(url)
			return err
		}
		evts = result
		return nil
	})
	if c.observer != nil {
		c.observer.ObserveRelayQuery(url, time.Since(start), err)
	}
	return evts, err
}

func (c *Client) conn(ctx context.Context, url string) (Conn, error) {
	c.mu.Lock()
	conn, ok := c.conns[url]
	c.mu.Unlock()
	if ok {
		return conn, nil
	}

	conn, err := c.dial(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.conns[url]; ok {
		_ = conn.Close()
		return existing, nil
	}
	c.conns[url] = conn
	return conn, nil
}

func (c *Client) drop(url string) {
	c.mu.Lock()
	conn, ok := c.conns[url]
	delete(c.conns, url)
	c.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(lastErr, ctx.Err().Error())
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	if c.maxRetries > 1 {
		return errors.Wrap(lastErr, "max retries exceeded")
	}
	return lastErr
}

// Close closes all open relay connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs error
	for url, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "relay %s", url))
		}
		delete(c.conns, url)
	}
	return errs
}

// Merge removes duplicate events and keeps the newest version of every
// replaceable or addressable event. The result is sorted newest first.
func Merge(evts []*nostr.Event) []*nostr.Event {
	byKey := make(map[string]*nostr.Event, len(evts))
	var order []string
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		key := versionKey(evt)
		existing, ok := byKey[key]
		if !ok {
			order = append(order, key)
			byKey[key] = evt
			continue
		}
		if newer(evt, existing) {
			byKey[key] = evt
		}
	}

	merged := make([]*nostr.Event, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt > merged[j].CreatedAt
	})
	return merged
}

// versionKey groups events that replace each other.
func versionKey(evt *nostr.Event) string {
	switch {
	case events.IsAddressable(evt.Kind):
		return "a:" + strconv.Itoa(evt.Kind) + ":" + evt.PubKey + ":" + dTag(evt.Tags)
	case events.IsReplaceable(evt.Kind):
		return "r:" + strconv.Itoa(evt.Kind) + ":" + evt.PubKey
	default:
		return "e:" + evt.ID
	}
}

func dTag(tags nostr.Tags) string {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == "d" {
			return t[1]
		}
	}
	return ""
}

// newer reports whether a supersedes b. Ties go to the lowest id.
func newer(a, b *nostr.Event) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID < b.ID
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		n := nostr.NormalizeURL(u)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
