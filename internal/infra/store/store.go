// Package store caches Nostr events in a SQL database.
package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/osa030/nostrbeat/internal/infra/events"
	"github.com/osa030/nostrbeat/internal/infra/logger"
)

// Drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned for unsupported database drivers.
var ErrUnknownDriver = errors.New("unknown store driver")

// EventRecord is a cached event.
// VersionKey is unique: replaceable and addressable events keep only their newest version.
type EventRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	VersionKey  string `gorm:"uniqueIndex;size:512"`
	Kind        int    `gorm:"index"`
	Pubkey      string `gorm:"index;size:64"`
	D           string `gorm:"index;size:255"`
	PublishedAt int64  `gorm:"index"`
	Raw         string `gorm:"type:text"`
	FetchedAt   int64  `gorm:"index"` // Unix milliseconds
}

// TableName overrides the default pluralization
func (EventRecord) TableName() string {
	return "event_cache"
}

// Config represents store configuration.
type Config struct {
	Driver string
	DSN    string
	TTL    time.Duration
}

// Store is a gorm-backed event cache.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.Printf{Level: zerolog.WarnLevel}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store")
	}

	if cfg.Driver == DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get connection pool")
		}
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	zlog.Info().Msgf("Event store opened: driver=%s", dialector.Name())
	return New(db, cfg.TTL)
}

// New wraps an open database. ttl is the freshness window used by Fresh.
func New(db *gorm.DB, ttl time.Duration) (*Store, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate store")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// TTL returns the freshness window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put caches events. Older versions of replaceable and addressable events
// are replaced by newer ones and never the other way around.
func (s *Store) Put(ctx context.Context, evts ...*nostr.Event) error {
	now := s.now().UnixMilli()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, evt := range evts {
			if evt == nil || evt.ID == "" {
				continue
			}
			if err := put(tx, evt, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(tx *gorm.DB, evt *nostr.Event, now int64) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}
	rec := EventRecord{
		ID:          evt.ID,
		VersionKey:  versionKey(evt),
		Kind:        evt.Kind,
		Pubkey:      evt.PubKey,
		D:           dTag(evt),
		PublishedAt: int64(evt.CreatedAt),
		Raw:         string(raw),
		FetchedAt:   now,
	}

	var existing EventRecord
	err = tx.Where("version_key = ?", rec.VersionKey).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(tx.Create(&rec).Error, "failed to insert event")
	case err != nil:
		return errors.Wrap(err, "failed to read cached event")
	}

	if existing.ID == rec.ID {
		return errors.Wrap(
			tx.Model(&EventRecord{}).Where("id = ?", rec.ID).Update("fetched_at", now).Error,
			"failed to refresh event")
	}
	if existing.PublishedAt > rec.PublishedAt ||
		(existing.PublishedAt == rec.PublishedAt && existing.ID < rec.ID) {
		// A newer version is cached; still counts as a fresh fetch.
		return errors.Wrap(
			tx.Model(&EventRecord{}).Where("id = ?", existing.ID).Update("fetched_at", now).Error,
			"failed to refresh event")
	}

	if err := tx.Delete(&EventRecord{}, "id = ?", existing.ID).Error; err != nil {
		return errors.Wrap(err, "failed to replace event")
	}
	return errors.Wrap(tx.Create(&rec).Error, "failed to insert event")
}

// Query returns cached events matching filter, newest first. Records fetched
// more than maxAge ago are ignored; maxAge <= 0 accepts any age.
// Only ids, kinds, authors and #d are pushed down to SQL; the rest of the
// filter is applied in memory.
func (s *Store) Query(ctx context.Context, filter nostr.Filter, maxAge time.Duration) ([]*nostr.Event, error) {
	q := s.db.WithContext(ctx).Model(&EventRecord{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if len(filter.Kinds) > 0 {
		q = q.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Authors) > 0 {
		q = q.Where("pubkey IN ?", filter.Authors)
	}
	if ds, ok := filter.Tags["d"]; ok && len(ds) > 0 {
		q = q.Where("d IN ?", ds)
	}
	if maxAge > 0 {
		q = q.Where("fetched_at >= ?", s.now().Add(-maxAge).UnixMilli())
	}

	var records []EventRecord
	if err := q.Order("published_at DESC").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query store")
	}

	out := make([]*nostr.Event, 0, len(records))
	for _, rec := range records {
		var evt nostr.Event
		if err := json.Unmarshal([]byte(rec.Raw), &evt); err != nil {
			zlog.Warn().Msgf("Dropping corrupt cached event %s: %v", rec.ID, err)
			continue
		}
		if !filter.Matches(&evt) {
			continue
		}
		out = append(out, &evt)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Fresh returns cached events fetched within the TTL.
func (s *Store) Fresh(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	return s.Query(ctx, filter, s.ttl)
}

// Prune deletes records fetched more than olderThan ago.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).Where("fetched_at < ?", s.now().Add(-olderThan).UnixMilli()).Delete(&EventRecord{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to prune store")
	}
	return res.RowsAffected, nil
}

// Count returns the number of cached events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).Count(&n).Error
	return n, errors.Wrap(err, "failed to count events")
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func versionKey(evt *nostr.Event) string {
	switch {
	case events.IsAddressable(evt.Kind):
		return strconv.Itoa(evt.Kind) + ":" + evt.PubKey + ":" + dTag(evt)
	case events.IsReplaceable(evt.Kind):
		return strconv.Itoa(evt.Kind) + ":" + evt.PubKey
	default:
		return evt.ID
	}
}

func dTag(evt *nostr.Event) string {
	for _, t := range evt.Tags {
		if len(t) >= 2 && t[0] == "d" {
			return t[1]
		}
	}
	return ""
}
