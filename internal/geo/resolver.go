// Package geo resolves city names to coordinates through a persistent
// cache in front of a rate-limited geocoder.
package geo

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"whoshiring-engine/internal/domain"
	"whoshiring-engine/internal/store"

	"github.com/allegro/bigcache/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// MinInterval is the shortest allowed gap between two geocoder calls.
const MinInterval = time.Second

// Geocoder looks a city up on an external service. found=false with a nil
// error means the service has no match.
type Geocoder interface {
	Lookup(ctx context.Context, city string) (c domain.Coordinates, found bool, err error)
}

type Stats struct {
	CacheHits     int64 `json:"cacheHits"`
	ExternalCalls int64 `json:"externalCalls"`
	NotFound      int64 `json:"notFound"`
	Failures      int64 `json:"failures"`
}

type Resolver struct {
	db       *sql.DB
	mem      *bigcache.BigCache
	geocoder Geocoder
	interval time.Duration
	log      zerolog.Logger

	// mu serializes external lookups; lastCall is when the previous one returned.
	mu       sync.Mutex
	lastCall time.Time

	hits, calls, notFound, failures atomic.Int64
}

type Option func(*Resolver)

func WithLogger(l zerolog.Logger) Option { return func(r *Resolver) { r.log = l } }

// WithInterval sets the gap between geocoder calls. Values below
// MinInterval are raised to it.
func WithInterval(d time.Duration) Option { return func(r *Resolver) { r.interval = d } }

func NewResolver(ctx context.Context, db *sql.DB, g Geocoder, opts ...Option) (*Resolver, error) {
	cfg := bigcache.DefaultConfig(24 * time.Hour)
	cfg.Shards = 64
	cfg.Verbose = false
	mem, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init location memory cache")
	}

	r := &Resolver{
		db:       db,
		mem:      mem,
		geocoder: g,
		interval: MinInterval,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.interval < MinInterval {
		r.interval = MinInterval
	}
	return r, nil
}

func (r *Resolver) Close() error { return r.mem.Close() }

func (r *Resolver) Stats() Stats {
	return Stats{
		CacheHits:     r.hits.Load(),
		ExternalCalls: r.calls.Load(),
		NotFound:      r.notFound.Load(),
		Failures:      r.failures.Load(),
	}
}

// Resolve returns cached coordinates when present. Otherwise it waits for
// the call interval, asks the geocoder for one match and caches a hit.
// Misses are never cached.
func (r *Resolver) Resolve(ctx context.Context, city string) (domain.Coordinates, bool, error) {
	if c, ok, err := r.cached(ctx, city); err != nil || ok {
		return c, ok, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// filled while we waited for the lock
	if c, ok, err := r.cached(ctx, city); err != nil || ok {
		return c, ok, err
	}

	if err := r.pace(ctx); err != nil {
		return domain.Coordinates{}, false, err
	}
	r.calls.Add(1)
	c, found, err := r.geocoder.Lookup(ctx, city)
	r.lastCall = time.Now()
	if err != nil {
		r.failures.Add(1)
		return domain.Coordinates{}, false, errors.Wrapf(err, "geocode %q", city)
	}
	if !found {
		r.notFound.Add(1)
		return domain.Coordinates{}, false, nil
	}

	if err := store.InsertLocation(ctx, r.db, city, c); err != nil {
		r.log.Warn().Err(err).Str("city", city).Msg("cache insert failed")
	}
	r.remember(city, c)
	return c, true, nil
}

func (r *Resolver) cached(ctx context.Context, city string) (domain.Coordinates, bool, error) {
	if b, err := r.mem.Get(city); err == nil && len(b) == 16 {
		r.hits.Add(1)
		return decodeCoords(b), true, nil
	}
	c, ok, err := store.GetLocation(ctx, r.db, city)
	if err != nil {
		return c, false, err
	}
	if ok {
		r.hits.Add(1)
		r.remember(city, c)
	}
	return c, ok, nil
}

func (r *Resolver) remember(city string, c domain.Coordinates) {
	if err := r.mem.Set(city, encodeCoords(c)); err != nil {
		r.log.Debug().Err(err).Str("city", city).Msg("memory cache set failed")
	}
}

// pace blocks until interval has passed since the previous call returned.
func (r *Resolver) pace(ctx context.Context) error {
	if r.lastCall.IsZero() {
		return nil
	}
	wait := r.interval - time.Since(r.lastCall)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func encodeCoords(c domain.Coordinates) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], math.Float64bits(c.Lat))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(c.Lon))
	return b
}

func decodeCoords(b []byte) domain.Coordinates {
	return domain.Coordinates{
		Lat: math.Float64frombits(binary.LittleEndian.Uint64(b[:8])),
		Lon: math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
	}
}
