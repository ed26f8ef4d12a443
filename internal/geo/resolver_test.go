package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"whoshiring-engine/internal/domain"
	"whoshiring-engine/internal/store"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	mu     sync.Mutex
	places map[string]domain.Coordinates
	err    error
	starts []time.Time
}

func (f *fakeGeocoder) Lookup(_ context.Context, city string) (domain.Coordinates, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, time.Now())
	if f.err != nil {
		return domain.Coordinates{}, false, f.err
	}
	c, ok := f.places[city]
	return c, ok, nil
}

func (f *fakeGeocoder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type failingGeocoder struct{ t *testing.T }

func (f failingGeocoder) Lookup(context.Context, string) (domain.Coordinates, bool, error) {
	f.t.Fatal("geocoder called for a cached city")
	return domain.Coordinates{}, false, nil
}

func newTestResolver(t *testing.T, g Geocoder) (*Resolver, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "geo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r, err := NewResolver(context.Background(), db.Pool, g)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, db
}

func TestResolveCachedCityNeverCallsGeocoder(t *testing.T) {
	r, db := newTestResolver(t, failingGeocoder{t})
	ctx := context.Background()
	require.NoError(t, store.InsertLocation(ctx, db.Pool, "Detroit", domain.Coordinates{Lat: 42.33, Lon: -83.04}))

	for i := 0; i < 3; i++ {
		c, ok, err := r.Resolve(ctx, "Detroit")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.Coordinates{Lat: 42.33, Lon: -83.04}, c)
	}
	assert.EqualValues(t, 3, r.Stats().CacheHits)
	assert.Zero(t, r.Stats().ExternalCalls)
}

func TestResolveFoundIsPersisted(t *testing.T) {
	g := &fakeGeocoder{places: map[string]domain.Coordinates{"Berlin": {Lat: 52.52, Lon: 13.405}}}
	r, db := newTestResolver(t, g)
	ctx := context.Background()

	c, ok, err := r.Resolve(ctx, "Berlin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 52.52, c.Lat)

	stored, ok, err := store.GetLocation(ctx, db.Pool, "Berlin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, c, stored)

	_, _, err = r.Resolve(ctx, "Berlin")
	require.NoError(t, err)
	assert.Equal(t, 1, g.calls())
}

func TestResolveNotFoundIsNotCached(t *testing.T) {
	g := &fakeGeocoder{places: map[string]domain.Coordinates{}}
	r, db := newTestResolver(t, g)
	r.interval = 0
	ctx := context.Background()

	_, ok, err := r.Resolve(ctx, "Atlantis")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.GetLocation(ctx, db.Pool, "Atlantis")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = r.Resolve(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, 2, g.calls())
	assert.EqualValues(t, 2, r.Stats().NotFound)
}

func TestResolveGeocoderError(t *testing.T) {
	g := &fakeGeocoder{err: errors.New("boom")}
	r, _ := newTestResolver(t, g)

	_, ok, err := r.Resolve(context.Background(), "Paris")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, r.Stats().Failures)
}

func TestResolveRateLimit(t *testing.T) {
	g := &fakeGeocoder{places: map[string]domain.Coordinates{"A": {Lat: 1}, "B": {Lat: 2}}}
	r, _ := newTestResolver(t, g)
	ctx := context.Background()

	_, _, err := r.Resolve(ctx, "A")
	require.NoError(t, err)
	_, _, err = r.Resolve(ctx, "B")
	require.NoError(t, err)

	require.Len(t, g.starts, 2)
	assert.GreaterOrEqual(t, g.starts[1].Sub(g.starts[0]), time.Second)
}

func TestResolveIntervalFloor(t *testing.T) {
	r, _ := newTestResolver(t, &fakeGeocoder{})
	assert.Equal(t, MinInterval, r.interval)

	r2, err := NewResolver(context.Background(), nil, &fakeGeocoder{}, WithInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer r2.Close()
	assert.Equal(t, MinInterval, r2.interval)
}

func TestResolvePaceHonoursContext(t *testing.T) {
	g := &fakeGeocoder{places: map[string]domain.Coordinates{"A": {Lat: 1}}}
	r, _ := newTestResolver(t, g)

	_, _, err := r.Resolve(context.Background(), "A")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = r.Resolve(ctx, "Z")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, g.calls())
}

func TestNominatimLookup(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/search", r.URL.Path)
		switch r.URL.Query().Get("q") {
		case "Detroit":
			_, _ = w.Write([]byte(`[{"lat":"42.3315509","lon":"-83.0466403","display_name":"Detroit"}]`))
		case "Nowhere":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL+"/", "whoshiring-test/1", "k1", time.Second)
	ctx := context.Background()

	c, ok, err := n.Lookup(ctx, "Detroit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: 42.3315509, Lon: -83.0466403}, c)
	assert.Equal(t, "whoshiring-test/1", gotUA)
	assert.Contains(t, gotQuery, "format=jsonv2")
	assert.Contains(t, gotQuery, "limit=1")
	assert.Contains(t, gotQuery, "key=k1")

	_, ok, err = n.Lookup(ctx, "Nowhere")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = n.Lookup(ctx, "Busy")
	assert.Error(t, err)
}
