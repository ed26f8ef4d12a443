package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"whoshiring-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func posting(id int64, title string, at time.Time) domain.Posting {
	return domain.Posting{
		ID:          id,
		PostedAt:    at,
		Title:       domain.Known(title),
		Location:    domain.UnknownLocation(),
		WorkMode:    domain.WorkModeUnknown,
		Website:     domain.Unknown(),
		Description: title + " description",
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)

	for _, table := range []string{"jobs", "bad_ids", "cache", "runs"} {
		var n int
		err := db.Pool.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?;`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestEncodePostingSentinels(t *testing.T) {
	r := EncodePosting(domain.Posting{ID: 1, PostedAt: time.Unix(796996800, 0)})

	assert.Equal(t, "04/04/1995, 12:00:00", r.PostedAt)
	assert.Equal(t, UnknownTitle, r.Title)
	assert.Equal(t, UnknownLocation, r.Location)
	assert.Equal(t, UnknownSkills, r.Skills)
	assert.Equal(t, "No", r.Visa)
	assert.Equal(t, "Unknown Remote/Onsite", r.WorkMode)
	assert.Equal(t, UnknownWebsite, r.Website)
}

func TestRowRoundTrip(t *testing.T) {
	p := domain.Posting{
		ID:          42,
		PostedAt:    time.Unix(796996800, 0).UTC(),
		Title:       domain.Known("Acme"),
		Location:    domain.GeocodedLocation("Detroit", domain.Coordinates{Lat: 42.3314, Lon: -83.0458}),
		Skills:      []string{"go", "sql"},
		Visa:        true,
		WorkMode:    domain.WorkModeRemoteAndOnsite,
		Website:     domain.Known("https://acme.example"),
		Description: "Acme | Detroit",
	}
	r := EncodePosting(p)
	assert.Equal(t, "Detroit, 42.3314, -83.0458", r.Location)
	assert.Equal(t, "go,sql", r.Skills)
	assert.Equal(t, "Remote and Onsite", r.WorkMode)

	assert.Equal(t, p, r.Posting())
}

func TestParseLocation(t *testing.T) {
	assert.False(t, ParseLocation(UnknownLocation).Known)
	assert.False(t, ParseLocation("").Known)

	city := ParseLocation("Boston")
	assert.True(t, city.Known)
	assert.False(t, city.Geocoded)
	assert.Equal(t, "Boston", city.City)

	comma := ParseLocation("Washington, D.C., 38.9, -77.03")
	assert.True(t, comma.Geocoded)
	assert.Equal(t, "Washington, D.C.", comma.City)
	assert.Equal(t, -77.03, comma.Coords.Lon)
}

func TestCommitRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	at := time.Unix(1580000000, 0)

	added, err := CommitRun(ctx, db.Pool, "run-1", []domain.Posting{posting(1, "A", at), posting(2, "B", at)}, []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = CommitRun(ctx, db.Pool, "run-2", []domain.Posting{posting(1, "changed", at), posting(3, "C", at)}, []int64{8})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	ids, err := PostingIDs(ctx, db.Pool)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	// first write wins
	rows, err := ListPostings(ctx, db.Pool, ListOpts{Sort: "id"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].Title)

	bad, err := BadIDs(ctx, db.Pool)
	require.NoError(t, err)
	assert.True(t, bad.Has(7))
	assert.True(t, bad.Has(8))
	assert.False(t, bad.Has(1))
}

func TestCommitRunRollsBackOnCancel(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CommitRun(ctx, db.Pool, "run", []domain.Posting{posting(1, "A", time.Now())}, []int64{9})
	require.Error(t, err)
	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)

	n, err := CountPostings(context.Background(), db.Pool)
	require.NoError(t, err)
	assert.Zero(t, n)
	bad, err := BadIDs(context.Background(), db.Pool)
	require.NoError(t, err)
	assert.Empty(t, bad)
}

func TestCommitRunSurfacesConstraintViolations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	at := time.Unix(1580000000, 0)

	_, err := CommitRun(ctx, db.Pool, "run", []domain.Posting{posting(1, "A", at), posting(0, "zero", at)}, nil)
	require.Error(t, err)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert job 0", pe.Op)

	n, err := CountPostings(ctx, db.Pool)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = CommitRun(ctx, db.Pool, "run", nil, []int64{-4})
	assert.ErrorAs(t, err, &pe)
}

func TestOpenUsesWAL(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var mode string
	require.NoError(t, db.Pool.QueryRow(`PRAGMA journal_mode;`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	_, err := CommitRun(ctx, db.Pool, "run", []domain.Posting{posting(1, "A", time.Now())}, nil)
	require.NoError(t, err)

	var busy, log, done int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA wal_checkpoint(TRUNCATE);`).Scan(&busy, &log, &done))
	assert.Zero(t, busy)
	assert.GreaterOrEqual(t, log, 0)
	assert.GreaterOrEqual(t, done, 0)
}

func TestClearBadIDs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := CommitRun(ctx, db.Pool, "run", nil, []int64{1, 2, 3})
	require.NoError(t, err)

	n, err := ClearBadIDs(ctx, db.Pool, 2, 99)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := ListBadIDs(ctx, db.Pool)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.EqualValues(t, 1, list[0].ID)
	assert.EqualValues(t, 3, list[1].ID)

	n, err = ClearBadIDs(ctx, db.Pool)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestListPostingsFilters(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	day := func(d int) time.Time { return time.Date(2020, 1, d, 12, 0, 0, 0, time.UTC) }

	a := posting(1, "Acme", day(1))
	a.Skills = []string{"python", "sql"}
	a.WorkMode = domain.WorkModeRemote
	a.Location = domain.GeocodedLocation("Boston", domain.Coordinates{Lat: 42.36, Lon: -71.06})

	b := posting(2, "Globex", day(10))
	b.Skills = []string{"golang"}
	b.WorkMode = domain.WorkModeOnsite
	b.Location = domain.CityOnly("Detroit")

	c := posting(3, "100%_Corp", day(20))
	c.WorkMode = domain.WorkModeRemote

	_, err := CommitRun(ctx, db.Pool, "run", []domain.Posting{a, b, c}, nil)
	require.NoError(t, err)

	ids := func(rows []Row) []int64 {
		var out []int64
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	rows, err := ListPostings(ctx, db.Pool, ListOpts{Filters: []Filter{{Column: "title", Value: "acme"}}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rows))

	rows, err = ListPostings(ctx, db.Pool, ListOpts{Filters: []Filter{{Column: "skills", Value: "SQL"}}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rows))

	rows, err = ListPostings(ctx, db.Pool, ListOpts{Filters: []Filter{{Column: "onsite", Value: "Remote"}}, Sort: "id"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(rows))

	// LIKE wildcards in the value are literal
	rows, err = ListPostings(ctx, db.Pool, ListOpts{Filters: []Filter{{Column: "title", Value: "0%_"}}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(rows))
	rows, err = ListPostings(ctx, db.Pool, ListOpts{Filters: []Filter{{Column: "title", Value: "%"}}})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(rows))

	rows, err = ListPostings(ctx, db.Pool, ListOpts{From: day(5), To: day(15)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(rows))

	rows, err = ListPostings(ctx, db.Pool, ListOpts{GeocodedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rows))

	rows, err = ListPostings(ctx, db.Pool, ListOpts{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(rows))

	_, err = ListPostings(ctx, db.Pool, ListOpts{Filters: []Filter{{Column: "description; DROP TABLE jobs", Value: "x"}}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = ListPostings(ctx, db.Pool, ListOpts{Sort: "random()"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestLocationCache(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, ok, err := GetLocation(ctx, db.Pool, "Detroit")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, InsertLocation(ctx, db.Pool, "Detroit", domain.Coordinates{Lat: 42.33, Lon: -83.04}))
	// second writer is ignored
	require.NoError(t, InsertLocation(ctx, db.Pool, "Detroit", domain.Coordinates{Lat: 1, Lon: 2}))

	c, ok, err := GetLocation(ctx, db.Pool, "Detroit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: 42.33, Lon: -83.04}, c)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	start := time.Date(2020, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, RecordRun(ctx, db.Pool, RunRecord{ID: "a", StartedAt: start, FinishedAt: start.Add(time.Minute), Status: "no_new_data"}))
	require.NoError(t, RecordRun(ctx, db.Pool, RunRecord{ID: "b", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(2 * time.Hour), Status: "new_data", Added: 5}))

	runs, err := LatestRuns(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, 5, runs[0].Added)
	assert.Equal(t, start, runs[1].StartedAt)
}
