package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

type RunRecord struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	Status          string    `json:"status"`
	Periods         int       `json:"periods"`
	Candidates      int       `json:"candidates"`
	Retrieved       int       `json:"retrieved"`
	Added           int       `json:"added"`
	Bad             int       `json:"bad"`
	GeocodeFailures int       `json:"geocodeFailures"`
	Error           string    `json:"error,omitempty"`
}

func RecordRun(ctx context.Context, db *sql.DB, r RunRecord) error {
	_, err := db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs(id, started_at, finished_at, status, periods, candidates, retrieved, added, bad, geocode_failures, error)
VALUES(?,?,?,?,?,?,?,?,?,?,?);`,
		r.ID,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
		r.Status,
		r.Periods,
		r.Candidates,
		r.Retrieved,
		r.Added,
		r.Bad,
		r.GeocodeFailures,
		r.Error,
	)
	return errors.Wrap(err, "record run")
}

// LatestRuns returns up to limit runs, newest first.
func LatestRuns(ctx context.Context, db *sql.DB, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, started_at, finished_at, status, periods, candidates, retrieved, added, bad, geocode_failures, error
FROM runs
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &r.Periods, &r.Candidates,
			&r.Retrieved, &r.Added, &r.Bad, &r.GeocodeFailures, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
