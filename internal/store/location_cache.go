package store

import (
	"context"
	"database/sql"
	"strings"

	"whoshiring-engine/internal/domain"

	"github.com/pkg/errors"
)

// GetLocation returns the cached coordinates for a city.
func GetLocation(ctx context.Context, db *sql.DB, name string) (domain.Coordinates, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Coordinates{}, false, nil
	}

	var c domain.Coordinates
	err := db.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM cache WHERE name = ? LIMIT 1;`,
		name,
	).Scan(&c.Lat, &c.Lon)

	if err == sql.ErrNoRows {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, errors.Wrapf(err, "get cached location %q", name)
	}
	return c, true, nil
}

// InsertLocation caches coordinates for a city. An existing entry wins and
// the insert is silently dropped.
func InsertLocation(ctx context.Context, db *sql.DB, name string, c domain.Coordinates) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO cache(name, latitude, longitude)
VALUES(?,?,?)
ON CONFLICT(name) DO NOTHING;
`, name, c.Lat, c.Lon)

	return errors.Wrapf(err, "cache location %q", name)
}
