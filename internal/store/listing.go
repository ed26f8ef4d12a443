package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnknownColumn is returned for a filter or sort column outside the allow-list.
var ErrUnknownColumn = errors.New("unknown column")

// Filter narrows a listing on one column. title and skills match by
// case-insensitive substring, onsite by equality.
type Filter struct {
	Column string
	Value  string
}

type ListOpts struct {
	Filters []Filter
	From    time.Time // inclusive; zero means open
	To      time.Time // exclusive; zero means open
	Sort    string    // date | title | id
	Limit   int

	// GeocodedOnly keeps rows whose location carries coordinates.
	GeocodedOnly bool
}

type filterColumn struct {
	sql       string
	substring bool
}

// whitelisted filter columns (prevents SQL injection)
var filterColumns = map[string]filterColumn{
	"title":  {sql: "title", substring: true},
	"skills": {sql: "skills", substring: true},
	"onsite": {sql: "onsite"},
}

var sortColumns = map[string]string{
	"date":  "posted_unix DESC",
	"title": "title ASC",
	"id":    "id ASC",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func ListPostings(ctx context.Context, db *sql.DB, opts ListOpts) ([]Row, error) {
	if opts.Sort == "" {
		opts.Sort = "date"
	}
	orderBy, ok := sortColumns[opts.Sort]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "sort %q", opts.Sort)
	}
	if opts.Limit <= 0 || opts.Limit > 5000 {
		opts.Limit = 5000
	}

	var where []string
	var args []any
	for _, f := range opts.Filters {
		col, ok := filterColumns[f.Column]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownColumn, "filter %q", f.Column)
		}
		if f.Value == "" {
			continue
		}
		if col.substring {
			where = append(where, col.sql+` LIKE ? ESCAPE '\'`)
			args = append(args, "%"+likeEscaper.Replace(f.Value)+"%")
		} else {
			where = append(where, col.sql+" = ?")
			args = append(args, f.Value)
		}
	}
	if !opts.From.IsZero() {
		where = append(where, "posted_unix >= ?")
		args = append(args, opts.From.Unix())
	}
	if !opts.To.IsZero() {
		where = append(where, "posted_unix < ?")
		args = append(args, opts.To.Unix())
	}
	if opts.GeocodedOnly {
		// geocoded rows are "<city>, <lat>, <lon>"; city-only rows have no comma
		where = append(where, "location LIKE '%, %, %'")
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit)

	// only allow-listed fragments are formatted into the statement
	query := fmt.Sprintf(`
SELECT id, posted_at, posted_unix, title, location, skills, visa, onsite, website, description
FROM jobs
%s
ORDER BY %s
LIMIT ?;
`, clause, orderBy)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list postings")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.ID,
			&r.PostedAt,
			&r.PostedUnix,
			&r.Title,
			&r.Location,
			&r.Skills,
			&r.Visa,
			&r.WorkMode,
			&r.Website,
			&r.Description,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountPostings returns the number of persisted postings.
func CountPostings(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	return n, err
}
