package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"whoshiring-engine/internal/domain"

	"github.com/pkg/errors"
)

// Sentinels written for fields that could not be determined.
const (
	UnknownTitle    = "Unknown Title"
	UnknownLocation = "Unknown Location"
	UnknownSkills   = "Unknown Skills"
	UnknownWebsite  = "Unknown Website"

	// PostedAtLayout renders as MM/DD/YYYY, HH:MM:SS.
	PostedAtLayout = "01/02/2006, 15:04:05"
)

// Row is the persisted shape of a posting.
type Row struct {
	ID          int64  `json:"id"`
	PostedAt    string `json:"postedAt"`
	PostedUnix  int64  `json:"-"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Skills      string `json:"skills"`
	Visa        string `json:"visaSponsorship"`
	WorkMode    string `json:"workMode"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

func EncodePosting(p domain.Posting) Row {
	r := Row{
		ID:          p.ID,
		PostedAt:    p.PostedAt.UTC().Format(PostedAtLayout),
		PostedUnix:  p.PostedAt.Unix(),
		Title:       p.Title.Or(UnknownTitle),
		Location:    UnknownLocation,
		Skills:      UnknownSkills,
		Visa:        "No",
		WorkMode:    p.WorkMode.String(),
		Website:     p.Website.Or(UnknownWebsite),
		Description: p.Description,
	}
	if p.Location.Known {
		r.Location = p.Location.Composite()
	}
	if len(p.Skills) > 0 {
		r.Skills = strings.Join(p.Skills, ",")
	}
	if p.Visa {
		r.Visa = "Yes"
	}
	return r
}

// Posting decodes a row, turning sentinel strings back into unknown fields.
func (r Row) Posting() domain.Posting {
	p := domain.Posting{
		ID:          r.ID,
		PostedAt:    time.Unix(r.PostedUnix, 0).UTC(),
		Title:       decodeField(r.Title, UnknownTitle),
		Location:    ParseLocation(r.Location),
		Visa:        r.Visa == "Yes",
		Website:     decodeField(r.Website, UnknownWebsite),
		Description: r.Description,
	}
	if r.Skills != UnknownSkills && r.Skills != "" {
		p.Skills = strings.Split(r.Skills, ",")
	}
	p.WorkMode, _ = domain.ParseWorkMode(r.WorkMode)
	return p
}

func decodeField(v, sentinel string) domain.Field {
	if v == sentinel || v == "" {
		return domain.Unknown()
	}
	return domain.Known(v)
}

// ParseLocation reads "<city>, <lat>, <lon>", a bare city, or the sentinel.
func ParseLocation(s string) domain.Location {
	s = strings.TrimSpace(s)
	if s == "" || s == UnknownLocation {
		return domain.UnknownLocation()
	}
	parts := strings.Split(s, ", ")
	if len(parts) >= 3 {
		lat, err1 := strconv.ParseFloat(parts[len(parts)-2], 64)
		lon, err2 := strconv.ParseFloat(parts[len(parts)-1], 64)
		if err1 == nil && err2 == nil {
			city := strings.Join(parts[:len(parts)-2], ", ")
			return domain.GeocodedLocation(city, domain.Coordinates{Lat: lat, Lon: lon})
		}
	}
	return domain.CityOnly(s)
}

// CommitRun writes the parsed postings and the newly found bad ids in one
// transaction. Ids already present are left untouched. It returns how many
// postings were new.
func CommitRun(ctx context.Context, db *sql.DB, runID string, postings []domain.Posting, badIDs []int64) (added int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	jobStmt, err := tx.PrepareContext(ctx, `
INSERT INTO jobs (id, posted_at, posted_unix, title, location, skills, visa, onsite, website, description, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;`)
	if err != nil {
		return 0, &PersistenceError{Op: "prepare jobs", Err: err}
	}
	defer jobStmt.Close()

	for _, p := range postings {
		r := EncodePosting(p)
		res, err := jobStmt.ExecContext(ctx,
			r.ID, r.PostedAt, r.PostedUnix, r.Title, r.Location, r.Skills, r.Visa, r.WorkMode, r.Website, r.Description, runID,
		)
		if err != nil {
			return 0, &PersistenceError{Op: "insert job " + strconv.FormatInt(r.ID, 10), Err: err}
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if len(badIDs) > 0 {
		badStmt, err := tx.PrepareContext(ctx, `INSERT INTO bad_ids (id, recorded_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING;`)
		if err != nil {
			return 0, &PersistenceError{Op: "prepare bad_ids", Err: err}
		}
		defer badStmt.Close()

		now := time.Now().UTC().Format(time.RFC3339)
		for _, id := range badIDs {
			if _, err := badStmt.ExecContext(ctx, id, now); err != nil {
				return 0, &PersistenceError{Op: "insert bad id " + strconv.FormatInt(id, 10), Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{Op: "commit", Err: err}
	}
	return added, nil
}

// IDSet is a set of comment ids.
type IDSet map[int64]struct{}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// PostingIDs returns the ids of every persisted posting.
func PostingIDs(ctx context.Context, db *sql.DB) (IDSet, error) {
	return loadIDs(ctx, db, `SELECT id FROM jobs;`)
}

// BadIDs returns the bad-id ledger.
func BadIDs(ctx context.Context, db *sql.DB) (IDSet, error) {
	return loadIDs(ctx, db, `SELECT id FROM bad_ids;`)
}

func loadIDs(ctx context.Context, db *sql.DB, query string) (IDSet, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "load ids")
	}
	defer rows.Close()

	out := IDSet{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan id")
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

type BadID struct {
	ID         int64  `json:"id"`
	RecordedAt string `json:"recordedAt"`
}

// ListBadIDs returns the ledger ordered by id.
func ListBadIDs(ctx context.Context, db *sql.DB) ([]BadID, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, recorded_at FROM bad_ids ORDER BY id;`)
	if err != nil {
		return nil, errors.Wrap(err, "list bad ids")
	}
	defer rows.Close()

	var out []BadID
	for rows.Next() {
		var b BadID
		if err := rows.Scan(&b.ID, &b.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ClearBadIDs removes the given ids from the ledger, or the whole ledger
// when ids is empty.
func ClearBadIDs(ctx context.Context, db *sql.DB, ids ...int64) (removed int64, err error) {
	if len(ids) == 0 {
		res, err := db.ExecContext(ctx, `DELETE FROM bad_ids;`)
		if err != nil {
			return 0, errors.Wrap(err, "clear bad ids")
		}
		return res.RowsAffected()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM bad_ids WHERE id = ?;`, id)
		if err != nil {
			return 0, errors.Wrapf(err, "clear bad id %d", id)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, tx.Commit()
}
