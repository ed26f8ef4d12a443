package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"whoshiring-engine/internal/domain"
	"whoshiring-engine/internal/store"

	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type JobsHandler struct {
	DB *sql.DB
}

// List serves /jobs. Filters: title and skills by substring, onsite by work
// mode, from/to as inclusive YYYY-MM-DD dates. column/value is the generic
// form of the same filters.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_query", err.Error())
		return
	}
	rows, err := store.ListPostings(r.Context(), h.DB, opts)
	if err != nil {
		writeListError(w, r, err)
		return
	}
	if rows == nil {
		rows = []store.Row{}
	}
	writeJSON(w, rows)
}

type mapPoint struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	City     string  `json:"city"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	PostedAt string  `json:"postedAt"`
	Website  string  `json:"website"`
}

// Map serves /jobs/map: the geocoded subset of /jobs as plottable points.
func (h JobsHandler) Map(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_query", err.Error())
		return
	}
	opts.GeocodedOnly = true

	rows, err := store.ListPostings(r.Context(), h.DB, opts)
	if err != nil {
		writeListError(w, r, err)
		return
	}

	points := make([]mapPoint, 0, len(rows))
	for _, row := range rows {
		loc := store.ParseLocation(row.Location)
		if !loc.Geocoded {
			continue
		}
		points = append(points, mapPoint{
			ID:       row.ID,
			Title:    row.Title,
			City:     loc.City,
			Lat:      loc.Coords.Lat,
			Lon:      loc.Coords.Lon,
			PostedAt: row.PostedAt,
			Website:  row.Website,
		})
	}
	writeJSON(w, points)
}

func writeListError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrUnknownColumn) {
		WriteError(w, r, http.StatusBadRequest, "unknown_column", err.Error())
		return
	}
	WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
}

func parseListOpts(r *http.Request) (store.ListOpts, error) {
	q := r.URL.Query()
	var opts store.ListOpts

	add := func(col, val string) error {
		val = strings.TrimSpace(val)
		if val == "" {
			return nil
		}
		if col == "onsite" {
			mode, ok := domain.ParseWorkMode(val)
			if !ok {
				return errors.Errorf("onsite: unknown work mode %q", val)
			}
			val = mode.String()
		}
		opts.Filters = append(opts.Filters, store.Filter{Column: col, Value: val})
		return nil
	}

	for _, col := range []string{"title", "skills", "onsite"} {
		if err := add(col, q.Get(col)); err != nil {
			return opts, err
		}
	}
	if col := strings.TrimSpace(q.Get("column")); col != "" {
		// the store rejects columns outside its allow-list
		if err := add(col, q.Get("value")); err != nil {
			return opts, err
		}
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return opts, errors.Errorf("from: want YYYY-MM-DD, got %q", v)
		}
		opts.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return opts, errors.Errorf("to: want YYYY-MM-DD, got %q", v)
		}
		opts.To = t.Add(24 * time.Hour)
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && !opts.From.Before(opts.To) {
		return opts, errors.New("from is after to")
	}

	opts.Sort = q.Get("sort")
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.Errorf("limit: want a positive integer, got %q", v)
		}
		opts.Limit = n
	}
	return opts, nil
}
