package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"whoshiring-engine/internal/store"

	"github.com/gorilla/feeds"
)

const (
	feedSize    = 50
	itemBaseURL = "https://news.ycombinator.com/item?id="
)

type FeedHandler struct {
	DB *sql.DB
}

// RSS serves the newest postings, narrowed by the same filters as /jobs.
func (h FeedHandler) RSS(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_query", err.Error())
		return
	}
	opts.Sort = "date"
	if opts.Limit <= 0 || opts.Limit > feedSize {
		opts.Limit = feedSize
	}

	rows, err := store.ListPostings(r.Context(), h.DB, opts)
	if err != nil {
		writeListError(w, r, err)
		return
	}

	rss, err := buildFeed(rows).ToRss()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "feed_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(rss))
}

func buildFeed(rows []store.Row) *feeds.Feed {
	f := &feeds.Feed{
		Title:       "Who is hiring",
		Link:        &feeds.Link{Href: "https://news.ycombinator.com/submitted?id=whoishiring"},
		Description: "Job postings from the monthly Hacker News hiring threads",
		Created:     time.Now().UTC(),
	}
	for _, row := range rows {
		link := itemBaseURL + strconv.FormatInt(row.ID, 10)
		title := row.Title
		if loc := store.ParseLocation(row.Location); loc.Known {
			title += " | " + loc.City
		}
		f.Items = append(f.Items, &feeds.Item{
			Id:          link,
			Title:       title,
			Link:        &feeds.Link{Href: link},
			Description: summary(row),
			Created:     time.Unix(row.PostedUnix, 0).UTC(),
		})
	}
	return f
}

func summary(row store.Row) string {
	const max = 500
	d := []rune(row.Description)
	if len(d) > max {
		return string(d[:max]) + "..."
	}
	return string(d)
}
