package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"whoshiring-engine/internal/events"
	"whoshiring-engine/internal/geo"
	"whoshiring-engine/internal/ingest"
	"whoshiring-engine/internal/store"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type IngestHandler struct {
	DB       *sql.DB
	Runner   IngestRunner
	RunCtx   context.Context
	GeoStats func() geo.Stats
	Hub      *events.Hub
	Log      zerolog.Logger
}

type streamStats struct {
	Subscribers int   `json:"subscribers"`
	Dropped     int64 `json:"dropped"`
}

type statusResponse struct {
	Ingest   ingest.Status     `json:"ingest"`
	Postings int               `json:"postings"`
	BadIDs   int               `json:"badIds"`
	Runs     []store.RunRecord `json:"runs"`
	Geo      *geo.Stats        `json:"geo,omitempty"`
	Events   *streamStats      `json:"events,omitempty"`
}

func (h IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp statusResponse
	if h.Runner != nil {
		resp.Ingest = h.Runner.Status()
	}

	var err error
	if resp.Postings, err = store.CountPostings(ctx, h.DB); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	bad, err := store.BadIDs(ctx, h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	resp.BadIDs = len(bad)
	if resp.Runs, err = store.LatestRuns(ctx, h.DB, 10); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	if resp.Runs == nil {
		resp.Runs = []store.RunRecord{}
	}
	if h.GeoStats != nil {
		st := h.GeoStats()
		resp.Geo = &st
	}
	if h.Hub != nil {
		resp.Events = &streamStats{Subscribers: h.Hub.Subscribers(), Dropped: h.Hub.Dropped()}
	}
	writeJSON(w, resp)
}

// Run starts a pipeline run in the background and answers 202, or 409 when
// one is already going.
func (h IngestHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "no_runner", "ingest is not configured")
		return
	}
	if h.Runner.Status().Running {
		WriteError(w, r, http.StatusConflict, "already_running", "ingest already running")
		return
	}

	ctx := h.RunCtx
	if ctx == nil {
		ctx = context.Background()
	}
	reqID := RequestIDFrom(r.Context())
	go func() {
		rep, err := h.Runner.RunOnce(ctx)
		switch {
		case errors.Is(err, ingest.ErrBusy):
			h.Log.Info().Str("request_id", reqID).Msg("ingest already running")
		case err != nil:
			h.Log.Error().Err(err).Str("request_id", reqID).Str("run", rep.RunID).Msg("ingest failed")
		default:
			h.Log.Info().Str("request_id", reqID).Str("run", rep.RunID).Int("added", rep.Added).Msg("ingest finished")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
