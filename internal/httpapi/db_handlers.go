package httpapi

import (
	"database/sql"
	"net/http"
	"strings"
)

var checkpointModes = map[string]bool{
	"PASSIVE":  true,
	"FULL":     true,
	"RESTART":  true,
	"TRUNCATE": true,
}

type DBHandler struct {
	DB *sql.DB
}

type checkpointResult struct {
	Mode         string `json:"mode"`
	Busy         int    `json:"busy"`
	Log          int    `json:"log"`
	Checkpointed int    `json:"checkpointed"`
}

// Checkpoint runs a WAL checkpoint. ?mode= picks the SQLite mode, FULL by
// default.
func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if !isLocal(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "local requests only")
		return
	}

	mode := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("mode")))
	if mode == "" {
		mode = "FULL"
	}
	if !checkpointModes[mode] {
		WriteError(w, r, http.StatusBadRequest, "bad_mode", "mode must be PASSIVE, FULL, RESTART or TRUNCATE")
		return
	}

	res := checkpointResult{Mode: mode}
	// mode comes from the allow-list above; PRAGMA arguments cannot be bound.
	err := h.DB.QueryRowContext(r.Context(), `PRAGMA wal_checkpoint(`+mode+`);`).
		Scan(&res.Busy, &res.Log, &res.Checkpointed)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "checkpoint_failed", err.Error())
		return
	}
	writeJSON(w, res)
}
