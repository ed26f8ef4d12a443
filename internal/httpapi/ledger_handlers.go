package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"whoshiring-engine/internal/store"
)

type LedgerHandler struct {
	DB *sql.DB
}

func (h LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := store.ListBadIDs(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "ledger_failed", err.Error())
		return
	}
	if ids == nil {
		ids = []store.BadID{}
	}
	writeJSON(w, ids)
}

// DeleteByPath removes /ledger/{id} so the id is retried on the next run.
func (h LedgerHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	if !isLocal(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "local requests only")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/ledger/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	n, err := store.ClearBadIDs(r.Context(), h.DB, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "ledger_failed", err.Error())
		return
	}
	if n == 0 {
		WriteError(w, r, http.StatusNotFound, "not_found", "id not on the ledger")
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
