package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"whoshiring-engine/internal/config"
	"whoshiring-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setGeocoderKeyReq struct {
	Key string `json:"key"`
}

func (h SecretsHandler) SetGeocoderKey(w http.ResponseWriter, r *http.Request) {
	if !isLocal(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "local requests only")
		return
	}
	var req setGeocoderKeyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetGeocoderKey(secrets.GeocoderKeyringAccount(cfg), req.Key); err != nil {
		WriteError(w, r, http.StatusBadRequest, "store_failed", "failed to store key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
