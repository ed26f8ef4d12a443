package httpapi

import "net/http"

// NewMux registers every dashboard route. Wrap it with Chain for middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	jh := JobsHandler{DB: d.DB}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/map", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Map,
	}))

	fh := FeedHandler{DB: d.DB}
	mux.HandleFunc("/feed.rss", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: fh.RSS,
	}))

	ih := IngestHandler{
		DB:       d.DB,
		Runner:   d.Runner,
		RunCtx:   d.RunCtx,
		GeoStats: d.GeoStats,
		Hub:      d.Hub,
		Log:      d.Log,
	}
	mux.HandleFunc("/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.Status,
	}))
	mux.HandleFunc("/ingest/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Run,
	}))

	lh := LedgerHandler{DB: d.DB}
	mux.HandleFunc("/ledger", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))
	mux.HandleFunc("/ledger/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: lh.DeleteByPath, // expects /ledger/{id}
	}))

	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))

	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/geocoder", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetGeocoderKey,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	return mux
}
