package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"whoshiring-engine/internal/config"
	"whoshiring-engine/internal/events"
	"whoshiring-engine/internal/geo"
	"whoshiring-engine/internal/ingest"

	"github.com/rs/zerolog"
)

// IngestRunner is the part of ingest.Runner the dashboard drives.
type IngestRunner interface {
	RunOnce(ctx context.Context) (ingest.Report, error)
	Status() ingest.Status
}

// Deps is everything the handlers need. It is built once in main and
// passed down; handlers hold no package-level state.
type Deps struct {
	DB  *sql.DB
	Hub *events.Hub
	Log zerolog.Logger

	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	Runner IngestRunner
	// RunCtx bounds runs started from POST /ingest/run.
	RunCtx context.Context

	// GeoStats is optional.
	GeoStats func() geo.Stats
}
