package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"whoshiring-engine/internal/config"
	"whoshiring-engine/internal/extract"
	"whoshiring-engine/internal/geo"
	"whoshiring-engine/internal/hn"
	"whoshiring-engine/internal/ingest"
	"whoshiring-engine/internal/logging"
	"whoshiring-engine/internal/secrets"
	"whoshiring-engine/internal/store"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	dbFile   = "whoshiring.db"
	lockFile = "ingest.lock"
)

type commonFlags struct {
	dataDir string
	cfgPath string
	envFile string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.dataDir, "data-dir", "", "data directory")
	fs.StringVar(&c.cfgPath, "config", "", "config file")
	fs.StringVar(&c.envFile, "env-file", ".env", "dotenv file")
}

// loadConfig resolves the data dir, bootstraps the config file if needed and
// applies environment overrides.
func (c commonFlags) loadConfig() (config.Config, string, config.Validation, error) {
	var vr config.Validation
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return config.Config{}, "", vr, errors.Wrap(err, "load env file")
	}

	dataDir := c.dataDir
	if dataDir == "" {
		dataDir = strings.TrimSpace(os.Getenv(config.EnvDataDir))
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return config.Config{}, "", vr, errors.Wrap(err, "create data dir")
	}

	cfgPath := c.cfgPath
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return config.Config{}, "", vr, err
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, "", vr, err
	}
	if err := config.OverlayEnv(&cfg); err != nil {
		return config.Config{}, "", vr, err
	}
	if c.dataDir != "" || cfg.App.DataDir == "" {
		cfg.App.DataDir = dataDir
	}

	cfg, vr = config.NormalizeAndValidate(cfg)
	if !vr.OK() {
		return cfg, cfgPath, vr, errors.New("invalid config:\n- " + strings.Join(vr.Errors, "\n- "))
	}
	return cfg, cfgPath, vr, nil
}

// app holds the components one process shares.
type app struct {
	cfg      config.Config
	cfgPath  string
	log      zerolog.Logger
	db       *store.DB
	resolver *geo.Resolver
	pipeline *ingest.Pipeline
	runner   *ingest.Runner
}

func newApp(ctx context.Context, flags commonFlags, logOut io.Writer, pub ingest.Publisher) (*app, error) {
	cfg, cfgPath, vr, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(logOut, cfg.App.LogLevel, cfg.App.PrettyLogs)
	for _, w := range vr.Warnings {
		log.Warn().Str("component", "config").Msg(w)
	}

	db, err := store.Open(filepath.Join(cfg.App.DataDir, dbFile))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, cfgPath: cfgPath, log: log, db: db}

	src := hn.New(cfg.Source.ItemBaseURL,
		hn.WithUserAgent(cfg.Source.UserAgent),
		hn.WithLimiter(hn.NewHostLimiter(cfg.Source.RequestsPerSecond, 1)),
	)
	src.HTTP.Timeout = cfg.SourceTimeout()

	key, err := secrets.GetGeocoderKey(secrets.GeocoderKeyringAccount(cfg))
	if err != nil && !errors.Is(err, secrets.ErrNoKey) {
		log.Warn().Err(err).Str("component", "secrets").Msg("keychain unavailable; geocoding without a key")
	}
	nominatim := geo.NewNominatim(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, key, cfg.GeocoderTimeout())

	a.resolver, err = geo.NewResolver(ctx, db.Pool, nominatim,
		geo.WithInterval(cfg.GeocodeInterval()),
		geo.WithLogger(log.With().Str("component", "geo").Logger()),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gaz, err := loadGazetteer(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Debug().Int("cities", gaz.Len()).Msg("gazetteer loaded")

	ex := extract.New(gaz, cfg.Extract.Skills, a.resolver,
		extract.WithLogger(log.With().Str("component", "extract").Logger()),
	)
	a.pipeline = ingest.NewPipeline(db.Pool, src, ex, cfg.Source.ThreadIDs, log)
	a.runner = ingest.NewRunner(a.pipeline, filepath.Join(cfg.App.DataDir, lockFile), pub, log)
	return a, nil
}

// loadGazetteer reads the configured city file, relative to the data dir,
// and falls back to the built-in list when it does not exist.
func loadGazetteer(cfg config.Config) (*extract.Gazetteer, error) {
	path := cfg.Extract.GazetteerPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.App.DataDir, path)
	}
	g, err := extract.LoadGazetteer(path)
	if errors.Is(err, os.ErrNotExist) {
		return extract.DefaultGazetteer(), nil
	}
	return g, err
}

func (a *app) Close() {
	if a.resolver != nil {
		_ = a.resolver.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// openStore is for commands that only touch the database.
func openStore(flags commonFlags) (*store.DB, error) {
	cfg, _, _, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(cfg.App.DataDir, dbFile))
}
