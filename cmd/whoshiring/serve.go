package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"whoshiring-engine/internal/config"
	"whoshiring-engine/internal/events"
	"whoshiring-engine/internal/httpapi"
	"whoshiring-engine/internal/ingest"
	"whoshiring-engine/internal/scheduler"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	noPoll := fs.Bool("no-poll", false, "serve only; do not ingest on a schedule")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	hub := events.NewHub()
	a, err := newApp(ctx, flags, stderr, hub)
	if err != nil {
		fmt.Fprintf(stderr, "whoshiring: %v\n", err)
		return exitFatal
	}
	defer a.Close()

	if err := serve(ctx, a, hub, !*noPoll); err != nil {
		a.log.Error().Err(err).Msg("serve stopped")
		return exitFatal
	}
	return exitOK
}

func serve(ctx context.Context, a *app, hub *events.Hub, poll bool) error {
	var cfgVal atomic.Value
	cfgVal.Store(a.cfg)

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          a.db.Pool,
		Hub:         hub,
		Log:         a.log.With().Str("component", "http").Logger(),
		CfgVal:      &cfgVal,
		UserCfgPath: a.cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(a.cfgPath) },
		Runner:      a.runner,
		RunCtx:      ctx,
		GeoStats:    a.resolver.Stats,
	})
	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.AccessLog(a.log.With().Str("component", "http").Logger()),
		httpapi.Recover(a.log),
		httpapi.Cors,
	)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(a.cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.log.Info().Str("addr", "http://"+addr).Str("config", a.cfgPath).Msg("dashboard listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if poll {
		g.Go(func() error {
			scheduler.Every(gctx, a.cfg.PollInterval(), "ingest", a.log, func(ctx context.Context) error {
				_, err := a.runner.RunOnce(ctx)
				if errors.Is(err, ingest.ErrBusy) {
					return nil
				}
				return err
			})
			return nil
		})
	}
	return g.Wait()
}
