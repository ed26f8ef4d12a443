package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx ends. A tick
// that fires while the previous run is still going is skipped.
func Every(ctx context.Context, interval time.Duration, name string, log zerolog.Logger, task Task) {
	log = log.With().Str("task", name).Logger()
	var busy atomic.Bool

	run := func() {
		if !busy.CompareAndSwap(false, true) {
			log.Debug().Msg("previous run still going; skipping tick")
			return
		}
		go func() {
			defer busy.Store(false)
			if err := task(ctx); err != nil {
				log.Error().Err(err).Msg("task failed")
			}
		}()
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
