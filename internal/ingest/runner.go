package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"whoshiring-engine/internal/events"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrBusy is returned when another run holds the lock, in this process or
// another one.
var ErrBusy = errors.New("ingest already running")

type Publisher interface {
	Publish(evt string)
}

// Status is what the dashboard shows about the most recent run.
type Status struct {
	Running     bool   `json:"running"`
	LastRunAt   string `json:"lastRunAt,omitempty"`
	LastOkAt    string `json:"lastOkAt,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	LastAdded   int    `json:"lastAdded"`
	LastRunID   string `json:"lastRunId,omitempty"`
	LastOutcome string `json:"lastOutcome,omitempty"`
}

// Runner serializes pipeline runs behind a lock file and tracks status.
type Runner struct {
	pipeline *Pipeline
	lock     *flock.Flock
	pub      Publisher
	log      zerolog.Logger

	running atomic.Bool
	mu      sync.Mutex
	status  Status
}

// NewRunner guards p with the lock file at lockPath. pub may be nil.
func NewRunner(p *Pipeline, lockPath string, pub Publisher, log zerolog.Logger) *Runner {
	return &Runner{
		pipeline: p,
		lock:     flock.New(lockPath),
		pub:      pub,
		log:      log.With().Str("component", "runner").Logger(),
	}
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// RunOnce runs the pipeline unless a run is already in progress.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Report{}, ErrBusy
	}
	defer r.running.Store(false)

	ok, err := r.lock.TryLock()
	if err != nil {
		return Report{}, errors.Wrap(err, "lock")
	}
	if !ok {
		return Report{}, ErrBusy
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.log.Warn().Err(err).Msg("unlock failed")
		}
	}()

	r.update(func(s *Status) {
		s.Running = true
		s.LastRunAt = time.Now().Format(time.RFC3339)
	})

	r.publish(events.TypeIngestStarted, nil)

	rep, err := r.pipeline.Run(ctx)

	r.update(func(s *Status) {
		s.Running = false
		s.LastRunID = rep.RunID
		s.LastAdded = rep.Added
		if err != nil {
			s.LastError = err.Error()
			s.LastOutcome = "fatal"
			return
		}
		s.LastError = ""
		s.LastOkAt = time.Now().Format(time.RFC3339)
		s.LastOutcome = rep.Outcome().String()
	})

	st := r.Status()
	r.publish(events.TypeIngestFinished, events.IngestFinished{
		RunID:   rep.RunID,
		Outcome: st.LastOutcome,
		Added:   rep.Added,
		Bad:     len(rep.BadIDs),
		Error:   st.LastError,
	})
	return rep, err
}

func (r *Runner) publish(typ string, data any) {
	if r.pub == nil {
		return
	}
	r.pub.Publish(events.MakeEvent("", typ, 1, data))
}

func (r *Runner) update(fn func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}
