package ingest

import (
	"context"
	"database/sql"
	"time"

	"whoshiring-engine/internal/domain"
	"whoshiring-engine/internal/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Source is the comment API the pipeline reads from.
type Source interface {
	FetchKids(ctx context.Context, ids []int64) ([][]int64, error)
	TextFetcher
}

type Extractor interface {
	Extract(ctx context.Context, c domain.Comment) domain.Posting
}

type Outcome int

const (
	OutcomeNewData Outcome = iota
	OutcomeNoNewData
	// OutcomePartial is a completed run that blacklisted ids or could not
	// geocode some cities.
	OutcomePartial
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNewData:
		return "new_data"
	case OutcomeNoNewData:
		return "no_new_data"
	case OutcomePartial:
		return "partial"
	}
	return "unknown"
}

// Report summarizes one run.
type Report struct {
	RunID           string    `json:"runId"`
	Periods         int       `json:"periods"`
	Candidates      int       `json:"candidates"`
	Retrieved       int       `json:"retrieved"`
	Added           int       `json:"added"`
	BadIDs          []int64   `json:"badIds"`
	GeocodeFailures int       `json:"geocodeFailures"`
	Started         time.Time `json:"started"`
	Finished        time.Time `json:"finished"`
}

func (r Report) Outcome() Outcome {
	switch {
	case len(r.BadIDs) > 0 || r.GeocodeFailures > 0:
		return OutcomePartial
	case r.Added == 0:
		return OutcomeNoNewData
	}
	return OutcomeNewData
}

type Pipeline struct {
	db        *sql.DB
	src       Source
	retriever *Retriever
	extractor Extractor
	threadIDs []int64
	log       zerolog.Logger
}

func NewPipeline(db *sql.DB, src Source, ex Extractor, threadIDs []int64, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		db:        db,
		src:       src,
		retriever: NewRetriever(src, log),
		extractor: ex,
		threadIDs: threadIDs,
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// Run performs one batch. Transport failures on the thread roots and
// persistence failures are returned as errors; the report is still filled
// with whatever was done.
func (p *Pipeline) Run(ctx context.Context) (rep Report, err error) {
	rep = Report{RunID: uuid.NewString(), Started: time.Now().UTC()}
	log := p.log.With().Str("run", rep.RunID).Logger()

	defer func() {
		rep.Finished = time.Now().UTC()
		p.record(context.WithoutCancel(ctx), log, rep, err)
	}()

	kids, err := p.src.FetchKids(ctx, p.threadIDs)
	if err != nil {
		return rep, errors.Wrap(err, "fetch thread roots")
	}
	if len(kids) != len(p.threadIDs) {
		return rep, errors.Errorf("fetch thread roots: got %d kid lists for %d threads", len(kids), len(p.threadIDs))
	}
	periods := make([]domain.Period, len(p.threadIDs))
	for i, id := range p.threadIDs {
		periods[i] = domain.Period{ThreadID: id, IDs: kids[i]}
	}
	rep.Periods = len(periods)

	persisted, err := store.PostingIDs(ctx, p.db)
	if err != nil {
		return rep, &store.PersistenceError{Op: "load posting ids", Err: err}
	}
	bad, err := store.BadIDs(ctx, p.db)
	if err != nil {
		return rep, &store.PersistenceError{Op: "load bad ids", Err: err}
	}

	filtered := FilterPeriods(periods, persisted, bad)
	rep.Candidates = CountIDs(filtered)
	log.Info().
		Int("periods", rep.Periods).
		Int("seen", CountIDs(periods)).
		Int("candidates", rep.Candidates).
		Msg("filtered")

	got, err := p.retriever.Retrieve(ctx, filtered)
	if err != nil {
		return rep, errors.Wrap(err, "retrieve")
	}
	rep.Retrieved = len(got.Comments)
	rep.BadIDs = got.BadIDs

	postings := make([]domain.Posting, 0, len(got.Comments))
	for _, c := range got.Comments {
		post := p.extractor.Extract(ctx, c)
		if post.Location.Known && !post.Location.Geocoded {
			rep.GeocodeFailures++
		}
		postings = append(postings, post)
	}

	rep.Added, err = store.CommitRun(ctx, p.db, rep.RunID, postings, got.BadIDs)
	if err != nil {
		return rep, err
	}
	log.Info().
		Int("added", rep.Added).
		Int("bad", len(rep.BadIDs)).
		Int("geocode_failures", rep.GeocodeFailures).
		Str("outcome", rep.Outcome().String()).
		Msg("run committed")
	return rep, nil
}

func (p *Pipeline) record(ctx context.Context, log zerolog.Logger, rep Report, runErr error) {
	rec := store.RunRecord{
		ID:              rep.RunID,
		StartedAt:       rep.Started,
		FinishedAt:      rep.Finished,
		Status:          rep.Outcome().String(),
		Periods:         rep.Periods,
		Candidates:      rep.Candidates,
		Retrieved:       rep.Retrieved,
		Added:           rep.Added,
		Bad:             len(rep.BadIDs),
		GeocodeFailures: rep.GeocodeFailures,
	}
	if runErr != nil {
		rec.Status = "fatal"
		rec.Error = runErr.Error()
	}
	if err := store.RecordRun(ctx, p.db, rec); err != nil {
		log.Warn().Err(err).Msg("record run failed")
	}
}
