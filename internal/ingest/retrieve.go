package ingest

import (
	"context"

	"whoshiring-engine/internal/domain"

	"github.com/rs/zerolog"
)

// TextFetcher returns the body and time of each id.
type TextFetcher interface {
	FetchText(ctx context.Context, ids []int64) ([]domain.Comment, error)
}

// Retrieval is the outcome of one pass. Both lists are in traversal order.
type Retrieval struct {
	Comments []domain.Comment
	BadIDs   []int64
}

type Retriever struct {
	src TextFetcher
	log zerolog.Logger
}

func NewRetriever(src TextFetcher, log zerolog.Logger) *Retriever {
	return &Retriever{src: src, log: log.With().Str("component", "retrieve").Logger()}
}

// Retrieve fetches ids one at a time so that one failure never blocks the
// rest. A failed id goes to BadIDs. If ctx ends the pass stops and the ids
// not yet attempted are neither retrieved nor marked bad.
func (r *Retriever) Retrieve(ctx context.Context, periods []domain.Period) (Retrieval, error) {
	var out Retrieval
	for i, p := range periods {
		if len(p.IDs) == 0 {
			r.log.Debug().Int("period", i).Int64("thread", p.ThreadID).Msg("nothing new")
			continue
		}
		r.log.Info().Int("period", i).Int64("thread", p.ThreadID).Int("ids", len(p.IDs)).Msg("retrieving")

		bad := 0
		for _, id := range p.IDs {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			got, err := r.src.FetchText(ctx, []int64{id})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return out, ctxErr
				}
				r.log.Warn().Err(err).Int64("id", id).Msg("fetch failed; marking bad")
				out.BadIDs = append(out.BadIDs, id)
				bad++
				continue
			}
			out.Comments = append(out.Comments, got...)
		}
		r.log.Info().Int("period", i).Int("retrieved", len(p.IDs)-bad).Int("bad", bad).Msg("period done")
	}
	return out, nil
}
