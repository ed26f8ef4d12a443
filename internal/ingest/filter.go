// Package ingest runs the fetch, filter, retrieve, extract and persist
// pipeline over the configured hiring threads.
package ingest

import (
	"whoshiring-engine/internal/domain"
	"whoshiring-engine/internal/store"
)

// FilterPeriods drops ids that are already persisted or on the bad-id
// ledger. The result has one period per input period, empty ones included,
// and keeps the order of ids. An id seen in an earlier period is dropped
// from later ones.
func FilterPeriods(periods []domain.Period, persisted, bad store.IDSet) []domain.Period {
	seen := make(map[int64]struct{})
	out := make([]domain.Period, len(periods))
	for i, p := range periods {
		ids := make([]int64, 0, len(p.IDs))
		for _, id := range p.IDs {
			if persisted.Has(id) || bad.Has(id) {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		out[i] = domain.Period{ThreadID: p.ThreadID, IDs: ids}
	}
	return out
}

// CountIDs is the total number of ids across periods.
func CountIDs(periods []domain.Period) int {
	n := 0
	for _, p := range periods {
		n += len(p.IDs)
	}
	return n
}
