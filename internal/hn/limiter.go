package hn

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// HostLimiter paces item requests. The item API normally lives on one
// host, but a limiter is kept per host so a client pointed at a mirror
// does not share its budget.
type HostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	every rate.Limit
	burst int
}

// NewHostLimiter allows reqPerSec requests per host. A non-positive rate
// disables pacing.
func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	every := rate.Limit(reqPerSec)
	if reqPerSec <= 0 {
		every = rate.Inf
	}
	return &HostLimiter{
		hosts: make(map[string]*rate.Limiter),
		every: every,
		burst: max(burst, 1),
	}
}

func (hl *HostLimiter) forHost(host string) *rate.Limiter {
	host = strings.ToLower(host)

	hl.mu.Lock()
	defer hl.mu.Unlock()
	lim, ok := hl.hosts[host]
	if !ok {
		lim = rate.NewLimiter(hl.every, hl.burst)
		hl.hosts[host] = lim
	}
	return lim
}

// WaitURL blocks until an item request to raw may be sent. Unparseable
// URLs share one bucket.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	var host string
	if u, err := url.Parse(raw); err == nil {
		host = u.Host
	}
	if err := hl.forHost(host).Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limit %s", host)
	}
	return nil
}
