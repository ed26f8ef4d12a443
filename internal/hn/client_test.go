package hn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItemServer(t *testing.T, items map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v0/item/"), ".json")
		body, ok := items[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchKids(t *testing.T) {
	srv, _ := newItemServer(t, map[string]string{
		"1": `{"id":1,"kids":[10,11,12]}`,
		"2": `{"id":2,"kids":[]}`,
		"3": `{"id":3,"kids":[30]}`,
	})
	c := New(srv.URL + "/v0/item")

	kids, err := c.FetchKids(context.Background(), []int64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{30}, {10, 11, 12}, {}}, kids)
}

func TestFetchText(t *testing.T) {
	srv, _ := newItemServer(t, map[string]string{
		"123": `{"id":123,"time":796996800,"text":"TestCo | Detroit"}`,
	})
	c := New(srv.URL + "/v0/item/")

	got, err := c.FetchText(context.Background(), []int64{123})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 123, got[0].ID)
	assert.Equal(t, "TestCo | Detroit", got[0].Text)
	assert.Equal(t, time.Date(1995, 4, 4, 12, 0, 0, 0, time.UTC), got[0].Time)
}

func TestFetchErrors(t *testing.T) {
	srv, _ := newItemServer(t, map[string]string{
		"1": `{"id":1,"time":1,"text":"ok"}`,
		"2": `{"id":2,"time":1,"deleted":true}`,
		"3": `null`,
		"4": `{not json`,
		"5": `{"id":5}`,
	})
	c := New(srv.URL + "/v0/item")
	ctx := context.Background()

	cases := []struct {
		name    string
		call    func() error
		id      int64
		missing bool
	}{
		{"deleted comment", func() error { _, err := c.FetchText(ctx, []int64{1, 2}); return err }, 2, true},
		{"null item", func() error { _, err := c.FetchText(ctx, []int64{3}); return err }, 3, true},
		{"malformed json", func() error { _, err := c.FetchText(ctx, []int64{4}); return err }, 4, false},
		{"not found", func() error { _, err := c.FetchText(ctx, []int64{99}); return err }, 99, false},
		{"no kids", func() error { _, err := c.FetchKids(ctx, []int64{5}); return err }, 5, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.id, fe.ID)
			assert.Equal(t, tc.missing, errors.Is(err, ErrMissingField))
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(base).FetchKids(context.Background(), []int64{1})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FieldKids, fe.Field)
}

func TestFetchSendsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"id":1,"kids":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithUserAgent("test-agent/2")).FetchKids(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Equal(t, "test-agent/2", ua.Load())
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	srv, hits := newItemServer(t, map[string]string{
		"1": `{"id":1,"kids":[]}`,
	})
	c := New(srv.URL+"/v0/item", WithLimiter(NewHostLimiter(20, 1)))

	start := time.Now()
	_, err := c.FetchKids(context.Background(), []int64{1, 1, 1})
	require.NoError(t, err)

	assert.EqualValues(t, 3, hits.Load())
	// two waits of 50ms after the initial burst token
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestHostLimiterHonoursContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.WaitURL(ctx, "https://example.com/a"))
	assert.Error(t, hl.WaitURL(ctx, "https://example.com/b"))
	// a different host has its own bucket
	assert.NoError(t, hl.WaitURL(ctx, "https://other.example.com/a"))
}

func TestHostLimiterHostsAreCaseInsensitive(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.WaitURL(ctx, "https://Example.com/a"))
	assert.Error(t, hl.WaitURL(ctx, "https://example.COM/b"))
}

func TestHostLimiterZeroRateIsUnpaced(t *testing.T) {
	hl := NewHostLimiter(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 20; i++ {
		require.NoError(t, hl.WaitURL(ctx, "https://example.com/item"))
	}
}
