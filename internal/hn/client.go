// Package hn reads items from the Hacker News item API
// (<base>/<id>.json).
package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"whoshiring-engine/internal/domain"

	"github.com/pkg/errors"
)

const (
	FieldKids = "kids"
	FieldText = "text"
)

// ErrMissingField marks an item that decoded but lacks the requested field,
// which is how the API reports deleted and dead comments.
var ErrMissingField = errors.New("missing field")

// FetchError aborts a whole batch. ID and Field name the item that failed.
type FetchError struct {
	ID    int64
	Field string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch item %d (%s): %v", e.ID, e.Field, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
	Limiter   *HostLimiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.HTTP = hc } }
func WithLimiter(l *HostLimiter) Option     { return func(c *Client) { c.Limiter = l } }
func WithUserAgent(ua string) Option        { return func(c *Client) { c.UserAgent = ua } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/") + "/",
		UserAgent: "whoshiring/1.0 (+local)",
		HTTP:      &http.Client{Timeout: 20 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// item is the subset of the API's item object the pipeline reads.
// Pointers distinguish an absent key from a zero value.
type item struct {
	ID   int64    `json:"id"`
	Time *int64   `json:"time"`
	Text *string  `json:"text"`
	Kids *[]int64 `json:"kids"`
}

// FetchKids returns the child-id list of each id, in input order.
func (c *Client) FetchKids(ctx context.Context, ids []int64) ([][]int64, error) {
	out := make([][]int64, 0, len(ids))
	for _, id := range ids {
		it, err := c.get(ctx, id, FieldKids)
		if err != nil {
			return nil, err
		}
		if it.Kids == nil {
			return nil, &FetchError{ID: id, Field: FieldKids, Err: ErrMissingField}
		}
		out = append(out, *it.Kids)
	}
	return out, nil
}

// FetchText returns the timestamp and body of each id, in input order.
func (c *Client) FetchText(ctx context.Context, ids []int64) ([]domain.Comment, error) {
	out := make([]domain.Comment, 0, len(ids))
	for _, id := range ids {
		it, err := c.get(ctx, id, FieldText)
		if err != nil {
			return nil, err
		}
		if it.Text == nil || it.Time == nil {
			return nil, &FetchError{ID: id, Field: FieldText, Err: ErrMissingField}
		}
		out = append(out, domain.Comment{
			ID:   id,
			Time: time.Unix(*it.Time, 0).UTC(),
			Text: *it.Text,
		})
	}
	return out, nil
}

func (c *Client) itemURL(id int64) string {
	return c.BaseURL + strconv.FormatInt(id, 10) + ".json"
}

func (c *Client) get(ctx context.Context, id int64, field string) (*item, error) {
	fail := func(err error) (*item, error) {
		return nil, &FetchError{ID: id, Field: field, Err: err}
	}

	u := c.itemURL(id)
	if c.Limiter != nil {
		if err := c.Limiter.WaitURL(ctx, u); err != nil {
			return fail(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(errors.Wrap(err, "build request"))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fail(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fail(errors.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(b))))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fail(errors.Wrap(err, "read body"))
	}
	// the API answers unknown ids with a literal null
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return fail(ErrMissingField)
	}

	var it item
	if err := json.Unmarshal(body, &it); err != nil {
		return fail(errors.Wrap(err, "decode"))
	}
	return &it, nil
}
