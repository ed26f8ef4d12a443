package geo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"whoshiring-engine/internal/domain"

	"github.com/pkg/errors"
)

// Nominatim queries a Nominatim-compatible /search endpoint.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	// APIKey is sent as the "key" parameter when set.
	APIKey string
	HTTP   *http.Client
}

func NewNominatim(baseURL, userAgent, apiKey string, timeout time.Duration) *Nominatim {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Nominatim{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		APIKey:    apiKey,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Lookup(ctx context.Context, city string) (domain.Coordinates, bool, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if n.APIKey != "" {
		q.Set("key", n.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, false, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := n.HTTP.Do(req)
	if err != nil {
		return domain.Coordinates{}, false, errors.Wrap(err, "nominatim get")
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return domain.Coordinates{}, false, errors.Errorf("nominatim status %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	var places []place
	if err := json.NewDecoder(res.Body).Decode(&places); err != nil {
		return domain.Coordinates{}, false, errors.Wrap(err, "nominatim decode")
	}
	if len(places) == 0 {
		return domain.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, false, errors.Wrapf(err, "nominatim lat %q", places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, false, errors.Wrapf(err, "nominatim lon %q", places[0].Lon)
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, true, nil
}
