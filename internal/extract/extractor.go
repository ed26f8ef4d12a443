// Package extract turns a raw comment body into a Posting.
package extract

import (
	"context"
	"strings"

	"whoshiring-engine/internal/domain"

	"github.com/rs/zerolog"
)

// Locator resolves a city name to coordinates. found=false with a nil error
// means the city is not known to the geocoder.
type Locator interface {
	Resolve(ctx context.Context, city string) (c domain.Coordinates, found bool, err error)
}

type Extractor struct {
	gazetteer *Gazetteer
	skills    []string
	lower     []string
	locator   Locator
	log       zerolog.Logger
}

type Option func(*Extractor)

func WithLogger(l zerolog.Logger) Option { return func(e *Extractor) { e.log = l } }

// New builds an extractor. locator may be nil, in which case recognized
// cities are kept without coordinates.
func New(g *Gazetteer, skills []string, locator Locator, opts ...Option) *Extractor {
	if g == nil {
		g = DefaultGazetteer()
	}
	e := &Extractor{
		gazetteer: g,
		locator:   locator,
		log:       zerolog.Nop(),
	}
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		e.skills = append(e.skills, s)
		e.lower = append(e.lower, strings.ToLower(s))
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract never fails. Fields that cannot be determined are left unknown.
func (e *Extractor) Extract(ctx context.Context, c domain.Comment) domain.Posting {
	text := plainText(c.Text)
	lower := strings.ToLower(text)

	p := domain.Posting{
		ID:          c.ID,
		PostedAt:    c.Time.UTC(),
		Title:       domain.Unknown(),
		Location:    e.location(ctx, c.ID, text),
		Skills:      e.matchSkills(lower),
		Visa:        strings.Contains(lower, "visa"),
		WorkMode:    workMode(lower),
		Website:     domain.Unknown(),
		Description: text,
	}
	if t := firstToken(c.Text); t != "" {
		p.Title = domain.Known(t)
	}
	if href := firstLink(c.Text); href != "" {
		p.Website = domain.Known(href)
	}
	return p
}

func (e *Extractor) location(ctx context.Context, id int64, text string) domain.Location {
	city, ok := e.gazetteer.Find(text)
	if !ok {
		return domain.UnknownLocation()
	}
	if e.locator == nil {
		return domain.CityOnly(city)
	}
	coords, found, err := e.locator.Resolve(ctx, city)
	switch {
	case err != nil:
		e.log.Warn().Err(err).Int64("id", id).Str("city", city).Msg("geocode failed; keeping city only")
		return domain.CityOnly(city)
	case !found:
		e.log.Debug().Int64("id", id).Str("city", city).Msg("city not found by geocoder")
		return domain.UnknownLocation()
	}
	return domain.GeocodedLocation(city, coords)
}

func (e *Extractor) matchSkills(lower string) []string {
	var out []string
	for i, s := range e.lower {
		if strings.Contains(lower, s) {
			out = append(out, e.skills[i])
		}
	}
	return out
}

func workMode(lower string) domain.WorkMode {
	remote := strings.Contains(lower, "remote")
	onsite := strings.Contains(lower, "onsite")
	switch {
	case remote && onsite:
		return domain.WorkModeRemoteAndOnsite
	case remote:
		return domain.WorkModeRemote
	case onsite:
		return domain.WorkModeOnsite
	}
	return domain.WorkModeUnknown
}
