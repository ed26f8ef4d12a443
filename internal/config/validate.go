package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg and the problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Extract.Skills = trimList(out.Extract.Skills)
	if len(out.Extract.Skills) == 0 {
		out.Extract.Skills = append([]string(nil), DefaultSkills...)
		res.addWarn("extract.skills is empty; using the built-in vocabulary.")
	}

	seenThread := map[int64]bool{}
	var threads []int64
	for _, id := range out.Source.ThreadIDs {
		if seenThread[id] {
			continue
		}
		seenThread[id] = true
		threads = append(threads, id)
	}
	out.Source.ThreadIDs = threads

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	switch strings.ToLower(out.App.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		res.addErr("app.log_level %q is not one of trace|debug|info|warn|error", out.App.LogLevel)
	}

	if !isHTTPURL(out.Source.ItemBaseURL) {
		res.addErr("source.item_base_url must be an absolute http(s) URL")
	}
	if len(out.Source.ThreadIDs) == 0 {
		res.addErr("source.thread_ids must list at least one thread")
	}
	for i, id := range out.Source.ThreadIDs {
		if id <= 0 {
			res.addErr("source.thread_ids[%d] must be > 0", i)
		}
	}
	if out.Source.RequestsPerSecond <= 0 {
		res.addErr("source.requests_per_second must be > 0")
	} else if out.Source.RequestsPerSecond > 50 {
		res.addWarn("source.requests_per_second is very high (%.0f) and may get you throttled.", out.Source.RequestsPerSecond)
	}
	if out.Source.TimeoutSeconds <= 0 {
		res.addErr("source.timeout_seconds must be > 0")
	}

	if !isHTTPURL(out.Geocoder.BaseURL) {
		res.addErr("geocoder.base_url must be an absolute http(s) URL")
	}
	if strings.TrimSpace(out.Geocoder.UserAgent) == "" {
		res.addErr("geocoder.user_agent is required by the geocoding service usage policy")
	}
	if out.Geocoder.MinIntervalMS < 1000 {
		res.addErr("geocoder.min_interval_ms must be >= 1000 (service allows one request per second)")
	}
	if out.Geocoder.TimeoutSeconds <= 0 {
		res.addErr("geocoder.timeout_seconds must be > 0")
	}

	if strings.TrimSpace(out.Extract.GazetteerPath) == "" {
		res.addErr("extract.gazetteer_path is required")
	}

	if out.Polling.IntervalMinutes <= 0 {
		res.addErr("polling.interval_minutes must be > 0")
	} else if out.Polling.IntervalMinutes < 5 {
		res.addWarn("polling.interval_minutes is very low (%d); thread roots change slowly.", out.Polling.IntervalMinutes)
	}

	return out, res
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
