package domain

import (
	"strconv"
	"time"
)

// Field is an extracted string that may be absent. Absence is carried by
// Known, never by a placeholder value.
type Field struct {
	Value string
	Known bool
}

func Known(v string) Field { return Field{Value: v, Known: true} }

func Unknown() Field { return Field{} }

// Or returns the value, or fallback when the field is unknown.
func (f Field) Or(fallback string) string {
	if !f.Known {
		return fallback
	}
	return f.Value
}

type Coordinates struct {
	Lat float64
	Lon float64
}

// Location is a recognized city, optionally geocoded.
type Location struct {
	City     string
	Coords   Coordinates
	Geocoded bool
	Known    bool
}

func UnknownLocation() Location { return Location{} }

// CityOnly is a recognized city whose coordinates could not be looked up.
func CityOnly(city string) Location { return Location{City: city, Known: true} }

func GeocodedLocation(city string, c Coordinates) Location {
	return Location{City: city, Coords: c, Geocoded: true, Known: true}
}

// Composite renders "<city>, <lat>, <lon>" for geocoded locations and the
// bare city otherwise. Unknown locations render as "".
func (l Location) Composite() string {
	if !l.Known {
		return ""
	}
	if !l.Geocoded {
		return l.City
	}
	return l.City + ", " +
		strconv.FormatFloat(l.Coords.Lat, 'f', -1, 64) + ", " +
		strconv.FormatFloat(l.Coords.Lon, 'f', -1, 64)
}

type WorkMode int

const (
	WorkModeUnknown WorkMode = iota
	WorkModeRemote
	WorkModeOnsite
	WorkModeRemoteAndOnsite
)

func (m WorkMode) String() string {
	switch m {
	case WorkModeRemote:
		return "Remote"
	case WorkModeOnsite:
		return "Onsite"
	case WorkModeRemoteAndOnsite:
		return "Remote and Onsite"
	default:
		return "Unknown Remote/Onsite"
	}
}

// ParseWorkMode is the inverse of String. "Both" is accepted as an alias of
// "Remote and Onsite".
func ParseWorkMode(s string) (WorkMode, bool) {
	switch s {
	case "Remote":
		return WorkModeRemote, true
	case "Onsite":
		return WorkModeOnsite, true
	case "Remote and Onsite", "Both":
		return WorkModeRemoteAndOnsite, true
	case "Unknown Remote/Onsite":
		return WorkModeUnknown, true
	}
	return WorkModeUnknown, false
}

// Posting is one parsed job comment. ID is the source comment id.
type Posting struct {
	ID          int64
	PostedAt    time.Time
	Title       Field
	Location    Location
	Skills      []string
	Visa        bool
	WorkMode    WorkMode
	Website     Field
	Description string
}

// Comment is a retrieved leaf comment: id, creation time and raw HTML body.
type Comment struct {
	ID   int64
	Time time.Time
	Text string
}

// Period is one month of postings, rooted at a single thread.
type Period struct {
	ThreadID int64
	IDs      []int64
}
