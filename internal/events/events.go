package events

import (
	"encoding/json"
	"time"
)

const (
	TypeIngestFinished = "ingest_finished"
	TypeIngestStarted  = "ingest_started"
)

// IngestFinished is the payload of TypeIngestFinished.
type IngestFinished struct {
	RunID   string `json:"runId"`
	Outcome string `json:"outcome"`
	Added   int    `json:"added"`
	Bad     int    `json:"bad"`
	Error   string `json:"error,omitempty"`
}

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
