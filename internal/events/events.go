// Package events carries pipeline progress as NDJSON lines.
package events

import (
	"encoding/json"
	"time"
)

// Event types published by a run.
const (
	RunStarted     = "run.started"
	SourceScanned  = "source.scanned"
	JobAdded       = "job.added"
	JobDescribed   = "job.described"
	JobClassified  = "job.classified"
	JobRendered    = "job.rendered"
	JobSent        = "job.sent"
	JobFailed      = "job.failed"
	StageCompleted = "stage.completed"
	RunFinished    = "run.finished"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes one event as a single JSON line without the newline.
func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
