// Package audit defines the append-only sync run log. Records are
// write-once; retention is an external concern.
package audit

import (
	"context"
	"time"
)

// Level is the severity of an audit record
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Record is one audit log entry. Context carries structured details such as
// account ids and error strings; DurationMs and ItemsProcessed are set on
// run summaries only.
type Record struct {
	RunAt          time.Time      `json:"run_at" bson:"run_at"`
	Level          Level          `json:"level" bson:"level"`
	Message        string         `json:"message" bson:"message"`
	Context        map[string]any `json:"context,omitempty" bson:"context,omitempty"`
	DurationMs     *int64         `json:"duration_ms,omitempty" bson:"duration_ms,omitempty"`
	ItemsProcessed *int           `json:"items_processed,omitempty" bson:"items_processed,omitempty"`
}

// Recorder persists audit records. Writes are best-effort: callers log and
// continue when a write fails, they never abort a sync over it.
type Recorder interface {
	Record(ctx context.Context, record *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
}
