package mutation

import (
	"context"
	"time"
)

// Source tells where appended rows came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceUpload Source = "upload"
)

// Event describes one successful append.
type Event struct {
	Source    Source    `json:"source"`
	Rows      int       `json:"rows"`
	SessionID string    `json:"session_id,omitempty"`
	StorePath string    `json:"store_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Auditor persists append events.
type Auditor interface {
	RecordAppend(ctx context.Context, ev Event) error
}

// Publisher announces append events to other systems.
type Publisher interface {
	PublishAppend(ctx context.Context, ev Event) error
}

// Recorder collects append metrics.
type Recorder interface {
	RecordAppend(source string, rows int, err error)
}

type sessionIDKey struct{}

// WithSessionID tags ctx with the session performing an append.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionID returns the session id stored by WithSessionID.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
