package server

import (
	"sync"
	"time"
)

// TraceEvent captures one request cycle for the debug trace endpoint.
type TraceEvent struct {
	Time      time.Time `json:"time"`
	RequestID string    `json:"request_id"`
	Stage     string    `json:"stage"` // dispatch, engine
	Route     string    `json:"route"` // route name, or "fallback"
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Session   string    `json:"session,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Duration  string    `json:"duration,omitempty"`
}

// TraceRecorder stores a bounded set of recent trace events.
type TraceRecorder struct {
	limit int
	mu    sync.RWMutex
	buf   []TraceEvent
	now   func() time.Time
}

// NewTraceRecorder creates a trace recorder with a fixed buffer size.
func NewTraceRecorder(limit int) *TraceRecorder {
	if limit <= 0 {
		limit = 200
	}
	return &TraceRecorder{limit: limit, now: time.Now}
}

// Add records a new trace event, dropping the oldest once full.
func (tr *TraceRecorder) Add(event TraceEvent) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	event.Time = tr.now()
	tr.buf = append(tr.buf, event)
	if len(tr.buf) > tr.limit {
		tr.buf = tr.buf[len(tr.buf)-tr.limit:]
	}
}

// List returns a copy of the buffer, oldest first.
func (tr *TraceRecorder) List() []TraceEvent {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]TraceEvent, len(tr.buf))
	copy(out, tr.buf)
	return out
}
