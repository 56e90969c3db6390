package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Event is one portal audit record: a login, a logout, a guard redirect or a
// flow submission outcome.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	Flow      string            `json:"flow,omitempty"`
	Path      string            `json:"path,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// attrs lists the event's non-empty fields. Metadata becomes a group.
func (e Event) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 10)
	out = append(out,
		slog.String("event_type", e.EventType),
		slog.Bool("success", e.Success),
		slog.Time("timestamp", e.Timestamp),
	)
	optional := [...]struct{ key, val string }{
		{"user_id", e.UserID},
		{"role", e.Role},
		{"flow", e.Flow},
		{"path", e.Path},
		{"request_id", e.RequestID},
		{"ip", e.IP},
		{"error", e.Error},
	}
	for _, kv := range optional {
		if kv.val != "" {
			out = append(out, slog.String(kv.key, kv.val))
		}
	}
	if len(e.Metadata) > 0 {
		meta := make([]slog.Attr, 0, len(e.Metadata))
		for k, v := range e.Metadata {
			meta = append(meta, slog.String(k, v))
		}
		out = append(out, slog.Attr{Key: "metadata", Value: slog.GroupValue(meta...)})
	}
	return out
}

// LogValue lets an Event be logged as a group: logger.Info("x", "audit", ev).
func (e Event) LogValue() slog.Value {
	return slog.GroupValue(e.attrs()...)
}

// Sink receives emitted audit events. The dispatcher calls Emit from a
// single goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(context.Context, Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// Tee returns a Sink that hands each event to every non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return NoOpSink{}
	case 1:
		return live[0]
	}
	return SinkFunc(func(ctx context.Context, ev Event) {
		for _, s := range live {
			s.Emit(ctx, ev)
		}
	})
}

// ChannelSink forwards events to a buffered channel, for tests and
// in-process consumers. Emit blocks while the channel is full.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONLinesSink writes one JSON object per line. Write errors are dropped.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Emit(_ context.Context, ev Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(ev)
}

// SlogSink logs each event under the "audit" message: info for successes,
// warn for failures.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, ev Event) {
	if s == nil {
		return
	}
	level := slog.LevelInfo
	if !ev.Success {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "audit", ev.attrs()...)
}
