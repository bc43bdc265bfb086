package clientcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Severity grades a user-facing message.
type Severity string

const (
	// SeverityInfo is the default toast severity.
	SeverityInfo Severity = "info"
	// SeverityWarning marks near-expiry and degraded-mode messages.
	SeverityWarning Severity = "warning"
	// SeverityError marks failures surfaced to the user.
	SeverityError Severity = "error"
)

// Notification is one admin-facing alert emitted by the dispatcher.
type Notification struct {
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Severity  Severity  `json:"severity"`
	Tag       string    `json:"tag,omitempty"`
	Actions   []string  `json:"actions,omitempty"`
}

// Sink receives notifications from the dispatcher goroutine. Implementations
// must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, n Notification)
}

// NoOpSink discards every notification.
type NoOpSink struct{}

// Emit implements [Sink].
func (NoOpSink) Emit(context.Context, Notification) {}

// ChannelSink forwards notifications to a channel, for tests and custom
// consumers.
type ChannelSink struct {
	notifications chan Notification
}

// NewChannelSink builds a ChannelSink with the given buffer depth.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		notifications: make(chan Notification, buffer),
	}
}

// Emit implements [Sink].
func (s *ChannelSink) Emit(ctx context.Context, n Notification) {
	select {
	case s.notifications <- n:
	case <-ctx.Done():
	}
}

// Notifications exposes the receiving side of the sink.
func (s *ChannelSink) Notifications() <-chan Notification {
	return s.notifications
}

// JSONWriterSink writes one JSON line per notification.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink wraps w; writes are serialized internally.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [Sink]. Marshal and write failures are swallowed;
// notification delivery is fire-and-forget.
func (s *JSONWriterSink) Emit(ctx context.Context, n Notification) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SystemNotifier is the OS-level notification hook (the Notification API
// analog). It is consulted only when the user granted consent.
type SystemNotifier interface {
	Notify(ctx context.Context, n Notification) error
}
