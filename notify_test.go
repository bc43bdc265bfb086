package clientcore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherDeliversAdminAlertToSink(t *testing.T) {
	sink := NewChannelSink(4)
	clock := newFakeClock()
	d := newDispatcher(NotifyConfig{BufferSize: 4, ToastDuration: 3 * time.Second}, sink, nil, clock.Now)
	defer d.Close()

	d.NotifyAdmin(context.Background(), "unauthorized export attempt")

	select {
	case n := <-sink.Notifications():
		if n.Title != "Factory System Alert" {
			t.Fatalf("title = %q", n.Title)
		}
		if n.Severity != SeverityWarning || n.Tag != "factory-alert" {
			t.Fatalf("severity = %q, tag = %q", n.Severity, n.Tag)
		}
		if len(n.Actions) != 2 || n.Actions[0] != "open" || n.Actions[1] != "dismiss" {
			t.Fatalf("actions = %v", n.Actions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the sink")
	}
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	// A blocking sink keeps the delivery goroutine busy while emits pile up.
	release := make(chan struct{})
	sink := blockingSink{release: release}
	d := newDispatcher(NotifyConfig{BufferSize: 1, DropIfFull: true, ToastDuration: time.Second}, sink, nil, nil)
	// Close waits for delivery, so the sink must be released first.
	defer d.Close()
	defer close(release)

	for i := 0; i < 10; i++ {
		d.NotifyAdmin(context.Background(), "alert")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected at least one dropped notification")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Notification) {
	<-s.release
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	var delivered atomic.Uint64
	sink := countingSink{n: &delivered}
	d := newDispatcher(NotifyConfig{BufferSize: 8, ToastDuration: time.Second}, sink, nil, nil)

	for i := 0; i < 5; i++ {
		d.NotifyAdmin(context.Background(), "alert")
	}
	d.Close()

	if got := delivered.Load(); got != 5 {
		t.Fatalf("delivered = %d, want 5", got)
	}

	// Emitting after close is a silent no-op.
	d.NotifyAdmin(context.Background(), "late")
	if got := delivered.Load(); got != 5 {
		t.Fatalf("delivered after close = %d, want 5", got)
	}
}

type countingSink struct {
	n *atomic.Uint64
}

func (s countingSink) Emit(context.Context, Notification) {
	s.n.Add(1)
}

func TestToastsExpireAfterDisplayWindow(t *testing.T) {
	clock := newFakeClock()
	d := newDispatcher(NotifyConfig{BufferSize: 1, ToastDuration: 3 * time.Second}, nil, nil, clock.Now)
	defer d.Close()

	d.ShowToast("Session will expire in 5 minutes", SeverityWarning)
	d.ShowToast("Saved", SeverityInfo)

	if got := len(d.ActiveToasts()); got != 2 {
		t.Fatalf("active toasts = %d, want 2", got)
	}

	clock.Advance(3*time.Second + time.Millisecond)
	if got := len(d.ActiveToasts()); got != 0 {
		t.Fatalf("active toasts after the window = %d, want 0", got)
	}
}

func TestJSONWriterSinkWritesOneLinePerNotification(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Notification{Title: "a", Body: "first"})
	sink.Emit(context.Background(), Notification{Title: "b", Body: "second"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	for _, line := range lines {
		var n Notification
		if err := json.Unmarshal([]byte(line), &n); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
	}
}

type capturingNotifier struct {
	last atomic.Pointer[Notification]
}

func (c *capturingNotifier) Notify(_ context.Context, n Notification) error {
	c.last.Store(&n)
	return nil
}

func TestSystemNotifierRequiresConsent(t *testing.T) {
	var sys capturingNotifier
	sink := NewChannelSink(4)
	d := newDispatcher(NotifyConfig{BufferSize: 4, ToastDuration: time.Second}, sink, &sys, nil)

	d.NotifyAdmin(context.Background(), "alert without consent")
	<-sink.Notifications()
	d.Close()

	if sys.last.Load() != nil {
		t.Fatal("system notifier must stay silent without consent")
	}

	var consented capturingNotifier
	sink2 := NewChannelSink(4)
	d2 := newDispatcher(NotifyConfig{BufferSize: 4, SystemConsent: true, ToastDuration: time.Second}, sink2, &consented, nil)

	d2.NotifyAdmin(context.Background(), "alert with consent")
	<-sink2.Notifications()
	d2.Close()

	if n := consented.last.Load(); n == nil || n.Body != "alert with consent" {
		t.Fatalf("system notification = %+v", n)
	}
}
