package clientcore

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Toast is a transient in-page message. It self-dismisses once its display
// window elapses; [Dispatcher.ActiveToasts] prunes expired entries.
type Toast struct {
	Message   string
	Severity  Severity
	ExpiresAt time.Time
}

// Dispatcher surfaces in-page toasts and best-effort admin notifications for
// session and cache events. Notifications flow through a buffered channel to
// the configured sink so emitters never block on sink latency.
type Dispatcher struct {
	cfg    NotifyConfig
	sink   Sink
	system SystemNotifier
	now    func() time.Time

	ch        chan Notification
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	mu     sync.Mutex
	toasts []Toast
}

func newDispatcher(cfg NotifyConfig, sink Sink, system SystemNotifier, now func() time.Time) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		system: system,
		now:    now,
		ch:     make(chan Notification, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ch:
			d.deliver(n)
		case <-d.done:
			for {
				select {
				case n := <-d.ch:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	d.sink.Emit(context.Background(), n)

	// The OS-level channel is best-effort on top of the sink, never instead
	// of it, and only with user consent.
	if d.cfg.SystemConsent && d.system != nil {
		if err := d.system.Notify(context.Background(), n); err != nil {
			log.Print("clientcore: system notification delivery failed")
		}
	}
}

// NotifyAdmin surfaces a security alert. Delivery is fire-and-forget: no
// failure is ever raised to the caller.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, message string) {
	d.emit(ctx, Notification{
		Timestamp: d.now(),
		Title:     "Factory System Alert",
		Body:      message,
		Severity:  SeverityWarning,
		Tag:       "factory-alert",
		Actions:   []string{"open", "dismiss"},
	})
}

func (d *Dispatcher) emit(ctx context.Context, n Notification) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- n:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- n:
	case <-ctx.Done():
	case <-d.done:
	}
}

// ShowToast displays a transient message that self-dismisses after the
// configured display window.
func (d *Dispatcher) ShowToast(message string, severity Severity) {
	if d == nil {
		return
	}
	if severity == "" {
		severity = SeverityInfo
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.toasts = append(d.toasts, Toast{
		Message:   message,
		Severity:  severity,
		ExpiresAt: d.now().Add(d.cfg.ToastDuration),
	})
}

// ActiveToasts returns the not-yet-dismissed toasts and drops expired ones.
func (d *Dispatcher) ActiveToasts() []Toast {
	if d == nil {
		return nil
	}

	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	live := d.toasts[:0]
	for _, t := range d.toasts {
		if t.ExpiresAt.After(now) {
			live = append(live, t)
		}
	}
	d.toasts = live

	out := make([]Toast, len(live))
	copy(out, live)
	return out
}

// Dropped reports how many notifications were discarded because the buffer
// was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close drains the buffer and stops the dispatcher goroutine.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
