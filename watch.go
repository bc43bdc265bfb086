package clientcore

import (
	"context"
	"time"
)

// Start arms the two recurring checks: the session validity check and the
// near-expiry check, both at the configured interval. It also validates the
// persisted session immediately so a stale session left over from a previous
// run is cleared at startup. The checks stop when ctx is canceled or Close is
// called; Start is idempotent while a watch is running.
func (m *Manager) Start(ctx context.Context) {
	if m == nil || m.store == nil {
		return
	}

	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.watchCancel = cancel
	m.watchDone = done
	m.watchMu.Unlock()

	m.Validate(ctx)

	go func() {
		defer close(done)

		validity := time.NewTicker(m.config.Session.CheckInterval)
		warning := time.NewTicker(m.config.Session.CheckInterval)
		defer validity.Stop()
		defer warning.Stop()

		for {
			select {
			case <-validity.C:
				m.Validate(watchCtx)
			case <-warning.C:
				m.checkNearExpiry(watchCtx)
			case <-watchCtx.Done():
				return
			}
		}
	}()
}

func (m *Manager) stopWatch() {
	m.watchMu.Lock()
	cancel := m.watchCancel
	done := m.watchDone
	m.watchCancel = nil
	m.watchDone = nil
	m.watchMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
