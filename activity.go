package clientcore

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mosaber/clientcore/store"
)

// Log is the bounded, append-only record of security-relevant events. It owns
// the persisted sequence exclusively; the Manager appends only through it.
type Log struct {
	store      *store.Store
	dispatcher *Dispatcher
	now        func() time.Time
}

func newLog(s *store.Store, d *Dispatcher, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{store: s, dispatcher: d, now: now}
}

// Append records one event at the end of the log, evicting the oldest record
// once the capacity is exceeded. Records of kind failed_login or
// sensitive_operation additionally notify the admin, synchronously with the
// append.
func (l *Log) Append(ctx context.Context, kind ActivityKind, message, actor, origin string) error {
	if l == nil || l.store == nil {
		return ErrManagerNotReady
	}
	if actor == "" {
		actor = "unknown"
	}

	record := ActivityRecord{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Kind:      kind,
		Message:   message,
		Actor:     actor,
		Origin:    origin,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := l.store.AppendActivity(ctx, payload); err != nil {
		return err
	}

	if kind == ActivityFailedLogin || kind == ActivitySensitiveOperation {
		l.dispatcher.NotifyAdmin(ctx, message)
	}
	return nil
}

// Snapshot returns the full log, oldest first. Records that fail to decode are
// skipped rather than failing the read.
func (l *Log) Snapshot(ctx context.Context) ([]ActivityRecord, error) {
	if l == nil || l.store == nil {
		return nil, ErrManagerNotReady
	}

	rows, err := l.store.ActivitySnapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ActivityRecord, 0, len(rows))
	for _, row := range rows {
		var record ActivityRecord
		if err := json.Unmarshal(row, &record); err != nil {
			log.Print("clientcore: skipping undecodable activity record")
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Clear empties the log. Logout and forced expiry invoke this.
func (l *Log) Clear(ctx context.Context) error {
	if l == nil || l.store == nil {
		return ErrManagerNotReady
	}
	return l.store.ClearActivity(ctx)
}
