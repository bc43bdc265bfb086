package syncq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mosaber/clientcore/store"
)

// ErrDeliveryFailed is returned when the batch POST does not complete with a
// success status. The queue takes no corrective action locally.
var ErrDeliveryFailed = errors.New("activity sync delivery failed")

// ErrNetworkUnavailable additionally classifies a delivery failure whose
// cause was the transport, not the endpoint: the POST never produced a
// response. A rejected batch (non-2xx) carries only [ErrDeliveryFailed].
var ErrNetworkUnavailable = errors.New("network unavailable")

// Batch is the wire form of one flush: the undelivered activity records as
// one unit.
type Batch struct {
	BatchID    string            `json:"batch_id"`
	Activities []json.RawMessage `json:"activities"`
}

// Config parameterizes a Queue.
type Config struct {
	// Endpoint receives the batch POST.
	Endpoint string
	// RequestTimeout bounds one delivery attempt.
	RequestTimeout time.Duration
	// Client performs the POST; defaults to http.DefaultClient.
	Client *http.Client
}

// Queue flushes the activity log to the sync endpoint.
type Queue struct {
	store  *store.Store
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New builds a Queue over the shared session store.
func New(s *store.Store, cfg Config, logger *slog.Logger) *Queue {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  s,
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "syncq"),
	}
}

// Flush reads the current activity log and POSTs every record past the
// delivery cursor as one batch, returning how many records went out. An empty
// pending suffix is a no-op. On success the cursor advances to the end of the
// snapshot; on failure it stays put and [ErrDeliveryFailed] is returned for
// the platform retry to act on.
func (q *Queue) Flush(ctx context.Context) (int, error) {
	snapshot, err := q.store.ActivitySnapshot(ctx)
	if err != nil {
		return 0, err
	}

	cursor, err := q.store.SyncCursor(ctx)
	if err != nil {
		return 0, err
	}
	if cursor > len(snapshot) {
		// The log was cleared (logout or expiry) since the last delivery.
		cursor = 0
	}

	pending := snapshot[cursor:]
	if len(pending) == 0 {
		return 0, nil
	}

	batch := Batch{
		BatchID:    uuid.NewString(),
		Activities: make([]json.RawMessage, 0, len(pending)),
	}
	for _, row := range pending {
		batch.Activities = append(batch.Activities, json.RawMessage(row))
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, q.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, q.cfg.Endpoint,
		bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		q.logger.Warn("activity sync failed", "batch_id", batch.BatchID, "error", err)
		return 0, errors.Join(ErrDeliveryFailed, ErrNetworkUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		q.logger.Warn("activity sync rejected",
			"batch_id", batch.BatchID, "status", resp.StatusCode)
		return 0, fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	if err := q.store.SetSyncCursor(ctx, cursor+len(pending)); err != nil {
		// Delivery succeeded but the cursor did not advance; the next flush
		// re-sends this suffix. Duplicates are preferable to silent loss.
		q.logger.Warn("sync cursor update failed", "batch_id", batch.BatchID, "error", err)
		return len(pending), err
	}

	q.logger.Info("activities synced",
		"batch_id", batch.BatchID, "records", len(pending))
	return len(pending), nil
}
