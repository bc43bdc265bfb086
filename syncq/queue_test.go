package syncq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mosaber/clientcore/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return store.New(rdb, "test", 0)
}

type syncEndpoint struct {
	srv     *httptest.Server
	fail    atomic.Bool
	batches chan Batch
}

func newSyncEndpoint(t *testing.T) *syncEndpoint {
	t.Helper()

	e := &syncEndpoint{batches: make(chan Batch, 16)}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e.fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var batch Batch
		require.NoError(t, json.Unmarshal(body, &batch))
		e.batches <- batch
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func appendRecords(t *testing.T, s *store.Store, messages ...string) {
	t.Helper()
	for _, msg := range messages {
		_, err := s.AppendActivity(context.Background(), []byte(`{"message":"`+msg+`"}`))
		require.NoError(t, err)
	}
}

func mustFlush(t *testing.T, q *Queue) int {
	t.Helper()
	n, err := q.Flush(context.Background())
	require.NoError(t, err)
	return n
}

func TestFlushSendsWholePendingLogAsOneBatch(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)

	appendRecords(t, s, "login", "failed_login", "logout")

	require.Equal(t, 3, mustFlush(t, q))

	batch := <-endpoint.batches
	require.NotEmpty(t, batch.BatchID)
	require.Len(t, batch.Activities, 3)
}

func TestFlushSkipsEmptyLog(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)

	require.Zero(t, mustFlush(t, q))
	require.Empty(t, endpoint.batches)
}

func TestFlushAdvancesCursorSoRetriesSkipDelivered(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)

	appendRecords(t, s, "first", "second")
	require.Equal(t, 2, mustFlush(t, q))
	<-endpoint.batches

	// A retry with no new records delivers nothing.
	require.Zero(t, mustFlush(t, q))
	require.Empty(t, endpoint.batches)

	// New records flush alone, without the already-delivered prefix.
	appendRecords(t, s, "third")
	require.Equal(t, 1, mustFlush(t, q))
	batch := <-endpoint.batches
	require.Len(t, batch.Activities, 1)
	require.Contains(t, string(batch.Activities[0]), "third")
}

func TestFlushRejectionLeavesCursorForRetry(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)
	ctx := context.Background()

	appendRecords(t, s, "only")

	endpoint.fail.Store(true)
	n, err := q.Flush(ctx)
	require.Zero(t, n)
	require.ErrorIs(t, err, ErrDeliveryFailed)
	// A rejected batch reached the endpoint; the network was fine.
	require.NotErrorIs(t, err, ErrNetworkUnavailable)

	// The platform retry re-invokes Flush; the same batch goes out again.
	endpoint.fail.Store(false)
	require.Equal(t, 1, mustFlush(t, q))
	batch := <-endpoint.batches
	require.Len(t, batch.Activities, 1)
}

func TestFlushTransportFailureClassifiedAsNetworkUnavailable(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	endpoint.srv.Close()
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)

	appendRecords(t, s, "stranded")

	n, err := q.Flush(context.Background())
	require.Zero(t, n)
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestFlushResetsCursorAfterLogClear(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)
	ctx := context.Background()

	appendRecords(t, s, "a", "b", "c")
	require.Equal(t, 3, mustFlush(t, q))
	<-endpoint.batches

	require.NoError(t, s.ClearActivity(ctx))
	// Cursor survived the clear but now points past the log end.
	require.NoError(t, s.SetSyncCursor(ctx, 3))

	appendRecords(t, s, "after-clear")
	require.Equal(t, 1, mustFlush(t, q))
	batch := <-endpoint.batches
	require.Len(t, batch.Activities, 1)
	require.Contains(t, string(batch.Activities[0]), "after-clear")
}

func TestWorkerFlushesOnMatchingTagOnly(t *testing.T) {
	s := newTestStore(t)
	endpoint := newSyncEndpoint(t)
	q := New(s, Config{Endpoint: endpoint.srv.URL}, nil)

	appendRecords(t, s, "queued")

	w := NewWorker(q, "sync-activities", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Signal("sync-inventory")
	w.Signal("sync-activities")

	select {
	case batch := <-endpoint.batches:
		require.Len(t, batch.Activities, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never flushed on matching tag")
	}
	require.Empty(t, endpoint.batches)
}
