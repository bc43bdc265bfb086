package clientcore

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/mosaber/clientcore/cache"
	"github.com/mosaber/clientcore/intercept"
	"github.com/mosaber/clientcore/syncq"
)

// Worker drives the offline subsystem around a Manager: asset cache
// install and activation, request interception, push alerts, and background
// delivery of the activity log. Its lifecycle entry points mirror the
// install/activate/fetch/push/sync events of the hosting platform.
type Worker struct {
	cfg       Config
	cache     *cache.Store
	transport *intercept.Interceptor
	queue     *syncq.Queue
	sync      *syncq.Worker
	notify    *Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
}

// WorkerOption customizes a Worker at construction.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	client   *http.Client
	logger   *slog.Logger
	registry prometheus.Registerer
}

// WithWorkerHTTPClient sets the client used for installs, revalidations and
// sync deliveries.
func WithWorkerHTTPClient(c *http.Client) WorkerOption {
	return func(o *workerOptions) { o.client = c }
}

// WithWorkerLogger sets the structured logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(o *workerOptions) { o.logger = l }
}

// WithWorkerMetrics registers interception counters with reg.
func WithWorkerMetrics(reg prometheus.Registerer) WorkerOption {
	return func(o *workerOptions) { o.registry = reg }
}

// NewWorker builds the offline worker for m. baseURL is the origin that
// manifest paths and the sync endpoint are resolved against; rdb backs the
// asset cache and is typically the same client the Manager was built with.
func NewWorker(m *Manager, rdb *redis.Client, baseURL string, opts ...WorkerOption) *Worker {
	var o workerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg := m.config

	cacheStore := cache.New(rdb, cache.Config{
		Generation: cfg.Cache.Generation,
		BaseURL:    baseURL,
		Client:     o.client,
	})

	interceptOpts := []intercept.Option{intercept.WithLogger(o.logger)}
	if o.registry != nil {
		interceptOpts = append(interceptOpts,
			intercept.WithMetrics(intercept.NewMetrics(o.registry)))
	}
	var inner http.RoundTripper
	if o.client != nil {
		inner = o.client.Transport
	}
	transport := intercept.New(inner, cacheStore, intercept.Config{
		APIPrefix:           cfg.Cache.APIPrefix,
		OfflinePage:         cfg.Cache.OfflinePage,
		DefaultIcon:         cfg.Cache.DefaultIcon,
		RevalidateTimeout:   cfg.Cache.RevalidateTimeout,
		RevalidatePerSecond: cfg.Cache.RevalidatePerSecond,
		RevalidateBurst:     cfg.Cache.RevalidateBurst,
	}, interceptOpts...)

	queue := syncq.New(m.store, syncq.Config{
		Endpoint:       resolveAgainst(baseURL, cfg.Sync.Endpoint),
		RequestTimeout: cfg.Sync.RequestTimeout,
		Client:         o.client,
	}, o.logger)

	w := &Worker{
		cfg:       cfg,
		cache:     cacheStore,
		transport: transport,
		queue:     queue,
		notify:    m.dispatcher,
		metrics:   m.metrics,
		logger:    o.logger.With("component", "worker"),
	}
	// The background loop flushes through the counting wrapper so delivered
	// and failed batches land in the lifecycle counters either way.
	w.sync = syncq.NewWorker(syncq.FlusherFunc(w.flush), cfg.Sync.Tag, o.logger)
	return w
}

func resolveAgainst(baseURL, path string) string {
	if path == "" || baseURL == "" {
		return path
	}
	if len(path) > 0 && path[0] != '/' {
		return path
	}
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL + path
}

// Install fetches the configured manifest into the current cache generation.
// Any fetch failure aborts with nothing written; a partial cache never
// becomes visible.
func (w *Worker) Install(ctx context.Context) error {
	if err := w.cache.Install(ctx, w.cfg.Cache.Manifest); err != nil {
		w.logger.Error("cache install failed",
			"generation", w.cache.Generation(), "error", err)
		return err
	}
	w.logger.Info("cache installed",
		"generation", w.cache.Generation(), "assets", len(w.cfg.Cache.Manifest))
	return nil
}

// Activate purges every cache generation except the current one. Old
// snapshots become unreachable in the same step the new one takes over.
func (w *Worker) Activate(ctx context.Context) error {
	if err := w.cache.Activate(ctx); err != nil {
		w.logger.Error("cache activate failed",
			"generation", w.cache.Generation(), "error", err)
		return err
	}
	w.logger.Info("cache activated", "generation", w.cache.Generation())
	return nil
}

// Transport returns the intercepting round tripper. Install it as the
// http.Client transport so GET traffic flows through the cache and fallback
// policy.
func (w *Worker) Transport() http.RoundTripper {
	return w.transport
}

// Cache exposes the asset cache, mainly for warm-up and inspection.
func (w *Worker) Cache() *cache.Store {
	return w.cache
}

type pushPayload struct {
	Message string `json:"message"`
}

// HandlePush surfaces a push event as an admin alert. The payload may be a
// JSON object with a "message" field or plain text; either way the text
// reaches the notification pipeline unmodified.
func (w *Worker) HandlePush(ctx context.Context, payload []byte) {
	message := string(payload)
	var p pushPayload
	if err := json.Unmarshal(payload, &p); err == nil && p.Message != "" {
		message = p.Message
	}
	if message == "" {
		message = "New factory system notification"
	}
	w.notify.NotifyAdmin(ctx, message)
}

// HandleNotificationClick maps a notification action to a navigation target.
// The "open" action and a plain body click both focus the application root;
// "dismiss" and unknown actions navigate nowhere.
func (w *Worker) HandleNotificationClick(ctx context.Context, action string) (string, bool) {
	switch action {
	case "open", "":
		return "/", true
	default:
		return "", false
	}
}

// HandleSync reports a connectivity-restored event. Only the configured
// activity tag triggers a flush; the signal is dropped if the worker loop is
// not keeping up, since a later signal flushes the same pending suffix.
func (w *Worker) HandleSync(ctx context.Context, tag string) {
	w.sync.Signal(tag)
}

// Flush delivers the pending activity suffix synchronously, bypassing the
// background loop. Useful at shutdown. Failed deliveries carry
// [ErrSyncDeliveryFailed]; transport-level ones additionally carry
// [ErrNetworkUnavailable].
func (w *Worker) Flush(ctx context.Context) error {
	_, err := w.flush(ctx)
	return err
}

// flush wraps the queue with the lifecycle counters: [MetricSyncFlush] per
// delivered batch, [MetricSyncFailure] per failed delivery. Empty no-op
// flushes count as neither.
func (w *Worker) flush(ctx context.Context) (int, error) {
	n, err := w.queue.Flush(ctx)
	if err != nil {
		w.metrics.Inc(MetricSyncFailure)
		return n, err
	}
	if n > 0 {
		w.metrics.Inc(MetricSyncFlush)
	}
	return n, nil
}

// Run drives the background sync loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.sync.Run(ctx)
}

// Close waits for in-flight cache revalidations to settle.
func (w *Worker) Close() {
	w.transport.Close()
}
