package intercept

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mosaber/clientcore/cache"
)

// Config parameterizes the routing policy.
type Config struct {
	// APIPrefix marks paths that always go to the network and are never
	// cached.
	APIPrefix string
	// OfflinePage is the cache path served to offline text/html requests.
	OfflinePage string
	// DefaultIcon is the cache path served to offline image requests.
	DefaultIcon string
	// RevalidateTimeout bounds each detached revalidation fetch.
	RevalidateTimeout time.Duration
	// RevalidatePerSecond and RevalidateBurst bound the revalidation rate;
	// refreshes past the limit are skipped, never queued.
	RevalidatePerSecond float64
	RevalidateBurst     int
}

// Interceptor is the process-wide request gatekeeper. It wraps an inner
// transport and applies the routing policy per GET request.
type Interceptor struct {
	inner   http.RoundTripper
	cache   *cache.Store
	cfg     Config
	limiter *rate.Limiter
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	revalidations sync.WaitGroup
}

// Option adjusts an Interceptor at construction.
type Option func(*Interceptor)

// WithMetrics attaches a Prometheus collector set.
func WithMetrics(m *Metrics) Option {
	return func(i *Interceptor) { i.metrics = m }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interceptor) { i.logger = l }
}

// New builds an Interceptor over inner and the cache store. A nil inner
// defaults to http.DefaultTransport.
func New(inner http.RoundTripper, store *cache.Store, cfg Config, opts ...Option) *Interceptor {
	if inner == nil {
		inner = http.DefaultTransport
	}
	if cfg.RevalidateTimeout <= 0 {
		cfg.RevalidateTimeout = 10 * time.Second
	}

	limit := rate.Limit(cfg.RevalidatePerSecond)
	if cfg.RevalidatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RevalidateBurst
	if burst <= 0 {
		burst = 1
	}

	i := &Interceptor{
		inner:   inner,
		cache:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "intercept")
	return i
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return i.inner.RoundTrip(req)
	}

	if i.cfg.APIPrefix != "" && strings.HasPrefix(req.URL.Path, i.cfg.APIPrefix) {
		return i.roundTripAPI(req)
	}
	return i.roundTripStatic(req)
}

// roundTripAPI always goes to the network. Failures synthesize a structured
// 503 instead of propagating the transport error; responses are never cached.
func (i *Interceptor) roundTripAPI(req *http.Request) (*http.Response, error) {
	resp, err := i.inner.RoundTrip(req)
	if err != nil {
		i.metrics.apiUnreachable()
		i.logger.Warn("api request failed, synthesizing offline response",
			"path", req.URL.Path, "error", err)
		return synthesize(req, http.StatusServiceUnavailable,
			"application/json", `{"error":"no internet connection"}`), nil
	}
	return resp, nil
}

// roundTripStatic is cache-first with background revalidation, then network,
// then the fallback chain.
func (i *Interceptor) roundTripStatic(req *http.Request) (*http.Response, error) {
	key := cacheKey(req)

	entry, err := i.cache.Match(req.Context(), http.MethodGet, key)
	if err != nil {
		// A down cache backend degrades to plain network-first.
		i.logger.Warn("cache match failed", "path", req.URL.Path, "error", err)
	}
	if entry != nil {
		i.metrics.hit()
		i.spawnRevalidation(req, key)
		return entry.Response(req), nil
	}

	i.metrics.miss()
	resp, err := i.inner.RoundTrip(req)
	if err != nil {
		return i.fallback(req), nil
	}

	captured, rebuilt, err := cache.Capture(resp, i.now())
	if err != nil {
		return i.fallback(req), nil
	}
	if err := i.cache.Put(req.Context(), http.MethodGet, key, captured); err != nil {
		i.logger.Warn("cache store failed", "path", req.URL.Path, "error", err)
	}
	return rebuilt, nil
}

// spawnRevalidation refreshes the entry for future reads without delaying the
// in-flight response. The fetch is detached from the request context and
// bounded by the revalidate timeout; its result only affects future reads.
func (i *Interceptor) spawnRevalidation(req *http.Request, key string) {
	if !i.limiter.Allow() {
		return
	}
	i.metrics.revalidation()

	clone := req.Clone(context.Background())
	clone.Body = nil

	i.revalidations.Add(1)
	go func() {
		defer i.revalidations.Done()

		ctx, cancel := context.WithTimeout(context.Background(), i.cfg.RevalidateTimeout)
		defer cancel()

		resp, err := i.inner.RoundTrip(clone.WithContext(ctx))
		if err != nil {
			// Just an attempted refresh; the served response already left.
			return
		}
		captured, rebuilt, err := cache.Capture(resp, i.now())
		if err != nil {
			return
		}
		_ = rebuilt.Body.Close()
		if err := i.cache.Put(ctx, http.MethodGet, key, captured); err != nil {
			i.logger.Warn("revalidation store failed", "path", clone.URL.Path, "error", err)
		}
	}()
}

// fallback applies the degraded-response chain for offline static requests.
func (i *Interceptor) fallback(req *http.Request) *http.Response {
	ctx := req.Context()

	if strings.Contains(req.Header.Get("Accept"), "text/html") && i.cfg.OfflinePage != "" {
		if entry, err := i.cache.Match(ctx, http.MethodGet, i.cfg.OfflinePage); err == nil && entry != nil {
			i.metrics.fallback("offline_page")
			return entry.Response(req)
		}
	}

	if isImageRequest(req) && i.cfg.DefaultIcon != "" {
		if entry, err := i.cache.Match(ctx, http.MethodGet, i.cfg.DefaultIcon); err == nil && entry != nil {
			i.metrics.fallback("default_icon")
			return entry.Response(req)
		}
	}

	i.metrics.fallback("plain_503")
	return synthesize(req, http.StatusServiceUnavailable,
		"text/plain; charset=utf-8", "no internet connection")
}

// Close waits for in-flight revalidations so teardown never leaks a hung
// fetch past the transport's lifetime.
func (i *Interceptor) Close() {
	i.revalidations.Wait()
}

func cacheKey(req *http.Request) string {
	if req.URL.RawQuery != "" {
		return req.URL.Path + "?" + req.URL.RawQuery
	}
	return req.URL.Path
}

func isImageRequest(req *http.Request) bool {
	path := strings.ToLower(req.URL.Path)
	if strings.HasSuffix(path, ".png") || strings.HasSuffix(path, ".jpg") ||
		strings.HasSuffix(path, ".jpeg") {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "image/")
}

func synthesize(req *http.Request, status int, contentType, body string) *http.Response {
	header := make(http.Header, 1)
	header.Set("Content-Type", contentType)
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
