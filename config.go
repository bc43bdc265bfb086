package clientcore

import (
	"errors"
	"strings"
	"time"
)

// Config carries every policy knob of the client core. The zero value is not
// usable; start from [DefaultConfig] and override.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Session SessionConfig
	Token   TokenConfig
	Cache   CacheConfig
	Sync    SyncConfig
	Notify  NotifyConfig
	Metrics MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session validity policy. The defaults are the
// contract: TTL 8h, warning window 5m, check interval 60s.
type SessionConfig struct {
	// TTL is the maximum session lifetime. A session is valid while the
	// elapsed time does not strictly exceed it.
	TTL time.Duration
	// WarningWindow is how long before TTL the session counts as near-expiry.
	WarningWindow time.Duration
	// CheckInterval is the cadence of the periodic validity and near-expiry
	// checks.
	CheckInterval time.Duration
	// RedisPrefix namespaces every persisted key.
	RedisPrefix string
	// ActivityCapacity bounds the activity log (FIFO eviction past it).
	ActivityCapacity int
	// LoginPath is where consumers are redirected after expiry or logout.
	LoginPath string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig selects the token codec. The default base64 form is a liveness
// marker, not a credential proof; enable Signed only when tamper evidence is
// required.
type TokenConfig struct {
	Signed     bool
	SigningKey []byte
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the static-asset cache generation and the interceptor
// routing policy.
type CacheConfig struct {
	// Generation names the current cache snapshot. Bumping it is the only
	// supported migration mechanism.
	Generation string
	// Manifest lists the static assets populated at install.
	Manifest []string
	// APIPrefix marks request paths that always go to the network.
	APIPrefix string
	// OfflinePage is served from cache for offline text/html requests.
	OfflinePage string
	// DefaultIcon is served from cache for offline image requests.
	DefaultIcon string
	// RevalidateTimeout bounds the detached background refresh so a hung
	// network path cannot leak goroutines.
	RevalidateTimeout time.Duration
	// RevalidatePerSecond and RevalidateBurst bound how many background
	// refreshes may be in flight across concurrent cache hits.
	RevalidatePerSecond float64
	RevalidateBurst     int
}

/*
====================================
SYNC CONFIG
====================================
*/

// SyncConfig controls the activity batch flusher.
type SyncConfig struct {
	// Endpoint receives the JSON batch POST.
	Endpoint string
	// Tag names the connectivity-restored signal that triggers a flush.
	Tag string
	// RequestTimeout bounds one delivery attempt.
	RequestTimeout time.Duration
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig controls the notification dispatcher.
type NotifyConfig struct {
	// BufferSize is the dispatcher channel depth.
	BufferSize int
	// DropIfFull drops notifications instead of blocking the caller.
	DropIfFull bool
	// SystemConsent mirrors the user's OS-notification permission; without it
	// NotifyAdmin writes only to the in-process sink.
	SystemConsent bool
	// ToastDuration is the fixed display window before a toast self-dismisses.
	ToastDuration time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the policy defaults of the legacy deployment.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:              8 * time.Hour,
			WarningWindow:    5 * time.Minute,
			CheckInterval:    60 * time.Second,
			RedisPrefix:      "clientcore",
			ActivityCapacity: 100,
			LoginPath:        "/login.html",
		},
		Cache: CacheConfig{
			Generation: "factory-internal-v1.0",
			Manifest: []string{
				"/",
				"/index.html",
				"/login.html",
				"/offline.html",
				"/auth-system.js",
				"/manifest.json",
				"/icons/icon-72x72.png",
				"/icons/icon-192x192.png",
				"/icons/icon-512x512.png",
			},
			APIPrefix:           "/api/",
			OfflinePage:         "/offline.html",
			DefaultIcon:         "/icons/icon-192x192.png",
			RevalidateTimeout:   10 * time.Second,
			RevalidatePerSecond: 4,
			RevalidateBurst:     8,
		},
		Sync: SyncConfig{
			Endpoint:       "/api/sync",
			Tag:            "sync-activities",
			RequestTimeout: 15 * time.Second,
		},
		Notify: NotifyConfig{
			BufferSize:    64,
			DropIfFull:    true,
			ToastDuration: 3 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func defaultConfig() Config {
	return DefaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cache.Manifest = append([]string(nil), cfg.Cache.Manifest...)
	out.Token.SigningKey = append([]byte(nil), cfg.Token.SigningKey...)
	return out
}

// Validate rejects configurations that would break the session state machine
// or the cache policy.
func (c Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Session.WarningWindow <= 0 || c.Session.WarningWindow >= c.Session.TTL {
		return errors.New("warning window must be positive and shorter than the TTL")
	}
	if c.Session.CheckInterval <= 0 {
		return errors.New("check interval must be positive")
	}
	if c.Session.ActivityCapacity <= 0 {
		return errors.New("activity capacity must be positive")
	}
	if c.Token.Signed && len(c.Token.SigningKey) < 32 {
		return errors.New("signed tokens require a key of at least 32 bytes")
	}
	if c.Cache.Generation == "" {
		return errors.New("cache generation name must not be empty")
	}
	if c.Cache.APIPrefix != "" && !strings.HasPrefix(c.Cache.APIPrefix, "/") {
		return errors.New("API prefix must be path-rooted")
	}
	if c.Cache.RevalidateTimeout <= 0 {
		return errors.New("revalidate timeout must be positive")
	}
	if c.Sync.RequestTimeout <= 0 {
		return errors.New("sync request timeout must be positive")
	}
	if c.Notify.ToastDuration <= 0 {
		return errors.New("toast duration must be positive")
	}
	return nil
}
