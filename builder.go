package clientcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mosaber/clientcore/store"
	"github.com/mosaber/clientcore/token"
)

// Builder wires a Manager from its collaborators. One Builder builds one
// Manager; construction is allocation-only until Build.
type Builder struct {
	config    Config
	redis     *redis.Client
	directory Directory
	sink      Sink
	system    SystemNotifier
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with the default policy constants.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the persistence backend. Required.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the identity collaborator. Defaults to
// [DefaultDirectory].
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithSink sets the in-process notification sink. Defaults to a no-op.
func (b *Builder) WithSink(sink Sink) *Builder {
	b.sink = sink
	return b
}

// WithSystemNotifier sets the OS-level notification hook, consulted only when
// NotifyConfig.SystemConsent is set.
func (b *Builder) WithSystemNotifier(n SystemNotifier) *Builder {
	b.system = n
	return b
}

// WithClock overrides the time source. Tests use this to drive TTL
// boundaries; production code should leave it unset.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and assembles the Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	directory := b.directory
	if directory == nil {
		directory = DefaultDirectory()
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	var codec token.Codec
	if cfg.Token.Signed {
		signed, err := token.NewSigned(cfg.Token.SigningKey)
		if err != nil {
			return nil, err
		}
		codec = signed
	} else {
		codec = token.NewBase64()
	}

	st := store.New(b.redis, cfg.Session.RedisPrefix, cfg.Session.ActivityCapacity)
	dispatcher := newDispatcher(cfg.Notify, b.sink, b.system, clock)

	m := &Manager{
		config:     cfg,
		codec:      codec,
		store:      st,
		directory:  directory,
		dispatcher: dispatcher,
		metrics:    NewMetrics(cfg.Metrics),
		now:        clock,
		redirects:  make(chan string, 1),
	}
	m.activity = newLog(st, dispatcher, clock)

	b.built = true

	return m, nil
}
