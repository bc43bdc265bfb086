package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInstallFailed is returned when any manifest entry cannot be fetched; the
// cache is left untouched in that case.
var ErrInstallFailed = errors.New("cache install failed")

// ErrUnavailable is returned when the cache backend cannot be reached.
var ErrUnavailable = errors.New("cache storage unavailable")

// Config parameterizes a Store.
type Config struct {
	// Generation names the current cache snapshot.
	Generation string
	// Prefix namespaces the cache keys; defaults to "cachegen".
	Prefix string
	// BaseURL is the origin manifest paths are resolved against at install.
	BaseURL string
	// Client performs install fetches; defaults to http.DefaultClient.
	Client *http.Client
}

// Store is the content-addressed cache of (request, response) pairs under one
// named generation. Writes are last-writer-wins replacements keyed by request
// identity, so concurrent revalidations need no locking.
type Store struct {
	rdb    *redis.Client
	cfg    Config
	now    func() time.Time
	client *http.Client
}

// New builds a Store over rdb.
func New(rdb *redis.Client, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "cachegen"
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{rdb: rdb, cfg: cfg, now: time.Now, client: client}
}

// Generation returns the current generation name.
func (s *Store) Generation() string {
	return s.cfg.Generation
}

func (s *Store) namesKey() string {
	return s.cfg.Prefix + ":names"
}

func (s *Store) indexKey(generation string) string {
	return s.cfg.Prefix + ":" + generation + ":keys"
}

func (s *Store) entryKey(generation, method, url string) string {
	return s.cfg.Prefix + ":" + generation + ":entry:" + method + " " + url
}

// Install fetches every manifest entry and populates the current generation
// atomically: if any entry fails to fetch, nothing is written. Only GET
// responses with a success status are acceptable manifest content.
func (s *Store) Install(ctx context.Context, manifest []string) error {
	type staged struct {
		url   string
		entry Entry
	}

	entries := make([]staged, 0, len(manifest))
	for _, path := range manifest {
		url := strings.TrimSuffix(s.cfg.BaseURL, "/") + path

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInstallFailed, path, err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInstallFailed, path, err)
		}
		entry, _, err := Capture(resp, s.now())
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInstallFailed, path, err)
		}
		if !entry.Success() {
			return fmt.Errorf("%w: %s: status %d", ErrInstallFailed, path, entry.Status)
		}
		entries = append(entries, staged{url: path, entry: entry})
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.namesKey(), s.cfg.Generation)
		for _, st := range entries {
			payload, err := json.Marshal(st.entry)
			if err != nil {
				return err
			}
			key := s.entryKey(s.cfg.Generation, http.MethodGet, st.url)
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, s.indexKey(s.cfg.Generation), key)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// Activate enumerates every known generation and deletes each one whose name
// differs from the current generation.
func (s *Store) Activate(ctx context.Context) error {
	names, err := s.rdb.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}

	for _, name := range names {
		if name == s.cfg.Generation {
			continue
		}
		keys, err := s.rdb.SMembers(ctx, s.indexKey(name)).Result()
		if err != nil {
			return errors.Join(ErrUnavailable, err)
		}
		_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(keys) > 0 {
				pipe.Del(ctx, keys...)
			}
			pipe.Del(ctx, s.indexKey(name))
			pipe.SRem(ctx, s.namesKey(), name)
			return nil
		})
		if err != nil {
			return errors.Join(ErrUnavailable, err)
		}
	}
	return nil
}

// Generations lists the known generation names.
func (s *Store) Generations(ctx context.Context) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return names, nil
}

// Match returns the cached entry for the normalized request identity, or nil
// when nothing is cached. Only GET requests have cache identity.
func (s *Store) Match(ctx context.Context, method, url string) (*Entry, error) {
	if method != http.MethodGet {
		return nil, nil
	}

	payload, err := s.rdb.Get(ctx, s.entryKey(s.cfg.Generation, method, url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		// A corrupt entry reads as a miss; the next Put overwrites it.
		return nil, nil
	}
	return &entry, nil
}

// Put stores the entry under the request identity. Non-success entries are
// discarded; the later Put for a given key overwrites the earlier one.
func (s *Store) Put(ctx context.Context, method, url string, entry Entry) error {
	if method != http.MethodGet || !entry.Success() {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = s.now()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := s.entryKey(s.cfg.Generation, method, url)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.namesKey(), s.cfg.Generation)
		pipe.Set(ctx, key, payload, 0)
		pipe.SAdd(ctx, s.indexKey(s.cfg.Generation), key)
		return nil
	})
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
