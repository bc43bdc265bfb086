package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the persistence backend cannot be reached.
// Callers treat it as "no session assumed", never as fatal.
var ErrUnavailable = errors.New("session storage unavailable")

// ErrNotFound is returned when a requested key has no persisted value.
var ErrNotFound = errors.New("session state not found")

// DefaultActivityCapacity bounds the activity log; inserting past it evicts the
// oldest record.
const DefaultActivityCapacity = 100

// Bounded append: push to the tail, then trim from the head so the list never
// exceeds the capacity.
const appendActivityScript = `
redis.call("RPUSH", KEYS[1], ARGV[1])
redis.call("LTRIM", KEYS[1], -tonumber(ARGV[2]), -1)
return redis.call("LLEN", KEYS[1])
`

var appendActivityLua = redis.NewScript(appendActivityScript)

// Store persists all durable client-core state in Redis.
//
// Store instances are intended to be configured during initialization and then
// treated as immutable.
type Store struct {
	rdb      *redis.Client
	prefix   string
	capacity int
}

// New builds a Store. An empty prefix defaults to "clientcore"; a non-positive
// capacity defaults to [DefaultActivityCapacity].
func New(rdb *redis.Client, prefix string, activityCapacity int) *Store {
	if prefix == "" {
		prefix = "clientcore"
	}
	if activityCapacity <= 0 {
		activityCapacity = DefaultActivityCapacity
	}
	return &Store{rdb: rdb, prefix: prefix, capacity: activityCapacity}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

func (s *Store) tokenKey() string    { return s.key("session.token") }
func (s *Store) userKey() string     { return s.key("session.user") }
func (s *Store) activityKey() string { return s.key("activity.log") }
func (s *Store) cursorKey() string   { return s.key("sync.cursor") }
func (s *Store) settingsKey() string { return s.key("notification.settings") }

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return errors.Join(ErrUnavailable, err)
}

// SaveToken persists the opaque session token.
func (s *Store) SaveToken(ctx context.Context, tok string) error {
	return mapErr(s.rdb.Set(ctx, s.tokenKey(), tok, 0).Err())
}

// LoadToken returns the persisted token, or [ErrNotFound] when no session
// exists.
func (s *Store) LoadToken(ctx context.Context) (string, error) {
	tok, err := s.rdb.Get(ctx, s.tokenKey()).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return tok, nil
}

// SaveProfile persists the serialized user profile.
func (s *Store) SaveProfile(ctx context.Context, payload []byte) error {
	return mapErr(s.rdb.Set(ctx, s.userKey(), payload, 0).Err())
}

// LoadProfile returns the serialized user profile, or [ErrNotFound].
func (s *Store) LoadProfile(ctx context.Context) ([]byte, error) {
	payload, err := s.rdb.Get(ctx, s.userKey()).Bytes()
	if err != nil {
		return nil, mapErr(err)
	}
	return payload, nil
}

// ClearSession removes the token, the profile, the activity log, and the sync
// cursor in one transaction. Logout and forced expiry both route through here.
func (s *Store) ClearSession(ctx context.Context) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey())
		pipe.Del(ctx, s.userKey())
		pipe.Del(ctx, s.activityKey())
		pipe.Del(ctx, s.cursorKey())
		return nil
	})
	return mapErr(err)
}

// AppendActivity appends one serialized record, evicting from the front once
// the log exceeds its capacity. Returns the resulting length.
func (s *Store) AppendActivity(ctx context.Context, record []byte) (int, error) {
	n, err := appendActivityLua.Run(ctx, s.rdb, []string{s.activityKey()},
		record, s.capacity).Int()
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// ActivitySnapshot returns the full log, oldest first. An absent log is an
// empty snapshot, not an error.
func (s *Store) ActivitySnapshot(ctx context.Context) ([][]byte, error) {
	rows, err := s.rdb.LRange(ctx, s.activityKey(), 0, -1).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([][]byte, 0, len(rows))
	for _, row := range rows {
		out = append(out, []byte(row))
	}
	return out, nil
}

// ClearActivity empties the log.
func (s *Store) ClearActivity(ctx context.Context) error {
	return mapErr(s.rdb.Del(ctx, s.activityKey()).Err())
}

// SyncCursor returns how many activity records have already been delivered.
// An absent cursor reads as zero.
func (s *Store) SyncCursor(ctx context.Context) (int, error) {
	raw, err := s.rdb.Get(ctx, s.cursorKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, mapErr(err)
	}
	n, convErr := strconv.Atoi(raw)
	if convErr != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// SetSyncCursor records the count of delivered records.
func (s *Store) SetSyncCursor(ctx context.Context, n int) error {
	return mapErr(s.rdb.Set(ctx, s.cursorKey(), n, 0).Err())
}

// SaveNotificationSettings persists the dashboard threshold configuration. The
// core never interprets this payload.
func (s *Store) SaveNotificationSettings(ctx context.Context, payload []byte) error {
	return mapErr(s.rdb.Set(ctx, s.settingsKey(), payload, 0).Err())
}

// LoadNotificationSettings returns the dashboard threshold configuration, or
// [ErrNotFound].
func (s *Store) LoadNotificationSettings(ctx context.Context) ([]byte, error) {
	payload, err := s.rdb.Get(ctx, s.settingsKey()).Bytes()
	if err != nil {
		return nil, mapErr(err)
	}
	return payload, nil
}
