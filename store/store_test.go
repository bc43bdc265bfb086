package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return New(rdb, "test", 0), mr
}

func TestTokenAndProfileRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadToken(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	if err := s.SaveToken(ctx, "tok-1"); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}
	if err := s.SaveProfile(ctx, []byte(`{"username":"admin"}`)); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	tok, err := s.LoadToken(ctx)
	if err != nil || tok != "tok-1" {
		t.Fatalf("LoadToken: got %q err=%v", tok, err)
	}
	profile, err := s.LoadProfile(ctx)
	if err != nil || string(profile) != `{"username":"admin"}` {
		t.Fatalf("LoadProfile: got %q err=%v", profile, err)
	}
}

func TestClearSessionRemovesEverything(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.SaveToken(ctx, "tok")
	_ = s.SaveProfile(ctx, []byte("{}"))
	if _, err := s.AppendActivity(ctx, []byte(`{"kind":"login"}`)); err != nil {
		t.Fatalf("AppendActivity failed: %v", err)
	}
	_ = s.SetSyncCursor(ctx, 1)

	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	if _, err := s.LoadToken(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("token survived clear: %v", err)
	}
	if _, err := s.LoadProfile(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("profile survived clear: %v", err)
	}
	snap, err := s.ActivitySnapshot(ctx)
	if err != nil || len(snap) != 0 {
		t.Fatalf("activity survived clear: %d err=%v", len(snap), err)
	}
	cursor, err := s.SyncCursor(ctx)
	if err != nil || cursor != 0 {
		t.Fatalf("cursor survived clear: %d err=%v", cursor, err)
	}
}

func TestAppendActivityEvictsOldest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < DefaultActivityCapacity+1; i++ {
		n, err := s.AppendActivity(ctx, []byte(fmt.Sprintf("record-%d", i)))
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if n > DefaultActivityCapacity {
			t.Fatalf("log grew past capacity: %d", n)
		}
	}

	snap, err := s.ActivitySnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snap) != DefaultActivityCapacity {
		t.Fatalf("expected %d records, got %d", DefaultActivityCapacity, len(snap))
	}
	if string(snap[0]) != "record-1" {
		t.Fatalf("oldest record not evicted, head is %q", snap[0])
	}
	if string(snap[len(snap)-1]) != fmt.Sprintf("record-%d", DefaultActivityCapacity) {
		t.Fatalf("tail out of order: %q", snap[len(snap)-1])
	}
}

func TestSyncCursorDefaultsToZero(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	n, err := s.SyncCursor(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected zero cursor, got %d err=%v", n, err)
	}

	if err := s.SetSyncCursor(ctx, 42); err != nil {
		t.Fatalf("SetSyncCursor failed: %v", err)
	}
	n, err = s.SyncCursor(ctx)
	if err != nil || n != 42 {
		t.Fatalf("cursor read back %d err=%v", n, err)
	}
}

func TestStorageUnavailableSurfacesErrUnavailable(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	mr.Close()

	if err := s.SaveToken(ctx, "tok"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.LoadToken(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNotificationSettingsRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"low_stock_threshold":10}`)
	if err := s.SaveNotificationSettings(ctx, payload); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := s.LoadNotificationSettings(ctx)
	if err != nil || string(got) != string(payload) {
		t.Fatalf("load: got %q err=%v", got, err)
	}
}
