package session

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// storeFactories runs every behavioural test against each backing.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"redis": func() Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return NewRedisStore(client)
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) { fn(t, factory()) })
	}
}

func TestStore_UnknownSession(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		snap, err := s.Snapshot(context.Background(), "nope")
		if err != nil {
			t.Fatal(err)
		}
		if snap.Exists || snap.LegacyCode != nil || snap.Files != nil {
			t.Errorf("expected empty snapshot, got %+v", snap)
		}
	})
}

func TestStore_LegacyAndFiles(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if err := s.SetLegacyCode(ctx, "S1", "print(0)"); err != nil {
			t.Fatal(err)
		}
		snap, _ := s.Snapshot(ctx, "S1")
		if snap.LegacyCode == nil || *snap.LegacyCode != "print(0)" {
			t.Errorf("legacy = %v", snap.LegacyCode)
		}
		if snap.Exists {
			t.Error("legacy code alone must not create the file map")
		}

		_ = s.PutFile(ctx, "S1", "a.py", "x=1")
		_ = s.PutFile(ctx, "S1", "a.py", "x=2")
		_ = s.PutFile(ctx, "S1", "b.py", "y=1")

		snap, _ = s.Snapshot(ctx, "S1")
		want := map[string]string{"a.py": "x=2", "b.py": "y=1"}
		if !snap.Exists || !reflect.DeepEqual(snap.Files, want) {
			t.Errorf("files = %v (exists=%v), want %v", snap.Files, snap.Exists, want)
		}
	})
}

func TestStore_RemoveAndRename(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.PutFile(ctx, "S1", "a.py", "x=1")
		_ = s.PutFile(ctx, "S1", "c.py", "z=1")

		if err := s.RenameFile(ctx, "S1", "a.py", "b.py"); err != nil {
			t.Fatal(err)
		}
		if err := s.RenameFile(ctx, "S1", "missing.py", "other.py"); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveFile(ctx, "S1", "c.py"); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveFile(ctx, "S1", "ghost.py"); err != nil {
			t.Fatal(err)
		}

		snap, _ := s.Snapshot(ctx, "S1")
		want := map[string]string{"b.py": "x=1"}
		if !reflect.DeepEqual(snap.Files, want) {
			t.Errorf("files = %v, want %v", snap.Files, want)
		}

		// Emptying the map keeps the session known.
		_ = s.RemoveFile(ctx, "S1", "b.py")
		snap, _ = s.Snapshot(ctx, "S1")
		if !snap.Exists || len(snap.Files) != 0 {
			t.Errorf("expected existing empty file map, got %+v", snap)
		}
	})
}

func TestStore_RenameOntoSelf(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.PutFile(ctx, "S1", "a.py", "x=1")
		_ = s.RenameFile(ctx, "S1", "a.py", "a.py")

		snap, _ := s.Snapshot(ctx, "S1")
		if snap.Files["a.py"] != "x=1" {
			t.Errorf("rename onto itself lost content: %v", snap.Files)
		}
	})
}

func TestStore_Drop(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.SetLegacyCode(ctx, "S1", "x")
		_ = s.PutFile(ctx, "S1", "a.py", "x=1")
		_ = s.PutFile(ctx, "S2", "b.py", "y=1")

		if err := s.Drop(ctx, "S1"); err != nil {
			t.Fatal(err)
		}

		snap, _ := s.Snapshot(ctx, "S1")
		if snap.Exists || snap.LegacyCode != nil {
			t.Errorf("expected dropped session, got %+v", snap)
		}
		if snap, _ := s.Snapshot(ctx, "S2"); snap.Files["b.py"] != "y=1" {
			t.Error("dropping one session must not touch another")
		}
	})
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.PutFile(ctx, "S1", "a.py", "x=1")

		snap, _ := s.Snapshot(ctx, "S1")
		snap.Files["a.py"] = "mutated"

		again, _ := s.Snapshot(ctx, "S1")
		if again.Files["a.py"] != "x=1" {
			t.Error("mutating a snapshot leaked into the store")
		}
	})
}

func TestMemoryStore_ConcurrentWriters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := fmt.Sprintf("S%d", i%5)
			_ = s.PutFile(ctx, session, fmt.Sprintf("f%d.py", i), "x")
			_ = s.RenameFile(ctx, session, fmt.Sprintf("f%d.py", i), fmt.Sprintf("g%d.py", i))
			_, _ = s.Snapshot(ctx, session)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 5; i++ {
		snap, _ := s.Snapshot(ctx, fmt.Sprintf("S%d", i))
		total += len(snap.Files)
	}
	if total != 50 {
		t.Errorf("expected 50 files across sessions, got %d", total)
	}
}
