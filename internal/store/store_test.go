package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"records", "progress_events", "global_sequence"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("query sqlite_master for %s: %v", table, err)
		}
		if name != table {
			t.Errorf("table name = %q, want %q", name, table)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Records().Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Records().Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("value = %q, want %q", got, "v")
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()
	ctx := context.Background()

	sc, err := newSequenceCounter(db)
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("env override", func(t *testing.T) {
		want := filepath.Join(dir, "custom", "x.db")
		t.Setenv("MAXXCODE_DB", want)
		got, err := DefaultDBPath()
		if err != nil {
			t.Fatalf("DefaultDBPath: %v", err)
		}
		if got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	})

	t.Run("xdg data home", func(t *testing.T) {
		t.Setenv("MAXXCODE_DB", "")
		t.Setenv("XDG_DATA_HOME", dir)
		got, err := DefaultDBPath()
		if err != nil {
			t.Fatalf("DefaultDBPath: %v", err)
		}
		if want := filepath.Join(dir, "maxxcode", "maxxcode.db"); got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	})
}

func TestEventRepo_SQLite(t *testing.T) {
	testEventRepo(t, openTestStore(t).EventRepo())
}

func TestEventRepo_Memory(t *testing.T) {
	testEventRepo(t, NewMemoryEventRepo())
}

func testEventRepo(t *testing.T, repo EventRepo) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	kinds := []EventKind{EventCheckIn, EventLessonCompleted, EventBadgeUnlocked, EventLessonCompleted}
	for i, k := range kinds {
		ev, err := repo.Append(ctx, Event{
			Kind:      k,
			Subject:   "s",
			XP:        i * 10,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if ev.ID == "" {
			t.Errorf("append %d: empty id", i)
		}
		if ev.Sequence != int64(i+1) {
			t.Errorf("append %d: sequence = %d, want %d", i, ev.Sequence, i+1)
		}
	}

	all, err := repo.Query(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	if all[0].Sequence != 4 || all[3].Sequence != 1 {
		t.Errorf("want newest first, got sequences %d..%d", all[0].Sequence, all[3].Sequence)
	}
	if !all[0].Timestamp.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("timestamp = %v", all[0].Timestamp)
	}
	if all[0].XP != 30 {
		t.Errorf("xp = %d, want 30", all[0].XP)
	}

	tests := []struct {
		name string
		opts QueryOpts
		want []int64
	}{
		{"limit", QueryOpts{Limit: 2}, []int64{4, 3}},
		{"after", QueryOpts{After: 2}, []int64{4, 3}},
		{"before", QueryOpts{Before: 3}, []int64{2, 1}},
		{"kind", QueryOpts{Kind: EventLessonCompleted}, []int64{4, 2}},
		{"from", QueryOpts{From: base.Add(2 * time.Minute)}, []int64{4, 3}},
		{"to", QueryOpts{To: base.Add(time.Minute)}, []int64{2, 1}},
		{"kind and limit", QueryOpts{Kind: EventLessonCompleted, Limit: 1}, []int64{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Query(ctx, tt.opts)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, ev := range got {
				if ev.Sequence != tt.want[i] {
					t.Errorf("[%d] sequence = %d, want %d", i, ev.Sequence, tt.want[i])
				}
			}
		})
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	after, err := repo.Query(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query after clear: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("len after clear = %d, want 0", len(after))
	}

	// The sequence keeps increasing across a clear.
	ev, err := repo.Append(ctx, Event{Kind: EventReset})
	if err != nil {
		t.Fatalf("append after clear: %v", err)
	}
	if ev.Sequence != 5 {
		t.Errorf("sequence after clear = %d, want 5", ev.Sequence)
	}
}
