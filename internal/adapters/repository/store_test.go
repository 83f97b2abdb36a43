package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/okian/recall/internal/domain/model"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func factories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(t *testing.T) Store {
			return NewMemoryStore(context.Background())
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "revlog.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		}},
	}
}

func event(id string, ts int64) model.StudyEvent {
	return model.StudyEvent{
		EventID:      id,
		CardID:       7,
		Timestamp:    ts,
		Kind:         model.KindReview,
		LastInterval: -86400,
		Button:       2,
	}
}

func sortByID(events []model.StudyEvent) {
	sort.Slice(events, func(i, j int) bool { return events[i].EventID < events[j].EventID })
}

func TestStore_AppendAndRead(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			if n, err := s.Count(ctx); err != nil || n != 0 {
				t.Fatalf("expected empty store, got %d (%v)", n, err)
			}

			want := []model.StudyEvent{
				event("a", 100),
				{EventID: "b", CardID: 8, Timestamp: 200, Kind: model.KindManual, LastInterval: 0, Button: 0},
				{EventID: "c", CardID: 9, Timestamp: -5, Kind: model.EventKind(99), LastInterval: 30, Button: 4},
			}
			for _, e := range want {
				if err := s.Append(ctx, e); err != nil {
					t.Fatalf("append %s: %v", e.EventID, err)
				}
			}

			got, err := s.Events(ctx)
			if err != nil {
				t.Fatalf("events: %v", err)
			}
			sortByID(got)
			if len(got) != len(want) {
				t.Fatalf("expected %d events, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("event %d: expected %+v, got %+v", i, want[i], got[i])
				}
			}
		})
	}
}

func TestStore_DuplicateIDsIgnored(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			if err := s.Append(ctx, event("dup", 1)); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := s.Append(ctx, event("dup", 2)); err != nil {
				t.Fatalf("re-append: %v", err)
			}
			// Events without an ID are never collapsed.
			for i := 0; i < 2; i++ {
				if err := s.Append(ctx, event("", 3)); err != nil {
					t.Fatalf("append without id: %v", err)
				}
			}

			if n, _ := s.Count(ctx); n != 3 {
				t.Errorf("expected 3 events, got %d", n)
			}
			got, _ := s.Events(ctx)
			for _, e := range got {
				if e.EventID == "dup" && e.Timestamp != 1 {
					t.Errorf("expected the first copy to win, got ts %d", e.Timestamp)
				}
			}
		})
	}
}

func TestStore_EventsIsACopy(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			_ = s.Append(ctx, event("a", 1))
			got, _ := s.Events(ctx)
			got[0].Timestamp = 999

			again, _ := s.Events(ctx)
			if again[0].Timestamp != 1 {
				t.Errorf("store was mutated through Events result")
			}
		})
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			const writers, perWriter = 8, 25
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						if err := s.Append(ctx, event(fmt.Sprintf("%d-%d", w, i), int64(i))); err != nil {
							t.Errorf("append: %v", err)
						}
					}
				}(w)
			}
			wg.Wait()

			if n, _ := s.Count(ctx); n != writers*perWriter {
				t.Errorf("expected %d events, got %d", writers*perWriter, n)
			}
		})
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := s.Append(ctx, event("a", 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Events(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "revlog.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.Append(ctx, event("kept", 42))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, _ := s.Events(ctx)
	if len(got) != 1 || got[0] != event("kept", 42) {
		t.Errorf("expected the stored event to survive a reopen, got %+v", got)
	}
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestSQLiteStore_UnusablePath(t *testing.T) {
	// A directory cannot hold the database file, so migration fails.
	_, err := OpenSQLite(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("expected an error opening a directory as a database")
	}
	if !strings.Contains(err.Error(), "migrate sqlite") {
		t.Errorf("expected a migration error, got %v", err)
	}
}
