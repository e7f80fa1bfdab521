package store_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stevemurr/bookstore/store"
)

func mustAdd(t *testing.T, s store.Store, books ...store.Book) {
	t.Helper()
	for _, b := range books {
		if err := s.Add(b); err != nil {
			t.Fatal(err)
		}
	}
}

func mustList(t *testing.T, s store.Store) []store.Book {
	t.Helper()
	books, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	return books
}

// runStoreTests runs a common test suite against any Store implementation.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()

	dune := store.Book{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965}
	emma := store.Book{Title: "Emma", Author: "Jane Austen", PublicationYear: 1815}
	ubik := store.Book{Title: "Ubik", Author: "Philip K. Dick", PublicationYear: 1969}

	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	t.Run("List empty", func(t *testing.T) {
		books := mustList(t, s)
		if books == nil {
			t.Fatal("expected non-nil slice")
		}
		if len(books) != 0 {
			t.Fatalf("expected 0 books, got %d", len(books))
		}
	})

	t.Run("Init is idempotent", func(t *testing.T) {
		mustAdd(t, s, dune)
		if err := s.Init(); err != nil {
			t.Fatal(err)
		}
		if n, err := s.Count(); err != nil || n != 1 {
			t.Fatalf("expected 1 book after second Init, got %d (%v)", n, err)
		}
	})

	t.Run("Add keeps insertion order", func(t *testing.T) {
		mustAdd(t, s, emma, ubik)
		books := mustList(t, s)
		want := []store.Book{dune, emma, ubik}
		if len(books) != len(want) {
			t.Fatalf("expected %d books, got %d", len(want), len(books))
		}
		for i := range want {
			if books[i] != want[i] {
				t.Fatalf("book %d: expected %+v, got %+v", i, want[i], books[i])
			}
		}
	})

	t.Run("Get", func(t *testing.T) {
		got, err := s.Get(1)
		if err != nil {
			t.Fatal(err)
		}
		if got != emma {
			t.Fatalf("expected %+v, got %+v", emma, got)
		}
	})

	t.Run("Get out of range", func(t *testing.T) {
		for _, id := range []int{-1, 3, 100} {
			if _, err := s.Get(id); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("id %d: expected ErrNotFound, got %v", id, err)
			}
		}
	})

	t.Run("Update overwrites", func(t *testing.T) {
		updated := store.Book{Title: "Emma (annotated)", Author: "Jane Austen", PublicationYear: 2012}
		if err := s.Update(1, updated); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(1)
		if err != nil {
			t.Fatal(err)
		}
		if got != updated {
			t.Fatalf("expected %+v, got %+v", updated, got)
		}
		emma = updated
	})

	t.Run("Update at count does not create a book", func(t *testing.T) {
		err := s.Update(3, dune)
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if n, _ := s.Count(); n != 3 {
			t.Fatalf("expected 3 books, got %d", n)
		}
	})

	t.Run("Delete shifts ids", func(t *testing.T) {
		if err := s.Delete(0); err != nil {
			t.Fatal(err)
		}
		books := mustList(t, s)
		if len(books) != 2 || books[0] != emma || books[1] != ubik {
			t.Fatalf("unexpected books after delete: %+v", books)
		}
	})

	t.Run("Delete same id twice", func(t *testing.T) {
		if err := s.Delete(1); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(1); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		books := mustList(t, s)
		if len(books) != 1 || books[0] != emma {
			t.Fatalf("unexpected books: %+v", books)
		}
	})

	t.Run("Delete negative", func(t *testing.T) {
		if err := s.Delete(-1); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// runConcurrentTests mixes writers on one store and checks that none of their
// effects is lost.
func runConcurrentTests(t *testing.T, s store.Store) {
	t.Helper()
	const adds, deletes, updates = 20, 5, 5

	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	before, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	// Seed enough books that every concurrent Delete(0) and Update(0) has a
	// target whatever the interleaving.
	for i := range deletes + 1 {
		mustAdd(t, s, store.Book{Title: fmt.Sprintf("seed %d", i), Author: "S", PublicationYear: i})
	}

	var wg sync.WaitGroup
	errs := make(chan error, adds+deletes+updates)
	for i := range adds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Add(store.Book{Title: fmt.Sprintf("book %d", i), Author: "A", PublicationYear: 2000 + i})
		}()
	}
	for range deletes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Delete(0)
		}()
	}
	for i := range updates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(0, store.Book{Title: fmt.Sprintf("updated %d", i), Author: "U", PublicationYear: i})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	want := before + 1 + adds
	if n, err := s.Count(); err != nil || n != want {
		t.Fatalf("expected %d books, got %d (%v)", want, n, err)
	}
	books := mustList(t, s)
	seen := map[string]bool{}
	for _, b := range books {
		seen[b.Title] = true
	}
	for i := range adds {
		if title := fmt.Sprintf("book %d", i); !seen[title] {
			t.Fatalf("lost concurrent add %q", title)
		}
	}
}

func TestConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"xlsx", "sqlite", "json", "memory"} {
		t.Run(backend, func(t *testing.T) {
			s, err := store.New(backend, filepath.Join(dir, backend), "data.xlsx")
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()
			runConcurrentTests(t, s)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, store.NewMemoryStore())
}

func TestJsonFileStore(t *testing.T) {
	s, err := store.NewJsonFileStore(filepath.Join(t.TempDir(), "books.json"))
	if err != nil {
		t.Fatal(err)
	}
	runStoreTests(t, s)
}

func TestSqliteStore(t *testing.T) {
	s, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	runStoreTests(t, s)
}

func TestXlsxStore(t *testing.T) {
	s, err := store.NewXlsxStore(filepath.Join(t.TempDir(), "data.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	runStoreTests(t, s)
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
	}{
		{"xlsx"},
		{"sqlite"},
		{"json"},
		{"memory"},
		{""},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			s, err := store.New(tc.backend, filepath.Join(dir, tc.backend), "data.xlsx")
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()
			if err := s.Init(); err != nil {
				t.Fatal(err)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := store.New("redis", dir, "data.xlsx")
		if err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})
}

func TestPath(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"", filepath.Join("d", "data.xlsx")},
		{"xlsx", filepath.Join("d", "data.xlsx")},
		{"sqlite", filepath.Join("d", "books.db")},
		{"json", filepath.Join("d", "books.json")},
		{"memory", ""},
	}
	for _, tc := range tests {
		if got := store.Path(tc.backend, "d", "data.xlsx"); got != tc.want {
			t.Errorf("Path(%q) = %q, want %q", tc.backend, got, tc.want)
		}
	}
}
