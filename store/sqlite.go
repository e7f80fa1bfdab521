package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
)

// SqliteStore stores the books in a SQLite database.
//
// Table:
//
//	books(pos, title, author, publication_year)  pos INTEGER PRIMARY KEY AUTOINCREMENT
//
// The positional id of a book is its rank when ordered by pos.
type SqliteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS books (
		pos INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		publication_year INTEGER NOT NULL
	)`)
	return err
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// posOf returns the primary key of the book at id.
func (s *SqliteStore) posOf(tx *sql.Tx, id int) (int64, error) {
	if id < 0 {
		return 0, checkID(id, 0)
	}
	var pos int64
	err := tx.QueryRow("SELECT pos FROM books ORDER BY pos LIMIT 1 OFFSET ?", id).Scan(&pos)
	if err == sql.ErrNoRows {
		var n int
		if err := tx.QueryRow("SELECT COUNT(*) FROM books").Scan(&n); err != nil {
			return 0, err
		}
		return 0, checkID(id, n)
	}
	return pos, err
}

func (s *SqliteStore) Add(b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO books (title, author, publication_year) VALUES (?, ?, ?)",
		b.Title, b.Author, b.PublicationYear,
	)
	return err
}

func (s *SqliteStore) List() ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query("SELECT title, author, publication_year FROM books ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.Title, &b.Author, &b.PublicationYear); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *SqliteStore) Get(id int) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 {
		return Book{}, checkID(id, 0)
	}
	var b Book
	err := s.db.QueryRow(
		"SELECT title, author, publication_year FROM books ORDER BY pos LIMIT 1 OFFSET ?", id,
	).Scan(&b.Title, &b.Author, &b.PublicationYear)
	if err == sql.ErrNoRows {
		n, err := s.count()
		if err != nil {
			return Book{}, err
		}
		return Book{}, checkID(id, n)
	}
	return b, err
}

func (s *SqliteStore) Update(id int, b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	pos, err := s.posOf(tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		"UPDATE books SET title = ?, author = ?, publication_year = ? WHERE pos = ?",
		b.Title, b.Author, b.PublicationYear, pos,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	pos, err := s.posOf(tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM books WHERE pos = ?", pos); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count()
}

func (s *SqliteStore) count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM books").Scan(&n)
	return n, err
}
