package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonFileStore stores the books as a single JSON array on disk.
//
// Layout:
//
//	data_dir/
//	  books.json   # [{"title": ..., "author": ..., "publicationYear": ...}, ...]
type JsonFileStore struct {
	mu   sync.RWMutex
	path string
}

func NewJsonFileStore(path string) (*JsonFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{path: path}, nil
}

func (s *JsonFileStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return s.saveFile([]Book{})
}

// loadFile reads the whole array. A missing file holds no books.
func (s *JsonFileStore) loadFile() ([]Book, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Book{}, nil
		}
		return nil, err
	}
	books := []Book{}
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

func (s *JsonFileStore) saveFile(books []Book) error {
	b, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (s *JsonFileStore) Add(b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	books, err := s.loadFile()
	if err != nil {
		return err
	}
	return s.saveFile(append(books, b))
}

func (s *JsonFileStore) List() ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadFile()
}

func (s *JsonFileStore) Get(id int) (Book, error) {
	books, err := s.List()
	if err != nil {
		return Book{}, err
	}
	if err := checkID(id, len(books)); err != nil {
		return Book{}, err
	}
	return books[id], nil
}

func (s *JsonFileStore) Update(id int, b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	books, err := s.loadFile()
	if err != nil {
		return err
	}
	if err := checkID(id, len(books)); err != nil {
		return err
	}
	books[id] = b
	return s.saveFile(books)
}

func (s *JsonFileStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	books, err := s.loadFile()
	if err != nil {
		return err
	}
	if err := checkID(id, len(books)); err != nil {
		return err
	}
	return s.saveFile(append(books[:id], books[id+1:]...))
}

func (s *JsonFileStore) Count() (int, error) {
	books, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(books), nil
}

func (s *JsonFileStore) Close() error {
	return nil
}
