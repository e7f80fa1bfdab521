package store

import "sync"

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	books []Book
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Init() error {
	return nil
}

func (m *MemoryStore) Add(b Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books = append(m.books, b)
	return nil
}

func (m *MemoryStore) List() ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Book, len(m.books))
	copy(out, m.books)
	return out, nil
}

func (m *MemoryStore) Get(id int) (Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := checkID(id, len(m.books)); err != nil {
		return Book{}, err
	}
	return m.books[id], nil
}

func (m *MemoryStore) Update(id int, b Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkID(id, len(m.books)); err != nil {
		return err
	}
	m.books[id] = b
	return nil
}

func (m *MemoryStore) Delete(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkID(id, len(m.books)); err != nil {
		return err
	}
	m.books = append(m.books[:id], m.books[id+1:]...)
	return nil
}

func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
