// Package store defines the book store interface and implementations.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a positional id does not address an existing
// book.
var ErrNotFound = errors.New("book not found")

// Book is one record of the store.
type Book struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublicationYear int    `json:"publicationYear"`
}

// Row returns the book as cell values in column order.
func (b Book) Row() []any {
	return []any{b.Title, b.Author, b.PublicationYear}
}

// Store is the interface that all backing stores must implement.
//
// Books are addressed by position: id 0 is the first book in insertion order.
// Removing a book shifts every following id down by one.
type Store interface {
	// Init creates the backing resource with no books if it does not exist.
	Init() error

	// Add appends a book.
	Add(b Book) error

	// List returns every book in order. The result is never nil.
	List() ([]Book, error)

	// Get returns the book at id.
	Get(id int) (Book, error)

	// Update overwrites the book at id. It never creates a book.
	Update(id int, b Book) error

	// Delete removes the book at id.
	Delete(id int) error

	// Count returns the number of books.
	Count() (int, error)

	Close() error
}

// checkID returns ErrNotFound unless 0 <= id < n.
func checkID(id, n int) error {
	if id < 0 || id >= n {
		return fmt.Errorf("%w: id %d, have %d", ErrNotFound, id, n)
	}
	return nil
}
