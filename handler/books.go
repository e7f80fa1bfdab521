package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/stevemurr/bookstore/schema"
	"github.com/stevemurr/bookstore/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// BookRequest is the body of POST /api/books and PUT /api/books/{id}.
//
// The bounds are what a spreadsheet cell holds without loss: 32767 characters
// of text and an integer that is still written out in full digits.
type BookRequest struct {
	Title           string `json:"title" jsonschema:"description=Book title,maxLength=32767"`
	Author          string `json:"author" jsonschema:"description=Author name,maxLength=32767"`
	PublicationYear int    `json:"publicationYear" jsonschema:"description=Year of first publication,minimum=-999999999,maximum=999999999"`
}

// BookResponse is the body of GET /api/books/{id}.
type BookResponse struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	PublicationYear int    `json:"publicationYear"`
}

// requestError marks body errors that are the client's fault.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// readBook decodes and validates a request body. The body is checked against
// the BookRequest schema before it is decoded into the typed struct, so a
// missing field is rejected instead of turning into a zero value.
func (h *Handler) readBook(w http.ResponseWriter, r *http.Request) (store.Book, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return store.Book{}, &requestError{http.StatusBadRequest, "invalid body: " + err.Error()}
	}
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return store.Book{}, &requestError{http.StatusBadRequest, "invalid JSON: " + err.Error()}
	}
	if err := schema.Validate(h.bookSchema, doc); err != nil {
		return store.Book{}, &requestError{http.StatusUnprocessableEntity, "schema validation failed: " + err.Error()}
	}
	var req BookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return store.Book{}, &requestError{http.StatusUnprocessableEntity, "invalid book: " + err.Error()}
	}
	return store.Book{Title: req.Title, Author: req.Author, PublicationYear: req.PublicationYear}, nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	var bad *requestError
	if errors.As(err, &bad) {
		writeError(w, bad.status, bad.msg)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// parseID reads the positional id from the path. Only non-negative base-10
// integers are accepted.
func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid book id "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.readBook(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if err := h.store.Add(b); err != nil {
		storeError(w, r, "add", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.store.List()
	if err != nil {
		storeError(w, r, "list", err)
		return
	}
	rows := make([][]any, 0, len(books))
	for _, b := range books {
		rows = append(rows, b.Row())
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.store.Get(id)
	if err != nil {
		storeError(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, BookResponse{
		ID:              id,
		Title:           b.Title,
		Author:          b.Author,
		PublicationYear: b.PublicationYear,
	})
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.readBook(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if err := h.store.Update(id, b); err != nil {
		storeError(w, r, "update", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(id); err != nil {
		storeError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
