// Package handler provides the HTTP handlers for the book store.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stevemurr/bookstore/schema"
	"github.com/stevemurr/bookstore/store"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store      store.Store
	mux        *http.ServeMux
	bookSchema map[string]any
}

// New creates a Handler and wires up all routes.
func New(s store.Store) *Handler {
	h := &Handler{
		store:      s,
		mux:        http.NewServeMux(),
		bookSchema: schema.For(&BookRequest{}),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	// Books, addressed by position.
	h.mux.HandleFunc("POST /api/books", h.addBook)
	h.mux.HandleFunc("GET /api/books", h.listBooks)
	h.mux.HandleFunc("GET /api/books/{id}", h.getBook)
	h.mux.HandleFunc("PUT /api/books/{id}", h.updateBook)
	h.mux.HandleFunc("DELETE /api/books/{id}", h.deleteBook)

	h.mux.HandleFunc("GET /api/schema/book", h.getBookSchema)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// storeError answers a failed store call. Missing books are the client's
// problem; anything else is logged and reported without detail.
func storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	slog.ErrorContext(r.Context(), "Store operation failed", "op", op, "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "BookStore",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count()
	if err != nil {
		slog.WarnContext(r.Context(), "Health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "books": n})
}

func (h *Handler) getBookSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.bookSchema)
}
