package store

import (
	"fmt"
	"path/filepath"
)

// Path returns the file a backend keeps its data in, or "" for backends
// without one.
func Path(backend, dataDir, fileName string) string {
	switch backend {
	case "xlsx", "":
		return filepath.Join(dataDir, fileName)
	case "sqlite":
		return filepath.Join(dataDir, "books.db")
	case "json":
		return filepath.Join(dataDir, "books.json")
	}
	return ""
}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"xlsx"   - spreadsheet at dataDir/fileName (default)
//	"sqlite" - SQLite database at dataDir/books.db
//	"json"   - JSON array at dataDir/books.json
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, dataDir, fileName string) (Store, error) {
	switch backend {
	case "xlsx", "":
		return NewXlsxStore(Path(backend, dataDir, fileName))
	case "sqlite":
		return NewSqliteStore(Path(backend, dataDir, fileName))
	case "json":
		return NewJsonFileStore(Path(backend, dataDir, fileName))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: xlsx, sqlite, json, memory)", backend)
	}
}
