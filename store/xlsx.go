package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the books.
const SheetName = "Books"

var (
	header       = []any{"Title", "Author", "PublicationYear"}
	columnWidths = []float64{30, 30, 15}
)

// XlsxStore keeps the books as rows of a single spreadsheet file.
//
// Layout of the "Books" sheet:
//
//	row 1   Title | Author | PublicationYear
//	row 2+  one book per row, contiguous
//
// The file is opened and rewritten in full on every call. Nothing is cached
// between calls, so edits made to the file while the server is stopped are
// picked up.
type XlsxStore struct {
	mu   sync.RWMutex
	path string
}

func NewXlsxStore(path string) (*XlsxStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &XlsxStore{path: path}, nil
}

func (s *XlsxStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	row := header
	if err := f.SetSheetRow(SheetName, "A1", &row); err != nil {
		return err
	}
	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return err
		}
	}
	return s.save(f)
}

// open loads the workbook and checks that the books sheet exists.
func (s *XlsxStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	idx, err := f.GetSheetIndex(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: sheet %q: %w", s.path, SheetName, err)
	}
	if idx < 0 {
		f.Close()
		return nil, fmt.Errorf("open %s: sheet %q not found", s.path, SheetName)
	}
	return f, nil
}

// save writes the workbook to a temporary file next to the target and renames
// it into place, so a failed write never leaves a truncated file behind.
func (s *XlsxStore) save(f *excelize.File) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".books-*.xlsx")
	if err != nil {
		return err
	}
	// CreateTemp uses 0600; match the mode the other backends write with.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// books returns the data rows of the sheet, header excluded.
func (s *XlsxStore) books(f *excelize.File) ([]Book, error) {
	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	books := make([]Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, bookFromRow(r))
	}
	return books, nil
}

// bookFromRow decodes one sheet row. Missing cells are empty and a year that
// is not an integer decodes as 0.
func bookFromRow(r []string) Book {
	cell := func(i int) string {
		if i < len(r) {
			return r[i]
		}
		return ""
	}
	year, _ := strconv.Atoi(strings.TrimSpace(cell(2)))
	return Book{Title: cell(0), Author: cell(1), PublicationYear: year}
}

// writeRow stores b at the given 0-based data position.
func writeRow(f *excelize.File, id int, b Book) error {
	cell, err := excelize.CoordinatesToCellName(1, id+2)
	if err != nil {
		return err
	}
	row := b.Row()
	return f.SetSheetRow(SheetName, cell, &row)
}

func (s *XlsxStore) Add(b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()
	books, err := s.books(f)
	if err != nil {
		return err
	}
	if err := writeRow(f, len(books), b); err != nil {
		return err
	}
	return s.save(f)
}

func (s *XlsxStore) List() ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.books(f)
}

func (s *XlsxStore) Get(id int) (Book, error) {
	books, err := s.List()
	if err != nil {
		return Book{}, err
	}
	if err := checkID(id, len(books)); err != nil {
		return Book{}, err
	}
	return books[id], nil
}

func (s *XlsxStore) Update(id int, b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()
	books, err := s.books(f)
	if err != nil {
		return err
	}
	if err := checkID(id, len(books)); err != nil {
		return err
	}
	if err := writeRow(f, id, b); err != nil {
		return err
	}
	return s.save(f)
}

func (s *XlsxStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()
	books, err := s.books(f)
	if err != nil {
		return err
	}
	if err := checkID(id, len(books)); err != nil {
		return err
	}
	if err := f.RemoveRow(SheetName, id+2); err != nil {
		return err
	}
	return s.save(f)
}

func (s *XlsxStore) Count() (int, error) {
	books, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(books), nil
}

func (s *XlsxStore) Close() error {
	return nil
}
