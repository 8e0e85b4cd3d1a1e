// Package sink persists records to per-category CSV stores with an
// idempotent append: re-running the harvest over the same category
// never grows a store.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rsilveira/bookharvest/models"
	"github.com/rsilveira/bookharvest/parser"
)

// header is written exactly once, when a store file is created.
var header = []string{
	"page_url",
	"upc",
	"title",
	"price_incl_tax",
	"price_excl_tax",
	"availability",
	"description",
	"category",
	"rating",
	"image_url",
}

// seenCacheSize bounds the in-memory identity index. Eviction only
// costs a file scan on the next append of that identity.
const seenCacheSize = 4096

// StoreError reports a local storage failure. It is fatal to the
// current item only.
type StoreError struct {
	Path string
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is the append-only CSV table for one category. It is the
// exclusive writer of its file.
type Store struct {
	path string

	mu   sync.Mutex
	seen *lru.Cache[string, struct{}]
}

// NewStore opens (or prepares to create) the store for a category
// under dir. The file itself is created lazily on first append.
func NewStore(dir, category string) (*Store, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StoreError{Path: dir, Op: "mkdir", Err: err}
	}
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create identity cache: %w", err)
	}
	return &Store{
		path: filepath.Join(dir, parser.SanitizeFileName(category)+".csv"),
		seen: seen,
	}, nil
}

// Path returns the store's file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes the record as one CSV row unless a field-for-field
// identical row already exists, in which case it is a silent no-op.
// The returned bool reports whether a row was written.
func (s *Store) Append(rec *models.Record) (bool, error) {
	if err := parser.ValidateRecord(rec); err != nil {
		return false, fmt.Errorf("append: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := rowFor(rec)
	key := identityKey(row)

	// Fast path: identities are only cached after the row is known to
	// be on disk, so a hit never needs the scan.
	if s.seen.Contains(key) {
		return false, nil
	}

	exists, err := s.exists()
	if err != nil {
		return false, err
	}
	if exists {
		found, err := s.scanFor(row)
		if err != nil {
			return false, err
		}
		if found {
			s.seen.Add(key, struct{}{})
			return false, nil
		}
	}

	if err := s.writeRow(row, !exists); err != nil {
		return false, err
	}
	s.seen.Add(key, struct{}{})
	return true, nil
}

func (s *Store) exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &StoreError{Path: s.path, Op: "stat", Err: err}
}

// scanFor reads existing data rows looking for an identical one. Linear
// in store size, quadratic across a category; acceptable at the tens to
// low hundreds of items the source serves per category.
func (s *Store) scanFor(row []string) (bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return false, &StoreError{Path: s.path, Op: "open", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		existing, err := r.Read()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, &StoreError{Path: s.path, Op: "scan", Err: err}
		}
		if first {
			first = false
			continue
		}
		if rowsEqual(existing, row) {
			return true, nil
		}
	}
}

// writeRow appends one row, preceded by the header when the file is
// new. The row is flushed before the file closes so an interrupt never
// leaves a partially visible row.
func (s *Store) writeRow(row []string, writeHeader bool) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &StoreError{Path: s.path, Op: "open", Err: err}
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			f.Close()
			return &StoreError{Path: s.path, Op: "write header", Err: err}
		}
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return &StoreError{Path: s.path, Op: "write row", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &StoreError{Path: s.path, Op: "flush", Err: err}
	}
	if err := f.Close(); err != nil {
		return &StoreError{Path: s.path, Op: "close", Err: err}
	}
	return nil
}

func rowFor(rec *models.Record) []string {
	return []string{
		rec.PageURL,
		rec.UPC,
		rec.Title,
		rec.PriceInclTax,
		rec.PriceExclTax,
		rec.Availability,
		rec.Description,
		rec.Category,
		rec.Rating,
		rec.ImageURL,
	}
}

func identityKey(row []string) string {
	return strings.Join(row, "\x1f")
}

func rowsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
