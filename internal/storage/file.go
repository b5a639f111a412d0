package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"expensetracker/internal/core"
)

// SchemaVersion is written into every ledger file.
const SchemaVersion = 1

type ledgerDocument struct {
	Version  int             `json:"version"`
	Expenses []storedExpense `json:"expenses"`
}

// storedExpense mirrors core.Expense. JSON strings cannot carry invalid
// UTF-8, so such text is also kept as raw bytes (base64 in the file) and
// the raw form wins on load.
type storedExpense struct {
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	DateRaw     []byte  `json:"date_raw,omitempty"`
	CategoryRaw []byte  `json:"category_raw,omitempty"`
}

func toStored(e core.Expense) storedExpense {
	se := storedExpense{Date: e.Date, Category: e.Category, Amount: e.Amount}
	if !utf8.ValidString(e.Date) {
		se.DateRaw = []byte(e.Date)
	}
	if !utf8.ValidString(e.Category) {
		se.CategoryRaw = []byte(e.Category)
	}
	return se
}

func (se storedExpense) expense() core.Expense {
	e := core.NewExpense(se.Date, se.Category, se.Amount)
	if se.DateRaw != nil {
		e.Date = string(se.DateRaw)
	}
	if se.CategoryRaw != nil {
		e.Category = string(se.CategoryRaw)
	}
	return e
}

// FileStore keeps the ledger as a versioned JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load decodes the ledger file. A missing file yields an error matching
// fs.ErrNotExist.
func (s *FileStore) Load(_ context.Context) ([]core.Expense, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, s.path)
	}

	var doc ledgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	records := make([]core.Expense, len(doc.Expenses))
	for i, se := range doc.Expenses {
		records[i] = se.expense()
	}
	return records, nil
}

// Save replaces the ledger file with records, in the given order.
func (s *FileStore) Save(_ context.Context, records []core.Expense) error {
	doc := ledgerDocument{Version: SchemaVersion, Expenses: make([]storedExpense, len(records))}
	for i, e := range records {
		doc.Expenses[i] = toStored(e)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// SummaryFile is the plain-text category summary.
type SummaryFile struct {
	path string
}

func NewSummaryFile(path string) *SummaryFile {
	return &SummaryFile{path: path}
}

// Path returns the backing file location.
func (f *SummaryFile) Path() string {
	return f.path
}

// WriteText replaces the file content. An empty text leaves a zero-byte file.
func (f *SummaryFile) WriteText(_ context.Context, text string) error {
	return writeFileAtomic(f.path, []byte(text))
}

// ReadText returns the current file content, or "" if it does not exist.
func (f *SummaryFile) ReadText(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read summary file: %w", err)
	}
	return string(data), nil
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
