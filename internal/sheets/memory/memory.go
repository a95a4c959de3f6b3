package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sheets "soci/internal/sheets"
)

// Store is an in-memory LedgerWriter for tests and local development.
type Store struct {
	mu      sync.Mutex
	entries []sheets.LedgerEntry
	failErr error
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e sheets.LedgerEntry) (string, error) {
	if e.ReceiptNumber == "" {
		return "", errors.New("ledger entry without receipt number")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", s.failErr
	}
	s.entries = append(s.entries, e)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []sheets.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.LedgerEntry(nil), s.entries...)
}

// Fail makes every subsequent Append return err. Pass nil to recover.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}
