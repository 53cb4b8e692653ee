// Package memory is an in-process export target, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	ports "cashbook/internal/sheets"
)

var _ ports.RowWriter = (*Sheet)(nil)

type Sheet struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
	fail   error
}

func New() *Sheet {
	return &Sheet{}
}

// ReplaceRows stores a copy of rows.
func (s *Sheet) ReplaceRows(_ context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.rows = make([][]string, len(rows))
	for i, r := range rows {
		s.rows[i] = append([]string(nil), r...)
	}
	s.writes++
	return nil
}

func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (s *Sheet) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// SetFailure makes later writes fail with err; nil clears it.
func (s *Sheet) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
