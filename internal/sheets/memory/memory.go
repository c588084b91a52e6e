package memory

import (
	"context"
	"slices"
	"sync"

	"dtmoney/internal/core"
	"dtmoney/internal/sheets"
)

var _ sheets.TransactionSheet = (*Sheet)(nil)

// Sheet keeps exported rows in memory. The worker uses it when no
// spreadsheet is configured.
type Sheet struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Sheet {
	return &Sheet{}
}

func (s *Sheet) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sheets.FindRow(s.rows, tx.ID) >= 0 {
		return nil
	}
	s.rows = append(s.rows, sheets.Row(tx))
	return nil
}

func (s *Sheet) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := sheets.FindRow(s.rows, id); i >= 0 {
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	return nil
}

// Rows returns a copy of the stored rows.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out
}
