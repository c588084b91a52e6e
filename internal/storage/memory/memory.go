package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/ports"
)

var _ ports.TransactionRepository = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction
	now    func() time.Time
}

func New(seed ...core.Transaction) *Store {
	s := &Store{nextID: 1, now: time.Now}
	for _, tx := range seed {
		s.items = append(s.items, tx)
		if tx.ID >= s.nextID {
			s.nextID = tx.ID + 1
		}
	}
	return s
}

// seedFile mirrors the json-server db.json layout.
type seedFile struct {
	Transactions []core.Transaction `json:"transactions"`
}

// NewFromFile seeds the store from a db.json file. An empty path yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(seed.Transactions...), nil
}

// List returns the matching transactions ordered by q.Sort, ties broken by id.
func (s *Store) List(_ context.Context, q ports.ListQuery) ([]core.Transaction, error) {
	q = q.Normalize()

	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if q.Matches(tx) {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		c := compareBy(q.Sort, a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if q.Order == ports.OrderDesc {
			return -c
		}
		return c
	})
	return out, nil
}

func compareBy(field string, a, b core.Transaction) int {
	switch field {
	case ports.SortID:
		return cmp.Compare(a.ID, b.ID)
	case ports.SortPrice:
		return cmp.Compare(a.Price, b.Price)
	case ports.SortDescription:
		return cmp.Compare(a.Description, b.Description)
	case ports.SortCategory:
		return cmp.Compare(a.Category, b.Category)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.items {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

// Create assigns the next id. A zero creation time is stamped with now.
func (s *Store) Create(_ context.Context, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if nt.CreatedAt.IsZero() {
		nt.CreatedAt = s.now().UTC()
	}
	tx := nt.Materialize(s.nextID)
	s.nextID++
	s.items = append(s.items, tx)
	return tx, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id {
			s.items = slices.Delete(s.items, i, i+1)
			return nil
		}
	}
	return core.ErrNotFound
}

// Len reports the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
