// Package store owns the client side list of transactions and keeps it in
// sync with the remote collection.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
)

// Remote is the remote collection as seen by the store.
type Remote interface {
	List(ctx context.Context, query string) ([]core.Transaction, error)
	Create(ctx context.Context, nt core.NewTransaction) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

// Listener receives a copy of the list after every change.
type Listener func([]core.Transaction)

// Store is safe for concurrent use. Remote calls run outside the lock.
type Store struct {
	remote Remote
	logger *log.Logger
	now    func() time.Time

	mu           sync.Mutex
	transactions []core.Transaction
	issued       uint64 // sequence of the newest fetch started

	notifyMu     sync.Mutex
	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int

	initOnce sync.Once
}

type Option func(*Store)

// WithClock sets the clock used to timestamp new transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:       remote,
		logger:       log.Discard(),
		now:          time.Now,
		transactions: []core.Transaction{},
		listeners:    make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init performs the initial unfiltered fetch. Only the first call does any
// work; later calls return nil immediately.
func (s *Store) Init(ctx context.Context) error {
	var err error
	s.initOnce.Do(func() {
		err = s.FetchTransactions(ctx, "")
	})
	return err
}

// FetchTransactions replaces the list with the remote result for query,
// keeping the server's order. When a newer fetch has been started meanwhile
// the result, or the failure, is dropped and nil is returned.
func (s *Store) FetchTransactions(ctx context.Context, query string) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	txs, err := s.remote.List(ctx, query)

	// a superseded fetch neither applies nor reports: its caller would
	// have had the result thrown away either way
	s.mu.Lock()
	if seq != s.issued {
		newest := s.issued
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Discarding stale fetch response",
			log.FieldOperation, log.OpFetch,
			log.FieldSequence, seq,
			"newest", newest,
			"query", query,
			"failed", err != nil)
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("fetch transactions: %w", err)
	}
	s.transactions = slices.Clone(txs)
	if s.transactions == nil {
		s.transactions = []core.Transaction{}
	}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Fetched transactions", "count", len(txs), "query", query)
	s.notify()
	return nil
}

// CreateTransaction sends input stamped with the current time and appends
// the record echoed by the server.
func (s *Store) CreateTransaction(ctx context.Context, input core.CreateTransactionInput) error {
	if err := input.Validate(); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	created, err := s.remote.Create(ctx, input.WithTimestamp(s.now()))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	s.mu.Lock()
	s.transactions = append(s.transactions, created)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(created.ID, created.Type.String(), created.Description, created.Price, created.Category).
			ToSlice()...)
	s.notify()
	return nil
}

// DeleteTransaction deletes id remotely and then drops every local record
// with that id.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.remote.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.mu.Lock()
	s.transactions = slices.DeleteFunc(s.transactions, func(tx core.Transaction) bool {
		return tx.ID == id
	})
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldOperation, log.OpDelete, "id", id)
	s.notify()
	return nil
}

// Transactions returns a copy of the current list.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transactions)
}

func (s *Store) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.transactions)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// notify delivers the latest list to every listener. Deliveries are
// serialized so listeners never observe an older list after a newer one.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(s.Transactions())
	}
}
