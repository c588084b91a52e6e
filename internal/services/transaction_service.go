package services

import (
	"context"
	"fmt"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/ports"
)

// TransactionService stores transactions and then announces the change.
// Storage is the source of truth: a failed publish is logged and the write
// still succeeds.
type TransactionService struct {
	repo      ports.TransactionRepository
	publisher ports.EventPublisher
	sl        *log.StructuredLogger
	logger    *log.Logger
}

// NewTransactionService accepts a nil publisher, in which case events are
// not sent.
func NewTransactionService(repo ports.TransactionRepository, publisher ports.EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		sl:        log.NewStructuredLogger(logger),
		logger:    logger,
	}
}

func (s *TransactionService) List(ctx context.Context, q ports.ListQuery) ([]core.Transaction, error) {
	txs, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (s *TransactionService) Create(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.repo.Create(ctx, nt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.sl.LogTransactionCreated(ctx, tx.ID, tx.Type.String(), tx.Description, tx.Price, tx.Category)

	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, tx); err != nil {
			s.sl.LogError(ctx, "Failed to publish transaction event", err, log.ErrorTypeNetwork, log.OpPublish,
				log.NewFields().WithTransaction(tx.ID, tx.Type.String(), tx.Description, tx.Price, tx.Category))
		}
	}
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldOperation, log.OpDelete, "id", id)

	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, id); err != nil {
			s.sl.LogError(ctx, "Failed to publish transaction event", err, log.ErrorTypeNetwork, log.OpPublish,
				log.LogFields{"id": id})
		}
	}
	return nil
}
