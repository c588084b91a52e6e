package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/ports"
	"dtmoney/internal/storage/memory"
)

type stubPublisher struct {
	created, deleted int
	err              error
}

func (p *stubPublisher) PublishCreated(context.Context, core.Transaction) error {
	p.created++
	return p.err
}

func (p *stubPublisher) PublishDeleted(context.Context, int64) error {
	p.deleted++
	return p.err
}

func newTx(typ core.TransactionType) core.NewTransaction {
	return core.NewTransaction{Description: "Lunch", Price: 25, Type: typ, Category: "Food", CreatedAt: time.Now()}
}

func TestTransactionService_CreateAndDelete(t *testing.T) {
	pub := &stubPublisher{}
	repo := memory.New()
	svc := NewTransactionService(repo, pub, nil)
	ctx := context.Background()

	tx, err := svc.Create(ctx, newTx(core.Outcome))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID != 1 || pub.created != 1 {
		t.Fatalf("tx = %+v, published = %d", tx, pub.created)
	}

	if err := svc.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if pub.deleted != 1 || repo.Len() != 0 {
		t.Fatalf("published deletes = %d, stored = %d", pub.deleted, repo.Len())
	}
}

func TestTransactionService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker unavailable")}
	svc := NewTransactionService(memory.New(), pub, nil)

	if _, err := svc.Create(context.Background(), newTx(core.Income)); err != nil {
		t.Fatalf("Create should succeed when publishing fails: %v", err)
	}
}

func TestTransactionService_Errors(t *testing.T) {
	pub := &stubPublisher{}
	svc := NewTransactionService(memory.New(), pub, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, newTx("transfer")); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if err := svc.Delete(ctx, 5); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, 5); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if pub.created != 0 || pub.deleted != 0 {
		t.Fatal("failed writes must not publish")
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil, nil)
	ctx := context.Background()

	tx, err := svc.Create(ctx, newTx(core.Income))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	txs, err := svc.List(ctx, ports.ListQuery{})
	if err != nil || len(txs) != 1 || txs[0].ID != tx.ID {
		t.Fatalf("List = %+v, %v", txs, err)
	}
}
