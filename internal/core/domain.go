// Package core holds the transaction domain types and typed errors.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

type (
	TransactionType string

	// Transaction is a single income or outcome record as stored by the
	// remote collection.
	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Type        TransactionType `json:"type"`
		Price       float64         `json:"price"`
		Category    string          `json:"category"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// CreateTransactionInput holds the user supplied fields of a new transaction.
	CreateTransactionInput struct {
		Description string          `json:"description"`
		Price       float64         `json:"price"`
		Category    string          `json:"category"`
		Type        TransactionType `json:"type"`
	}

	// NewTransaction is the body sent to the remote collection on create.
	// The id is assigned server side.
	NewTransaction struct {
		Description string          `json:"description"`
		Price       float64         `json:"price"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		CreatedAt   time.Time       `json:"createdAt"`
	}
)

var (
	ErrInvalidType = errors.New("invalid transaction type")
	ErrNotFound    = errors.New("transaction not found")
)

// ParseTransactionType accepts "income" or "outcome" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Outcome:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Validate only checks the shape of the input: the type must be one of the
// closed enumeration. Description, price and category are free form.
func (in CreateTransactionInput) Validate() error {
	return in.Type.Validate()
}

// WithTimestamp stamps the input with a client generated creation time.
func (in CreateTransactionInput) WithTimestamp(at time.Time) NewTransaction {
	return NewTransaction{
		Description: in.Description,
		Price:       in.Price,
		Type:        in.Type,
		Category:    in.Category,
		CreatedAt:   at,
	}
}

func (n NewTransaction) Validate() error {
	return n.Type.Validate()
}

// Materialize turns a new transaction into a stored record with the given id.
func (n NewTransaction) Materialize(id int64) Transaction {
	return Transaction{
		ID:          id,
		Description: n.Description,
		Type:        n.Type,
		Price:       n.Price,
		Category:    n.Category,
		CreatedAt:   n.CreatedAt,
	}
}
