package ports

import (
	"context"
	"strings"

	"dtmoney/internal/core"
)

// Sort fields accepted by the remote collection's _sort parameter.
const (
	SortCreatedAt   = "createdAt"
	SortID          = "id"
	SortPrice       = "price"
	SortDescription = "description"
	SortCategory    = "category"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListQuery carries the json-server style list parameters.
type ListQuery struct {
	Search string
	Sort   string
	Order  string
	Type   core.TransactionType
}

// Normalize applies defaults: creation time ascending, no filters.
// Unknown sort fields fall back to creation time.
func (q ListQuery) Normalize() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	switch q.Sort {
	case SortCreatedAt, SortID, SortPrice, SortDescription, SortCategory:
	default:
		q.Sort = SortCreatedAt
	}
	if strings.EqualFold(q.Order, OrderDesc) {
		q.Order = OrderDesc
	} else {
		q.Order = OrderAsc
	}
	return q
}

// Key is a stable cache key for a normalized query.
func (q ListQuery) Key() string {
	n := q.Normalize()
	return strings.Join([]string{n.Sort, n.Order, string(n.Type), strings.ToLower(n.Search)}, "|")
}

// Matches reports whether tx satisfies the filters of q. Search is a
// case-insensitive substring match on description and category.
func (q ListQuery) Matches(tx core.Transaction) bool {
	if q.Type != "" && tx.Type != q.Type {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(tx.Description), needle) ||
		strings.Contains(strings.ToLower(tx.Category), needle)
}

// Ports for the remote collection's persistence.
type (
	TransactionReader interface {
		List(ctx context.Context, q ListQuery) ([]core.Transaction, error)
		Get(ctx context.Context, id int64) (core.Transaction, error)
	}

	TransactionWriter interface {
		Create(ctx context.Context, tx core.NewTransaction) (core.Transaction, error)
	}

	// TransactionDeleter returns core.ErrNotFound when id does not exist.
	TransactionDeleter interface {
		Delete(ctx context.Context, id int64) error
	}

	TransactionRepository interface {
		TransactionReader
		TransactionWriter
		TransactionDeleter
	}

	// EventPublisher fans out repository changes. Implementations must be
	// safe to call from request handlers.
	EventPublisher interface {
		PublishCreated(ctx context.Context, tx core.Transaction) error
		PublishDeleted(ctx context.Context, id int64) error
	}
)
