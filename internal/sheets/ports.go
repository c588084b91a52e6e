package sheets

import (
	"context"
	"strconv"
	"time"

	"dtmoney/internal/core"
)

// Header is the column layout of the transactions sheet. Column A holds
// the id and is used to find rows again.
var Header = []string{"ID", "Created At", "Description", "Type", "Category", "Price"}

// TransactionSheet is the outbound port the export worker writes through.
type TransactionSheet interface {
	// AppendTransaction adds a row for tx unless one with the same id exists.
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	// DeleteTransaction removes the row with the given id. A missing row is
	// not an error.
	DeleteTransaction(ctx context.Context, id int64) error
}

// Row converts tx into the sheet's column layout.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.CreatedAt.UTC().Format(time.RFC3339),
		tx.Description,
		tx.Type.String(),
		tx.Category,
		tx.Price,
	}
}

// FindRow returns the zero based index of the first row whose first cell is
// id, or -1.
func FindRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if cellString(row[0]) == want {
			return i
		}
	}
	return -1
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
