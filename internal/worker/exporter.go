package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"dtmoney/internal/amqp"
	"dtmoney/internal/cache"
	"dtmoney/internal/log"
	"dtmoney/internal/sheets"
)

// Deleted ids are remembered so a created event redelivered after its
// delete does not bring the row back. Ids are never reused by the
// repositories. The memory is per process and bounded, so the mirror is
// eventually consistent across worker restarts only.
const (
	tombstoneSize = 10000
	tombstoneTTL  = 24 * time.Hour
)

// SheetsExporter mirrors transaction events into a spreadsheet.
type SheetsExporter struct {
	sheet   sheets.TransactionSheet
	deleted *cache.LRUCache[struct{}]
	logger  *log.Logger
}

func NewSheetsExporter(sheet sheets.TransactionSheet, logger *log.Logger) *SheetsExporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &SheetsExporter{
		sheet:   sheet,
		deleted: cache.NewLRUCache[struct{}](tombstoneSize, tombstoneTTL),
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Tombstones exposes the deleted-id memory so the caller can register it
// with a cache.Manager for periodic expiry.
func (w *SheetsExporter) Tombstones() cache.Cleaner {
	return w.deleted
}

// HandleEvent applies one event. An error makes the consumer requeue it.
func (w *SheetsExporter) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	w.logger.InfoContext(ctx, "Processing transaction event",
		"type", event.Type,
		"id", event.ID,
		"timestamp", event.Timestamp)

	switch event.Type {
	case amqp.EventTransactionCreated:
		if _, gone := w.deleted.Get(tombstoneKey(event.ID)); gone {
			w.logger.DebugContext(ctx, "Skipping created event for deleted transaction", "id", event.ID)
			return nil
		}
		if err := w.sheet.AppendTransaction(ctx, *event.Transaction); err != nil {
			return fmt.Errorf("export transaction %d: %w", event.ID, err)
		}
	case amqp.EventTransactionDeleted:
		if err := w.sheet.DeleteTransaction(ctx, event.ID); err != nil {
			return fmt.Errorf("remove transaction %d: %w", event.ID, err)
		}
		w.deleted.Set(tombstoneKey(event.ID), struct{}{})
	}

	w.logger.InfoContext(ctx, "Transaction event processed",
		log.FieldOperation, log.OpSync,
		"type", event.Type,
		"id", event.ID)
	return nil
}

func tombstoneKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
