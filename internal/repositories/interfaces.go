package repositories

import (
	"context"

	"github.com/feldhof/orders/internal/domain"
)

// OrderRepository persists order records in the shared document store.
type OrderRepository interface {
	// Create stores a new order record. The id must be set by the caller.
	Create(ctx context.Context, order domain.Order) error
	// Get loads a single order by id within a stream.
	Get(ctx context.Context, stream domain.Stream, orderID string) (domain.Order, error)
	// Update overwrites the mutable dashboard fields (status, tracking link).
	Update(ctx context.Context, order domain.Order) error
	// SetNumber stamps the allocated order number onto the record. This is a
	// plain field update outside any transaction; once the counter has
	// reserved the number a lost stamp leaves a gap, never a duplicate.
	SetNumber(ctx context.Context, stream domain.Stream, orderID, number string) error
	// AssignedNumbers returns the order numbers already present on records of
	// the stream, capped to the given limit. Used only to bootstrap a counter
	// that predates the counter document.
	AssignedNumbers(ctx context.Context, stream domain.Stream, limit int) ([]string, error)
}

// CounterRepository owns the per-stream sequence counters.
type CounterRepository interface {
	// Next reserves and returns the next sequence value for the stream inside
	// a serializable transaction. When no counter document exists yet,
	// bootstrap is invoked to derive the starting value from existing records.
	Next(ctx context.Context, stream domain.Stream, bootstrap func(ctx context.Context) (int64, error)) (int64, error)
}

// StockRepository persists stock records watched for threshold crossings.
type StockRepository interface {
	// Get loads a single stock item.
	Get(ctx context.Context, itemID string) (domain.StockItem, error)
	// Upsert writes the stock item and returns the previous state, or nil on
	// the first write ever.
	Upsert(ctx context.Context, item domain.StockItem) (*domain.StockItem, error)
}
