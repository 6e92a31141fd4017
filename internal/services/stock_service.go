package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/repositories"
)

// StockServiceDeps bundles collaborators for the inventory write path.
type StockServiceDeps struct {
	Stock       repositories.StockRepository
	Events      EventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type stockService struct {
	stock  repositories.StockRepository
	events EventPublisher
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewStockService wires dependencies into a concrete StockService.
func NewStockService(deps StockServiceDeps) (StockService, error) {
	if deps.Stock == nil {
		return nil, errors.New("stock service: stock repository is required")
	}
	if deps.Events == nil {
		return nil, errors.New("stock service: event publisher is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &stockService{
		stock:  deps.Stock,
		events: deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Write upserts the stock item and publishes the write event carrying the
// previous quantity and threshold so the watcher can detect the crossing edge.
func (s *stockService) Write(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	if strings.TrimSpace(item.ID) == "" {
		return domain.StockItem{}, fmt.Errorf("%w: stock item id is required", ErrInvalidInput)
	}

	item.UpdatedAt = s.clock()
	before, err := s.stock.Upsert(ctx, item)
	if err != nil {
		var repoErr *repositories.Error
		if errors.As(err, &repoErr) && repoErr.Code == repositories.ErrorCodeInvalidInput {
			return domain.StockItem{}, fmt.Errorf("%w: %s", ErrInvalidInput, repoErr.Message)
		}
		return domain.StockItem{}, err
	}

	event := Event{
		ID:         s.newID(),
		Kind:       EventStockWritten,
		ItemID:     item.ID,
		OccurredAt: item.UpdatedAt,
	}
	if before != nil {
		quantity := before.Quantity
		threshold := before.Threshold
		event.PrevQuantity = &quantity
		event.PrevThreshold = &threshold
	}

	if _, err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger(ctx, "stock.event.publish.failed", map[string]any{
			"item":  item.ID,
			"error": err.Error(),
		})
	}
	return item, nil
}
