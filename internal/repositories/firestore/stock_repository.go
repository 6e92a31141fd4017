package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feldhof/orders/internal/domain"
	pfirestore "github.com/feldhof/orders/internal/platform/firestore"
	"github.com/feldhof/orders/internal/repositories"
)

const stockCollection = "stock"

type stockDocument struct {
	Name      string    `firestore:"name"`
	Quantity  float64   `firestore:"quantity"`
	Threshold float64   `firestore:"threshold"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// StockRepository implements repositories.StockRepository backed by Firestore.
type StockRepository struct {
	provider *pfirestore.Provider
	stock    *pfirestore.Collection[stockDocument]
}

// NewStockRepository constructs a Firestore-backed stock repository.
func NewStockRepository(provider *pfirestore.Provider) (*StockRepository, error) {
	if provider == nil {
		return nil, errors.New("stock repository requires firestore provider")
	}
	return &StockRepository{
		provider: provider,
		stock:    pfirestore.NewCollection[stockDocument](provider, stockCollection),
	}, nil
}

// Get loads a single stock item.
func (r *StockRepository) Get(ctx context.Context, itemID string) (domain.StockItem, error) {
	if r == nil || r.stock == nil {
		return domain.StockItem{}, errors.New("stock repository not initialised")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.StockItem{}, repositories.NewError(repositories.ErrorCodeInvalidInput, "stock item id is required", nil)
	}

	doc, err := r.stock.Get(ctx, itemID)
	if err != nil {
		if pfirestore.IsNotFoundError(err) {
			return domain.StockItem{}, repositories.NewError(repositories.ErrorCodeNotFound, fmt.Sprintf("stock item %s not found", itemID), err)
		}
		return domain.StockItem{}, pfirestore.WrapError("stock.get", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Upsert writes the item and returns the previous state, nil on first write.
func (r *StockRepository) Upsert(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	if r == nil || r.stock == nil {
		return nil, errors.New("stock repository not initialised")
	}
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return nil, repositories.NewError(repositories.ErrorCodeInvalidInput, "stock item id is required", nil)
	}

	var before *domain.StockItem
	existing, err := r.stock.Get(ctx, id)
	switch {
	case err == nil:
		prev := existing.Data.toDomain(existing.ID)
		before = &prev
	case pfirestore.IsNotFoundError(err):
		// first write ever
	default:
		return nil, pfirestore.WrapError("stock.upsert", err)
	}

	doc := stockDocument{
		Name:      strings.TrimSpace(item.Name),
		Quantity:  item.Quantity,
		Threshold: item.Threshold,
		UpdatedAt: item.UpdatedAt.UTC(),
	}
	if err := r.stock.Set(ctx, id, doc); err != nil {
		return nil, pfirestore.WrapError("stock.upsert", err)
	}
	return before, nil
}

func (d stockDocument) toDomain(id string) domain.StockItem {
	return domain.StockItem{
		ID:        id,
		Name:      d.Name,
		Quantity:  d.Quantity,
		Threshold: d.Threshold,
		UpdatedAt: d.UpdatedAt,
	}
}
