package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/platform/httpx"
	"github.com/feldhof/orders/internal/services"
)

type stockWriteRequest struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Threshold float64 `json:"threshold"`
}

type stockResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Threshold float64 `json:"threshold"`
}

// StockHandlers exposes the inventory write endpoint feeding the watcher.
type StockHandlers struct {
	stock services.StockService
	roles RoleChecker
}

// NewStockHandlers constructs a new StockHandlers instance.
func NewStockHandlers(stock services.StockService, roles RoleChecker) *StockHandlers {
	return &StockHandlers{stock: stock, roles: roles}
}

// Routes registers the /stock endpoints.
func (h *StockHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Put("/{itemID}", h.writeStock)
}

func (h *StockHandlers) writeStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.roles == nil || !h.roles.HasAdminRole(r) {
		httpx.WriteError(ctx, w, httpx.NewError("permission_denied", "admin role required", http.StatusForbidden))
		return
	}

	var payload stockWriteRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	item, err := h.stock.Write(ctx, domain.StockItem{
		ID:        chi.URLParam(r, "itemID"),
		Name:      payload.Name,
		Quantity:  payload.Quantity,
		Threshold: payload.Threshold,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Threshold: item.Threshold,
	})
}
