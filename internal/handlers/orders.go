package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/platform/httpx"
	"github.com/feldhof/orders/internal/services"
)

const maxOrderBodySize = 64 * 1024

type submitOrderRequest struct {
	CustomerName   string             `json:"customerName"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	DeliveryOption string             `json:"deliveryOption"`
	RequestedDate  string             `json:"requestedDate"`
	DeliveryCost   float64            `json:"deliveryCost"`
	Items          []orderItemPayload `json:"items"`
}

type orderItemPayload struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	UnitPrice    float64 `json:"unitPrice"`
	SpecialPrice float64 `json:"specialPrice,omitempty"`
	Quantity     int     `json:"qty"`
}

type updateOrderRequest struct {
	Status       string `json:"status"`
	TrackingLink string `json:"trackingLink"`
}

type orderResponse struct {
	ID             string             `json:"id"`
	Stream         string             `json:"stream"`
	Number         string             `json:"orderNumber,omitempty"`
	Status         string             `json:"status"`
	StatusLabel    string             `json:"statusLabel"`
	CustomerName   string             `json:"customerName"`
	Email          string             `json:"email,omitempty"`
	DeliveryOption string             `json:"deliveryOption,omitempty"`
	RequestedDate  string             `json:"requestedDate,omitempty"`
	Items          []orderItemPayload `json:"items"`
	DeliveryCost   float64            `json:"deliveryCost"`
	GrandTotal     float64            `json:"grandTotal"`
	TrackingLink   string             `json:"trackingLink,omitempty"`
}

type submitOrderResponse struct {
	Order orderResponse `json:"order"`
	// NumberPending is true when the allocation poller exhausted its budget;
	// the confirmation then tells the customer the number follows separately.
	NumberPending bool `json:"numberPending"`
}

// OrderHandlers exposes the order intake and back-office endpoints.
type OrderHandlers struct {
	orders services.OrderService
	roles  RoleChecker
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, roles RoleChecker) *OrderHandlers {
	return &OrderHandlers{orders: orders, roles: roles}
}

// Routes registers the per-stream order endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}", h.updateOrder)
	r.Post("/{orderID}:dispatch-notice", h.requestDispatchNotice)
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stream, ok := domain.ParseStream(chi.URLParam(r, "stream"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unknown_stream", "unknown order stream", http.StatusNotFound))
		return
	}

	var payload submitOrderRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	items := make([]domain.LineItem, len(payload.Items))
	for i, item := range payload.Items {
		items[i] = domain.LineItem{
			ID:           item.ID,
			Label:        item.Label,
			UnitPrice:    item.UnitPrice,
			SpecialPrice: item.SpecialPrice,
			Quantity:     item.Quantity,
		}
	}

	result, err := h.orders.Submit(ctx, services.SubmitOrderCommand{
		Stream:         stream,
		CustomerName:   payload.CustomerName,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DeliveryOption: payload.DeliveryOption,
		RequestedDate:  payload.RequestedDate,
		Items:          items,
		DeliveryCost:   payload.DeliveryCost,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitOrderResponse{
		Order:         toOrderResponse(result.Order),
		NumberPending: result.Number == "",
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stream, ok := domain.ParseStream(chi.URLParam(r, "stream"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unknown_stream", "unknown order stream", http.StatusNotFound))
		return
	}

	order, err := h.orders.Get(ctx, stream, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.roles == nil || !h.roles.HasAdminRole(r) {
		httpx.WriteError(ctx, w, httpx.NewError("permission_denied", "admin role required", http.StatusForbidden))
		return
	}

	stream, ok := domain.ParseStream(chi.URLParam(r, "stream"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unknown_stream", "unknown order stream", http.StatusNotFound))
		return
	}

	var payload updateOrderRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateStatusCommand{
		Stream:       stream,
		OrderID:      chi.URLParam(r, "orderID"),
		Status:       domain.OrderStatus(strings.TrimSpace(payload.Status)),
		TrackingLink: payload.TrackingLink,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandlers) requestDispatchNotice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.roles == nil || !h.roles.HasAdminRole(r) {
		httpx.WriteError(ctx, w, httpx.NewError("permission_denied", "admin role required", http.StatusForbidden))
		return
	}

	stream, ok := domain.ParseStream(chi.URLParam(r, "stream"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unknown_stream", "unknown order stream", http.StatusNotFound))
		return
	}

	deliveryID, err := h.orders.RequestDispatchNotification(ctx, stream, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deliveryId": deliveryID})
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemPayload, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemPayload{
			ID:           item.ID,
			Label:        item.Label,
			UnitPrice:    item.UnitPrice,
			SpecialPrice: item.SpecialPrice,
			Quantity:     item.Quantity,
		}
	}
	return orderResponse{
		ID:             order.ID,
		Stream:         string(order.Stream),
		Number:         order.Number,
		Status:         string(order.Status),
		StatusLabel:    order.Status.Label(),
		CustomerName:   order.CustomerName,
		Email:          order.Email,
		DeliveryOption: order.DeliveryOption,
		RequestedDate:  order.RequestedDate,
		Items:          items,
		DeliveryCost:   order.DeliveryCost,
		GrandTotal:     order.GrandTotal(),
		TrackingLink:   order.TrackingLink,
	}
}
