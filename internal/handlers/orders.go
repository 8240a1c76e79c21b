package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/platform/auth"
	"github.com/marketloop/api/internal/platform/httpx"
	"github.com/marketloop/api/internal/services"
)

// OrderHandlers exposes the customer-facing order lifecycle.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
}

// NewOrderHandlers constructs the customer order endpoints. The idempotency
// middleware, when provided, guards order creation against duplicate submits.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, idempotency func(http.Handler) http.Handler) *OrderHandlers {
	return &OrderHandlers{authn: authn, orders: orders, idempotency: idempotency}
}

// Routes registers customer order endpoints on the router group.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Use(h.authn.RequireAuth(domain.RoleCustomer))

	if h.idempotency != nil {
		r.With(h.idempotency).Post("/", h.create)
	} else {
		r.Post("/", h.create)
	}
	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
	r.Post("/{orderID}/cancel", h.cancel)
	r.Post("/{orderID}/lines/{productID}/receive", h.confirmReceipt)
}

type orderLinePayload struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Cost      int64  `json:"cost"`
	SellerID  int64  `json:"seller_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
}

type orderPayload struct {
	ID        int64              `json:"id"`
	OwnerID   int64              `json:"owner_id"`
	Status    string             `json:"status"`
	CreatedAt string             `json:"created_at,omitempty"`
	Lines     []orderLinePayload `json:"lines"`
	TotalCost int64              `json:"total_cost"`
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.CreateOrder(ctx, identity.UserID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orders, err := h.orders.GetUserOrders(ctx, identity.UserID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders": buildOrderPayloads(orders),
	})
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetUserOrder(ctx, identity.UserID, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.CancelOrder(ctx, identity.UserID, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.ConfirmLineReceived(ctx, identity.UserID, orderID, productID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func buildOrderLinePayload(line domain.OrderLine) orderLinePayload {
	return orderLinePayload{
		ProductID: line.ProductID,
		Title:     line.Title,
		Cost:      line.Cost,
		SellerID:  line.SellerID,
		Quantity:  line.Quantity,
		Status:    string(line.Status),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:        order.ID,
		OwnerID:   order.OwnerID,
		Status:    string(order.Status),
		CreatedAt: formatTime(order.CreatedAt),
		Lines:     make([]orderLinePayload, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		payload.Lines = append(payload.Lines, buildOrderLinePayload(line))
		payload.TotalCost += line.Cost * int64(line.Quantity)
	}
	return payload
}

func buildOrderPayloads(orders []domain.Order) []orderPayload {
	payloads := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, buildOrderPayload(order))
	}
	return payloads
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("order_forbidden", "order belongs to another user", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process order request", http.StatusInternalServerError))
	}
}
