package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/platform/auth"
	"github.com/marketloop/api/internal/platform/httpx"
	"github.com/marketloop/api/internal/services"
)

// SalesHandlers exposes the seller projection of orders. Sellers only ever
// see their own lines, and may only move them to ready_to_send or shipping;
// receipt confirmation stays with the customer.
type SalesHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewSalesHandlers constructs the seller endpoints.
func NewSalesHandlers(authn *auth.Authenticator, orders services.OrderService) *SalesHandlers {
	return &SalesHandlers{authn: authn, orders: orders}
}

// Routes registers seller endpoints on the router group.
func (h *SalesHandlers) Routes(r chi.Router) {
	r.Use(h.authn.RequireAuth(domain.RoleSeller))

	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
	r.Get("/{orderID}/lines/{productID}", h.getLine)
	r.Patch("/{orderID}/lines/{productID}", h.updateLineStatus)
}

type updateLineStatusPayload struct {
	Status string `json:"status"`
}

func (h *SalesHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orders, err := h.orders.GetSellerOrders(ctx, identity.UserID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders": buildOrderPayloads(orders),
	})
}

func (h *SalesHandlers) get(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orders.GetSellerOrder(ctx, identity.UserID, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *SalesHandlers) getLine(w http.ResponseWriter, r *http.Request) {
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

	line, err := h.orders.GetSellerLineItem(ctx, identity.UserID, orderID, productID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderLinePayload(line))
}

func (h *SalesHandlers) updateLineStatus(w http.ResponseWriter, r *http.Request) {
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

	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload updateLineStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	status, ok := domain.ParseLineStatus(payload.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown line status", http.StatusBadRequest))
		return
	}
	if !sellerMaySetLineStatus(status) {
		httpx.WriteError(ctx, w, httpx.NewError("status_not_allowed", "sellers may only set ready_to_send or shipping", http.StatusForbidden))
		return
	}

	line, err := h.orders.UpdateLineItemStatus(ctx, services.UpdateLineStatusCommand{
		SellerID:  identity.UserID,
		OrderID:   orderID,
		ProductID: productID,
		Status:    status,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderLinePayload(line))
}

func sellerMaySetLineStatus(status domain.LineStatus) bool {
	return status == domain.LineStatusReadyToSend || status == domain.LineStatusShipping
}
