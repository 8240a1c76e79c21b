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

// CartHandlers exposes the customer's staging basket.
type CartHandlers struct {
	authn *auth.Authenticator
	cart  services.CartService
}

// NewCartHandlers constructs the cart endpoints.
func NewCartHandlers(authn *auth.Authenticator, cart services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, cart: cart}
}

// Routes registers cart endpoints on the router group.
func (h *CartHandlers) Routes(r chi.Router) {
	r.Use(h.authn.RequireAuth(domain.RoleCustomer))

	r.Get("/", h.getContent)
	r.Delete("/", h.clear)
	r.Post("/items/{productID}", h.addItem)
	r.Delete("/items/{productID}", h.removeItem)
}

type cartItemPayload struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Cost      int64  `json:"cost"`
	SellerID  int64  `json:"seller_id"`
	Quantity  int    `json:"quantity"`
}

type cartPayload struct {
	Items     []cartItemPayload `json:"items"`
	TotalCost int64             `json:"total_cost"`
}

func (h *CartHandlers) getContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	items, err := h.cart.GetContent(ctx, identity.UserID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildCartPayload(items))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if err := h.cart.AddItem(ctx, identity.UserID, productID); err != nil {
		writeCartError(ctx, w, err)
		return
	}

	items, err := h.cart.GetContent(ctx, identity.UserID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildCartPayload(items))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if err := h.cart.RemoveItem(ctx, identity.UserID, productID); err != nil {
		writeCartError(ctx, w, err)
		return
	}

	items, err := h.cart.GetContent(ctx, identity.UserID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildCartPayload(items))
}

func (h *CartHandlers) clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	if err := h.cart.ClearAll(ctx, identity.UserID); err != nil {
		writeCartError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusNoContent, nil)
}

func buildCartPayload(items []domain.CartItem) cartPayload {
	payload := cartPayload{Items: make([]cartItemPayload, 0, len(items))}
	for _, item := range items {
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID: item.ProductID,
			Title:     item.Title,
			Cost:      item.Cost,
			SellerID:  item.SellerID,
			Quantity:  item.Quantity,
		})
		payload.TotalCost += item.Cost * int64(item.Quantity)
	}
	return payload
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "cart unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process cart request", http.StatusInternalServerError))
	}
}
