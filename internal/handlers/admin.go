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

// AdminHandlers exposes account lookups and order line maintenance for
// operators.
type AdminHandlers struct {
	authn  *auth.Authenticator
	users  services.UserService
	orders services.OrderService
}

// NewAdminHandlers constructs the admin endpoints.
func NewAdminHandlers(authn *auth.Authenticator, users services.UserService, orders services.OrderService) *AdminHandlers {
	return &AdminHandlers{authn: authn, users: users, orders: orders}
}

// Routes registers admin endpoints on the router group.
func (h *AdminHandlers) Routes(r chi.Router) {
	r.Use(h.authn.RequireAuth(domain.RoleAdmin))

	r.Get("/users", h.listUsers)
	r.Get("/users/{userID}", h.getUser)
	r.Post("/orders/{orderID}/lines", h.addLine)
	r.Delete("/orders/{orderID}/lines/{productID}", h.removeLine)
	r.Patch("/orders/{orderID}/lines/{productID}", h.setLineStatus)
}

type addLinePayload struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.users.ListUsers(ctx, r.URL.Query().Get("username"))
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	payloads := make([]userPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, buildUserPayload(user))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"users": payloads,
	})
}

func (h *AdminHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := parseIDParam(r, "userID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

func (h *AdminHandlers) addLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload addLinePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	line, err := h.orders.AddLineItem(ctx, orderID, payload.ProductID, payload.Quantity)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildOrderLinePayload(line))
}

func (h *AdminHandlers) setLineStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	line, err := h.orders.SetLineStatus(ctx, orderID, productID, status)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildOrderLinePayload(line))
}

func (h *AdminHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	if err := h.orders.RemoveLineItem(ctx, orderID, productID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusNoContent, nil)
}
