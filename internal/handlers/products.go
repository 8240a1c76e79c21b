package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/platform/auth"
	"github.com/marketloop/api/internal/platform/httpx"
	"github.com/marketloop/api/internal/services"
)

// ProductHandlers exposes the catalog endpoints. Listing and lookup are
// public; creation is restricted to sellers and admins.
type ProductHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewProductHandlers constructs the catalog endpoints.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{authn: authn, catalog: catalog}
}

// Routes registers catalog endpoints on the router group.
func (h *ProductHandlers) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{productID}", h.get)

	r.Group(func(g chi.Router) {
		g.Use(h.authn.RequireAuth(domain.RoleSeller, domain.RoleAdmin))
		g.Post("/", h.create)
		g.Get("/mine", h.listMine)
	})
}

type createProductPayload struct {
	Title    string `json:"title"`
	Cost     int64  `json:"cost"`
	SellerID int64  `json:"seller_id,omitempty"`
}

type productPayload struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	SellerID  int64  `json:"seller_id"`
	Cost      int64  `json:"cost"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.catalog.ListProducts(ctx, r.URL.Query().Get("title"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products": buildProductPayloads(products),
	})
}

func (h *ProductHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload createProductPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	sellerID := identity.UserID
	if payload.SellerID != 0 {
		if payload.SellerID != identity.UserID && !identity.HasRole(domain.RoleAdmin) {
			httpx.WriteError(ctx, w, httpx.NewError("forbidden", "cannot create products for another seller", http.StatusForbidden))
			return
		}
		sellerID = payload.SellerID
	}

	product, err := h.catalog.CreateProduct(ctx, services.CreateProductCommand{
		SellerID: sellerID,
		Title:    payload.Title,
		Cost:     payload.Cost,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func (h *ProductHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	products, err := h.catalog.ListSellerProducts(ctx, identity.UserID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products": buildProductPayloads(products),
	})
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:        product.ID,
		Title:     product.Title,
		SellerID:  product.SellerID,
		Cost:      product.Cost,
		CreatedAt: formatTime(product.CreatedAt),
	}
}

func buildProductPayloads(products []domain.Product) []productPayload {
	payloads := make([]productPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, buildProductPayload(product))
	}
	return payloads
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("title_taken", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "catalog unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
