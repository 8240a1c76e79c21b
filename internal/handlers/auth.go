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

// TokenIssuer signs an access token for an authenticated account.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}

// AuthHandlers exposes account registration, login, and identity lookup.
type AuthHandlers struct {
	authn  *auth.Authenticator
	users  services.UserService
	tokens TokenIssuer
}

// NewAuthHandlers constructs the account endpoints.
func NewAuthHandlers(authn *auth.Authenticator, users services.UserService, tokens TokenIssuer) *AuthHandlers {
	return &AuthHandlers{authn: authn, users: users, tokens: tokens}
}

// Routes registers account endpoints on the router group.
func (h *AuthHandlers) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	r.Group(func(g chi.Router) {
		g.Use(h.authn.RequireAuth())
		g.Get("/me", h.me)
	})
}

type registerPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

type tokenPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload registerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	if payload.Role == "" {
		payload.Role = string(domain.RoleCustomer)
	}

	user, err := h.users.Register(ctx, services.RegisterUserCommand{
		Username: payload.Username,
		Password: payload.Password,
		Role:     domain.UserRole(payload.Role),
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildUserPayload(user))
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var payload loginPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	user, err := h.users.Authenticate(ctx, payload.Username, payload.Password)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to issue token", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenPayload{
		Token: token,
		User:  buildUserPayload(user),
	})
}

func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	user, err := h.users.GetUser(ctx, identity.UserID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

func buildUserPayload(user domain.User) userPayload {
	return userPayload{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: formatTime(user.CreatedAt),
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds the allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	}
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUserInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid username or password", http.StatusUnauthorized))
	case errors.Is(err, services.ErrUserDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("account_disabled", "account is disabled", http.StatusForbidden))
	case errors.Is(err, services.ErrUserConflict):
		httpx.WriteError(ctx, w, httpx.NewError("username_taken", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUserUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process account request", http.StatusInternalServerError))
	}
}
