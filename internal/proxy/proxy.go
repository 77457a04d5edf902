// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package proxy forwards the SPA's data calls to the backend with the session's
bearer token.

The browser never sees the token. A 401 from any forwarded call ends the
gateway session before the error is returned, so the next navigation is
guarded as anonymous.
*/
package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/gate"
	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/warungpintar/internal/platform/request"
	"github.com/taibuivan/warungpintar/internal/platform/respond"
	"github.com/taibuivan/warungpintar/internal/platform/validate"
)

// Backend is the part of the backend client the proxy uses.
type Backend interface {
	Resource(ctx context.Context, token, operation, method, path string, query url.Values, body json.RawMessage) (json.RawMessage, error)
	UpdateProfile(ctx context.Context, token string, input backend.ProfileInput) (backend.User, error)
	ChangePassword(ctx context.Context, token string, input backend.ChangePasswordInput) error
}

// resource is one forwarded endpoint. pattern is both the gateway route and
// the backend path; its {id} parameter is substituted when forwarding.
type resource struct {
	operation string
	method    string
	pattern   string
}

// storeResources belong to the UMKM surface.
var storeResources = []resource{
	{"list_products", http.MethodGet, "/products"},
	{"low_stock_products", http.MethodGet, "/products/low-stock"},
	{"get_product", http.MethodGet, "/products/{id}"},
	{"create_product", http.MethodPost, "/products"},
	{"update_product", http.MethodPut, "/products/{id}"},
	{"delete_product", http.MethodDelete, "/products/{id}"},
	{"restock_product", http.MethodPost, "/products/{id}/restock"},

	{"list_transactions", http.MethodGet, "/transactions"},
	{"recent_transactions", http.MethodGet, "/transactions/recent"},
	{"today_stats", http.MethodGet, "/transactions/today-stats"},
	{"get_transaction", http.MethodGet, "/transactions/{id}"},
	{"create_transaction", http.MethodPost, "/transactions"},

	{"dashboard", http.MethodGet, "/dashboard"},
	{"reports", http.MethodGet, "/reports"},
}

// Handler implements the pass-through endpoints.
type Handler struct {
	backend Backend
}

// NewHandler constructs a new [Handler].
func NewHandler(backend Backend) *Handler {
	return &Handler{backend: backend}
}

/*
Routes returns a [chi.Router] for the pass-through endpoints.

Account endpoints (PUT /profile, PUT /change-password) need any signed-in
user; store endpoints (products, transactions, dashboard, reports) are wrapped
in storeGuard.
*/
func (handler *Handler) Routes(storeGuard func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Put("/profile", handler.updateProfile)
	router.Put("/change-password", handler.changePassword)

	router.Group(func(router chi.Router) {
		router.Use(storeGuard)
		for _, r := range storeResources {
			router.Method(r.method, r.pattern, handler.forward(r))
		}
	})

	return router
}

// tokenOf returns the session and its bearer token.
func tokenOf(request *http.Request) (*gate.Session, string, error) {
	session := gate.FromContext(request.Context())
	if session == nil {
		return nil, "", apperr.Unauthorized("Authentication required")
	}
	token, ok := session.Token()
	if !ok {
		return nil, "", apperr.Unauthorized("Authentication required")
	}
	return session, token, nil
}

// fail ends the session on a 401 and writes the backend error.
func fail(writer http.ResponseWriter, request *http.Request, session *gate.Session, token string, err error) {
	if backend.IsUnauthorized(err) {
		ctx := request.Context()
		ctxutil.GetLogger(ctx).InfoContext(ctx, "proxy_session_expired", slog.String("session_id", session.ID()))
		session.Invalidate(ctx, token)
	}
	respond.Error(writer, request, backend.ToAppError(err))
}

func (handler *Handler) forward(r resource) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		session, token, err := tokenOf(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		var body json.RawMessage
		if r.method == http.MethodPost || r.method == http.MethodPut {
			if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
				respond.Error(writer, request, err)
				return
			}
		}

		path := r.pattern
		if id := requestutil.Param(request, "id"); id != "" {
			path = strings.Replace(path, "{id}", url.PathEscape(id), 1)
		}

		out, err := handler.backend.Resource(request.Context(), token, r.operation, r.method, path, request.URL.Query(), body)
		if err != nil {
			fail(writer, request, session, token, err)
			return
		}

		if r.method == http.MethodPost {
			respond.Created(writer, out)
			return
		}
		respond.OK(writer, out)
	}
}

// # Account

type profileRequest struct {
	BusinessName string `json:"nama_usaha"`
	Phone        string `json:"phone"`
	Address      string `json:"alamat"`
}

// updateProfile handles PUT /api/v1/backend/profile. The session's mirrored
// user is refreshed so the new name shows up without a new login.
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	session, token, err := tokenOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input profileRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.BusinessName = strings.TrimSpace(input.BusinessName)
	validator := &validate.Validator{}
	validator.Required("nama_usaha", input.BusinessName).MaxLen("nama_usaha", input.BusinessName, 255)
	validator.MaxLen("phone", input.Phone, 20).MaxLen("alamat", input.Address, 500)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err = handler.backend.UpdateProfile(request.Context(), token, backend.ProfileInput{
		BusinessName: input.BusinessName,
		Phone:        strings.TrimSpace(input.Phone),
		Address:      strings.TrimSpace(input.Address),
	})
	if err != nil {
		fail(writer, request, session, token, err)
		return
	}

	snapshot, err := session.Refresh(request.Context())
	if err != nil {
		respond.Error(writer, request, backend.ToAppError(err))
		return
	}
	respond.OK(writer, snapshot)
}

type changePasswordRequest struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

type messageView struct {
	Message string `json:"message"`
}

// changePassword handles PUT /api/v1/backend/change-password.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	session, token, err := tokenOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("current_password", input.CurrentPassword)
	validator.MinLen("new_password", input.NewPassword, 8)
	validator.Equal("new_password_confirmation", input.NewPasswordConfirmation, input.NewPassword)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.backend.ChangePassword(request.Context(), token, backend.ChangePasswordInput{
		CurrentPassword:         input.CurrentPassword,
		NewPassword:             input.NewPassword,
		NewPasswordConfirmation: input.NewPasswordConfirmation,
	})
	if err != nil {
		fail(writer, request, session, token, err)
		return
	}
	respond.OK(writer, messageView{Message: "Password changed"})
}
