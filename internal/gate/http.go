// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	requestutil "github.com/taibuivan/warungpintar/internal/platform/request"
	"github.com/taibuivan/warungpintar/internal/platform/respond"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
	"github.com/taibuivan/warungpintar/internal/platform/validate"
)

// Handler implements the session endpoints consumed by the SPA.
type Handler struct {
	resolver *Resolver
}

// NewHandler constructs a new [Handler].
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Routes returns a [chi.Router] for the session endpoints.
//
// # Endpoints
//   - GET  /          : Current session snapshot.
//   - POST /login     : Email/password sign-in.
//   - POST /register  : Account creation, signs in on success.
//   - POST /logout    : Ends the session; always succeeds.
//   - GET  /navigate  : Guard decision for ?path=.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.snapshot)
	router.Post("/login", handler.login)
	router.Post("/register", handler.register)
	router.Post("/logout", handler.logout)
	router.Get("/navigate", handler.navigate)

	return router
}

// sessionView is the JSON shape of a session as the SPA sees it.
type sessionView struct {
	Snapshot
	Home string `json:"home,omitempty"`
}

func viewOf(snapshot Snapshot) sessionView {
	view := sessionView{Snapshot: snapshot}
	if snapshot.Status == StatusAuthenticated {
		view.Home = Home(snapshot.Role())
	}
	return view
}

// session returns the gate session of the request or writes an error.
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) (*Session, bool) {
	session := FromContext(request.Context())
	if session == nil {
		respond.Error(writer, request, apperr.Unauthorized("Session required"))
		return nil, false
	}
	return session, true
}

// snapshot handles GET /api/v1/session.
//
// An unresolved session is reported as is; the SPA renders its loading state
// and polls again after Retry-After.
func (handler *Handler) snapshot(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	snapshot := session.Snapshot()
	if !snapshot.Status.Resolved() {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(constants.PendingRetryAfter))
	}
	respond.OK(writer, viewOf(snapshot))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/v1/session/login.
//
// # Returns
//   - 200 with the authenticated session.
//   - 400 on local validation failure (no backend call is made).
//   - The backend's status and message verbatim when it rejects the credentials.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.Email = strings.TrimSpace(input.Email)
	validator := &validate.Validator{}
	validator.Required("email", input.Email).Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := session.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, backend.ToAppError(err))
		return
	}

	respond.OK(writer, viewOf(snapshot))
}

type registerRequest struct {
	BusinessName         string `json:"nama_usaha"`
	UserType             string `json:"user_type"`
	Category             string `json:"kategori"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	AcceptTerms          bool   `json:"accept_terms"`
}

// register handles POST /api/v1/session/register.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.BusinessName = strings.TrimSpace(input.BusinessName)
	input.Email = strings.TrimSpace(input.Email)
	input.Category = strings.TrimSpace(input.Category)

	validator := &validate.Validator{}
	validator.
		Required("nama_usaha", input.BusinessName).
		MaxLen("nama_usaha", input.BusinessName, 255).
		Required("email", input.Email).
		Email("email", input.Email).
		MinLen("password", input.Password, 8).
		OneOf("user_type", input.UserType, sec.RoleUMKM.String(), sec.RoleInvestor.String()).
		Accepted("accept_terms", input.AcceptTerms)
	if input.PasswordConfirmation != "" {
		validator.Equal("password_confirmation", input.PasswordConfirmation, input.Password)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := session.Register(request.Context(), Profile{
		BusinessName: input.BusinessName,
		Role:         sec.ParseRole(input.UserType),
		Category:     input.Category,
		Email:        input.Email,
		Password:     input.Password,
	})
	if err != nil {
		respond.Error(writer, request, backend.ToAppError(err))
		return
	}

	respond.Created(writer, viewOf(snapshot))
}

// logout handles POST /api/v1/session/logout. It never fails.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	respond.OK(writer, viewOf(session.Logout(request.Context())))
}

type navigateView struct {
	Path     string   `json:"path"`
	Audience string   `json:"audience"`
	Decision Decision `json:"decision"`
	Status   Status   `json:"status"`
}

// navigate handles GET /api/v1/session/navigate?path=.
//
// It is the JSON twin of the page guard for client-side route changes.
// Pending answers 202 with Retry-After.
func (handler *Handler) navigate(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	target := request.URL.Query().Get("path")
	if target == "" || !strings.HasPrefix(target, "/") {
		respond.Error(writer, request, validate.RequiredError("path", "Must be an absolute path"))
		return
	}

	audience := handler.resolver.routes.Resolve(target)
	decision, snapshot := handler.resolver.decide(request.Context(), session, audience)

	view := navigateView{
		Path:     target,
		Audience: audience.String(),
		Decision: decision,
		Status:   snapshot.Status,
	}

	if decision.Kind == DecisionPending {
		respond.Accepted(writer, view, constants.PendingRetryAfter)
		return
	}
	respond.OK(writer, view)
}
