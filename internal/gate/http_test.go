// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

type gateFixture struct {
	identity *fakeIdentity
	store    *MemoryCredentialStore
	resolver *Resolver
	router   http.Handler
}

// newGateFixture wires the gate the way the server does, with the browser
// session id taken from a test header instead of a signed cookie.
func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	identity := newFakeIdentity()
	identity.addAccount("budi@example.com", "rahasia123", sec.RoleUMKM)
	identity.addAccount("ani@example.com", "rahasia123", sec.RoleInvestor)

	store := NewMemoryCredentialStore()
	manager := NewManager(identity, store, metrics.Nop{})
	resolver := NewResolver(manager, NewRouteTable(DefaultRoutes), metrics.Nop{})

	shell := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>spa</html>")
	})

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitor := &ctxutil.Visitor{SessionID: r.Header.Get("X-Test-Session")}
			next.ServeHTTP(w, r.WithContext(ctxutil.WithVisitor(r.Context(), visitor)))
		})
	})
	router.Use(resolver.Middleware)

	router.Mount("/api/v1/session", NewHandler(resolver).Routes())
	router.With(resolver.RequireAudience(AudienceUMKMOnly)).Get("/api/v1/umkm-only", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.With(resolver.RequireAuthenticated).Get("/api/v1/any-role", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Handle("/*", resolver.Pages(shell))

	return &gateFixture{identity: identity, store: store, resolver: resolver, router: router}
}

func (f *gateFixture) do(t *testing.T, browser, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("X-Test-Session", browser)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

func (f *gateFixture) login(t *testing.T, browser, email string) {
	t.Helper()
	recorder := f.do(t, browser, http.MethodPost, "/api/v1/session/login",
		`{"email":"`+email+`","password":"rahasia123"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func decodeData(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details []struct {
		Field string `json:"field"`
	} `json:"details"`
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestPages_AnonymousVisitor(t *testing.T) {
	fixture := newGateFixture(t)

	recorder := fixture.do(t, "b1", http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "spa")

	for _, target := range []string{"/dashboard", "/transaksi", "/investor/dashboard", "/investor/temukan/7"} {
		recorder = fixture.do(t, "b1", http.MethodGet, target, "")
		assert.Equal(t, http.StatusFound, recorder.Code, target)
		assert.Equal(t, "/", recorder.Header().Get("Location"), target)
	}
}

func TestPages_RoleRouting(t *testing.T) {
	fixture := newGateFixture(t)
	fixture.login(t, "umkm", "budi@example.com")
	fixture.login(t, "investor", "ani@example.com")

	tests := []struct {
		browser  string
		target   string
		code     int
		location string
	}{
		{"umkm", "/", http.StatusFound, "/dashboard"},
		{"umkm", "/register", http.StatusFound, "/dashboard"},
		{"umkm", "/produk", http.StatusOK, ""},
		{"umkm", "/investor/dashboard", http.StatusFound, "/dashboard"},
		{"investor", "/", http.StatusFound, "/investor/dashboard"},
		{"investor", "/dashboard", http.StatusFound, "/investor/dashboard"},
		{"investor", "/investor/portofolio", http.StatusOK, ""},
	}

	for _, tt := range tests {
		recorder := fixture.do(t, tt.browser, http.MethodGet, tt.target, "")
		assert.Equal(t, tt.code, recorder.Code, "%s %s", tt.browser, tt.target)
		assert.Equal(t, tt.location, recorder.Header().Get("Location"), "%s %s", tt.browser, tt.target)
	}
}

func TestPages_PendingRendersLoadingShell(t *testing.T) {
	fixture := newGateFixture(t)
	fixture.resolver.grace = 0

	credential, err := fixture.identity.Login(context.Background(), "budi@example.com", "rahasia123")
	require.NoError(t, err)
	require.NoError(t, fixture.store.Save(context.Background(), "returning", credential))

	fixture.identity.meRelease = make(chan struct{})
	defer close(fixture.identity.meRelease)

	recorder := fixture.do(t, "returning", http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "1", recorder.Header().Get("Retry-After"))
	assert.NotContains(t, recorder.Body.String(), "spa")
	assert.Empty(t, recorder.Header().Get("Location"))

	recorder = fixture.do(t, "returning", http.MethodGet, "/api/v1/session/navigate?path=/dashboard", "")
	assert.Equal(t, http.StatusAccepted, recorder.Code)
	var view navigateView
	decodeData(t, recorder, &view)
	assert.Equal(t, DecisionPending, view.Decision.Kind)
	assert.Equal(t, StatusAuthenticating, view.Status)
}

func TestSessionAPI_Login(t *testing.T) {
	fixture := newGateFixture(t)

	recorder := fixture.do(t, "b1", http.MethodPost, "/api/v1/session/login", `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	loginCalls, _, _ := fixture.identity.counts()
	assert.Zero(t, loginCalls, "local validation happens before any backend call")

	recorder = fixture.do(t, "b1", http.MethodPost, "/api/v1/session/login", `{"email":"budi@example.com","password":"salah"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Email atau password salah", decodeError(t, recorder).Error)

	recorder = fixture.do(t, "b1", http.MethodPost, "/api/v1/session/login", `{"email":"budi@example.com","password":"rahasia123"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var view struct {
		Status   string `json:"status"`
		HasToken bool   `json:"has_token"`
		Home     string `json:"home"`
		User     User   `json:"user"`
	}
	decodeData(t, recorder, &view)
	assert.Equal(t, "authenticated", view.Status)
	assert.True(t, view.HasToken)
	assert.Equal(t, "/dashboard", view.Home)
	assert.Equal(t, sec.RoleUMKM, view.User.Role)
	assert.NotContains(t, recorder.Body.String(), "token-", "the bearer token never reaches the browser")
}

func TestSessionAPI_Register(t *testing.T) {
	fixture := newGateFixture(t)

	recorder := fixture.do(t, "b1", http.MethodPost, "/api/v1/session/register",
		`{"nama_usaha":"Warung Sari","user_type":"umkm","email":"sari@example.com","password":"rahasia123"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decodeError(t, recorder)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "accept_terms", body.Details[0].Field)

	recorder = fixture.do(t, "b1", http.MethodPost, "/api/v1/session/register",
		`{"nama_usaha":"Warung Sari","user_type":"umkm","email":"sari@example.com","password":"rahasia123","accept_terms":true}`)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var view struct {
		Status string `json:"status"`
		Home   string `json:"home"`
	}
	decodeData(t, recorder, &view)
	assert.Equal(t, "authenticated", view.Status)
	assert.Equal(t, "/dashboard", view.Home)
	assert.Equal(t, DefaultCategory, fixture.identity.lastProfile.Category)

	recorder = fixture.do(t, "b2", http.MethodPost, "/api/v1/session/register",
		`{"nama_usaha":"Warung Lain","user_type":"investor","email":"sari@example.com","password":"rahasia123","accept_terms":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "Email sudah terdaftar", decodeError(t, recorder).Error)
}

func TestSessionAPI_LogoutSurvivesBackendFailure(t *testing.T) {
	fixture := newGateFixture(t)
	fixture.login(t, "b1", "budi@example.com")
	fixture.identity.logoutErr = errBackendDown

	recorder := fixture.do(t, "b1", http.MethodPost, "/api/v1/session/logout", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var view struct {
		Status string `json:"status"`
	}
	decodeData(t, recorder, &view)
	assert.Equal(t, "anonymous", view.Status)

	recorder = fixture.do(t, "b1", http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))
}

func TestSessionAPI_Navigate(t *testing.T) {
	fixture := newGateFixture(t)
	fixture.login(t, "investor", "ani@example.com")

	recorder := fixture.do(t, "investor", http.MethodGet, "/api/v1/session/navigate?path=/laporan", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var view navigateView
	decodeData(t, recorder, &view)
	assert.Equal(t, "umkm_only", view.Audience)
	assert.Equal(t, Redirect(HomeInvestor), view.Decision)

	recorder = fixture.do(t, "investor", http.MethodGet, "/api/v1/session/navigate?path=relative", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRequireAudience(t *testing.T) {
	fixture := newGateFixture(t)
	fixture.login(t, "umkm", "budi@example.com")
	fixture.login(t, "investor", "ani@example.com")

	assert.Equal(t, http.StatusUnauthorized, fixture.do(t, "nobody", http.MethodGet, "/api/v1/umkm-only", "").Code)
	assert.Equal(t, http.StatusForbidden, fixture.do(t, "investor", http.MethodGet, "/api/v1/umkm-only", "").Code)
	assert.Equal(t, http.StatusNoContent, fixture.do(t, "umkm", http.MethodGet, "/api/v1/umkm-only", "").Code)

	assert.Equal(t, http.StatusUnauthorized, fixture.do(t, "nobody", http.MethodGet, "/api/v1/any-role", "").Code)
	assert.Equal(t, http.StatusNoContent, fixture.do(t, "investor", http.MethodGet, "/api/v1/any-role", "").Code)
}
