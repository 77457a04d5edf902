// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	"github.com/taibuivan/warungpintar/internal/platform/respond"
	"github.com/taibuivan/warungpintar/internal/platform/validate"
)

// Handler serves the development backend.
type Handler struct {
	store *Store
}

// NewHandler constructs a [Handler].
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the backend contract.
//
// # Endpoints
//   - POST /login, /register, /logout
//   - GET /me; PUT /profile, /change-password
//   - GET, POST /transactions; GET /transactions/recent, /transactions/today-stats
//   - GET /dashboard
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/register", handler.register)

	router.Group(func(r chi.Router) {
		r.Use(handler.requireToken)
		r.Post("/logout", handler.logout)
		r.Get("/me", handler.me)
		r.Put("/profile", handler.updateProfile)
		r.Put("/change-password", handler.changePassword)
		r.Get("/transactions", handler.listTransactions)
		r.Post("/transactions", handler.createTransaction)
		r.Get("/transactions/recent", handler.recentTransactions)
		r.Get("/transactions/today-stats", handler.todayStats)
		r.Get("/dashboard", handler.dashboard)
	})

	return router
}

// # Wire Helpers

type envelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type rejection struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func reject(writer http.ResponseWriter, status int, message string, fields map[string][]string) {
	respond.JSON(writer, status, rejection{Message: message, Errors: fields})
}

// rejectValidation renders a validator failure the way the backend does.
func rejectValidation(writer http.ResponseWriter, err error) {
	fields := map[string][]string{}
	if ae := apperr.As(err); ae != nil {
		for _, detail := range ae.Details {
			fields[detail.Field] = append(fields[detail.Field], detail.Message)
		}
	}
	reject(writer, http.StatusUnprocessableEntity, "The given data was invalid.", fields)
}

type tokenKey struct{}

func (handler *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, ok := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
			return
		}
		if _, err := handler.store.Me(token); err != nil {
			reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
			return
		}
		next.ServeHTTP(writer, request.WithContext(contextWithToken(request, token)))
	})
}

func decode(writer http.ResponseWriter, request *http.Request, target any) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		reject(writer, http.StatusBadRequest, "Malformed JSON body.", nil)
		return false
	}
	return true
}

// # Identity

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(writer, request, &input) {
		return
	}

	user, token, err := handler.store.Login(input.Email, input.Password)
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Email atau password salah", nil)
		return
	}
	respond.JSON(writer, http.StatusOK, envelope{Message: "Login berhasil", Data: map[string]any{"token": token, "user": user}})
}

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Name     string `json:"nama_usaha"`
		UserType string `json:"user_type"`
		Category string `json:"kategori"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(writer, request, &input) {
		return
	}

	v := &validate.Validator{}
	v.Required("nama_usaha", input.Name).
		Required("email", input.Email).
		Email("email", input.Email).
		MinLen("password", input.Password, 8).
		OneOf("user_type", input.UserType, "umkm", "investor")
	if err := v.Err(); err != nil {
		rejectValidation(writer, err)
		return
	}

	user, token, err := handler.store.Register(input.Name, input.UserType, input.Category, input.Email, input.Password)
	if errors.Is(err, errEmailTaken) {
		reject(writer, http.StatusUnprocessableEntity, "The email has already been taken.",
			map[string][]string{"email": {"Email sudah terdaftar"}})
		return
	}
	if err != nil {
		reject(writer, http.StatusInternalServerError, "Server error", nil)
		return
	}
	respond.JSON(writer, http.StatusCreated, envelope{Message: "Registrasi berhasil", Data: map[string]any{"token": token, "user": user}})
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.store.Revoke(tokenFrom(request))
	respond.JSON(writer, http.StatusOK, envelope{Message: "Logout berhasil"})
}

func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.store.Me(tokenFrom(request))
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	respond.JSON(writer, http.StatusOK, envelope{Data: user})
}

func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Name    string `json:"nama_usaha"`
		Phone   string `json:"phone"`
		Address string `json:"alamat"`
	}
	if !decode(writer, request, &input) {
		return
	}

	v := &validate.Validator{}
	if err := v.Required("nama_usaha", input.Name).MaxLen("phone", input.Phone, 20).Err(); err != nil {
		rejectValidation(writer, err)
		return
	}

	user, err := handler.store.UpdateProfile(tokenFrom(request), input.Name, input.Phone, input.Address)
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	respond.JSON(writer, http.StatusOK, envelope{Message: "Profil berhasil diperbarui", Data: user})
}

func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Current      string `json:"current_password"`
		Next         string `json:"new_password"`
		Confirmation string `json:"new_password_confirmation"`
	}
	if !decode(writer, request, &input) {
		return
	}

	v := &validate.Validator{}
	v.Required("current_password", input.Current).
		MinLen("new_password", input.Next, 8).
		Equal("new_password_confirmation", input.Confirmation, input.Next)
	if err := v.Err(); err != nil {
		rejectValidation(writer, err)
		return
	}

	err := handler.store.ChangePassword(tokenFrom(request), input.Current, input.Next)
	if errors.Is(err, errCurrentPassword) {
		reject(writer, http.StatusUnprocessableEntity, "Password saat ini salah",
			map[string][]string{"current_password": {"Password saat ini salah"}})
		return
	}
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	respond.JSON(writer, http.StatusOK, envelope{Message: "Password berhasil diubah"})
}

// # Transactions

func (handler *Handler) createTransaction(writer http.ResponseWriter, request *http.Request) {
	var input Transaction
	if !decode(writer, request, &input) {
		return
	}

	v := &validate.Validator{}
	v.Required("product", input.Product).
		Custom("qty", input.Qty <= 0, "Jumlah harus lebih dari 0").
		Custom("price", input.Price < 0, "Harga tidak boleh negatif")
	if err := v.Err(); err != nil {
		rejectValidation(writer, err)
		return
	}

	tx, err := handler.store.AddTransaction(tokenFrom(request), input)
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	respond.JSON(writer, http.StatusCreated, envelope{Message: "Transaksi berhasil disimpan", Data: tx})
}

func (handler *Handler) listTransactions(writer http.ResponseWriter, request *http.Request) {
	txs, err := handler.store.Transactions(tokenFrom(request))
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	respond.JSON(writer, http.StatusOK, envelope{Data: txs})
}

func (handler *Handler) recentTransactions(writer http.ResponseWriter, request *http.Request) {
	txs, err := handler.store.Transactions(tokenFrom(request))
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	if len(txs) > 5 {
		txs = txs[:5]
	}
	respond.JSON(writer, http.StatusOK, envelope{Data: txs})
}

// totalsSince sums the sales recorded at or after from.
func totalsSince(txs []Transaction, from time.Time) (count int, revenue int64, items int) {
	for _, tx := range txs {
		if tx.CreatedAt.Before(from) {
			continue
		}
		count++
		revenue += tx.Total
		items += tx.Qty
	}
	return count, revenue, items
}

func startOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

func startOfMonth(now time.Time) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
}

func (handler *Handler) todayStats(writer http.ResponseWriter, request *http.Request) {
	txs, err := handler.store.Transactions(tokenFrom(request))
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}
	count, revenue, items := totalsSince(txs, startOfDay(time.Now()))
	respond.JSON(writer, http.StatusOK, envelope{Data: map[string]any{
		"total_transaksi": count,
		"pendapatan":      revenue,
		"item_terjual":    items,
	}})
}

func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	txs, err := handler.store.Transactions(tokenFrom(request))
	if err != nil {
		reject(writer, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}

	now := time.Now()
	todayCount, todayRevenue, _ := totalsSince(txs, startOfDay(now))
	monthCount, _, monthItems := totalsSince(txs, startOfMonth(now))

	respond.JSON(writer, http.StatusOK, envelope{Data: map[string]any{
		"stats": map[string]any{
			"transaksi_hari_ini": todayCount,
			"omset":              todayRevenue,
			"laba_kotor":         todayRevenue,
			"omzet_target":       0,
			"omzet_percentage":   0,
		},
		"chart_data": []map[string]any{},
		"monthly_summary": map[string]any{
			"total_transaksi": monthCount,
			"produk_terjual":  monthItems,
			"pelanggan_baru":  0,
		},
	}})
}
