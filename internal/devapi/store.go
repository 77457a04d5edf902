// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package devapi is an in-process stand-in for the Warung Pintar REST API.

It implements the identity endpoints and transaction recording with the same
wire shapes as the real backend ({"data": ...} envelopes, {"message",
"errors"} rejections), so the gateway can run end to end on a laptop without
the real backend. State lives in memory and is lost on restart.
*/
package devapi

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

var (
	errEmailTaken      = errors.New("devapi: email already registered")
	errBadCredentials  = errors.New("devapi: bad credentials")
	errUnknownToken    = errors.New("devapi: unknown token")
	errCurrentPassword = errors.New("devapi: current password mismatch")
)

// User mirrors the backend user record.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"nama_usaha"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	Category string `json:"kategori"`
	Phone    string `json:"phone"`
	Address  string `json:"alamat"`
}

// Transaction is one recorded sale.
type Transaction struct {
	ID        int64     `json:"id"`
	Product   string    `json:"product"`
	Qty       int       `json:"qty"`
	Price     int64     `json:"price"`
	Total     int64     `json:"total"`
	Notes     string    `json:"notes,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type account struct {
	user         User
	passwordHash string
	transactions []Transaction
}

// Store holds accounts, tokens and transactions.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[string]*account // by lower-cased email
	tokens   map[string]string   // token -> lower-cased email
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and issues a token.
func (store *Store) Register(name, userType, category, email, password string) (User, string, error) {
	hash, err := sec.HashPassword(password)
	if err != nil {
		return User{}, "", err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := store.accounts[key]; exists {
		return User{}, "", errEmailTaken
	}

	store.nextID++
	acct := &account{
		user: User{
			ID:       store.nextID,
			Name:     name,
			Email:    key,
			UserType: string(sec.ParseRole(userType)),
			Category: category,
		},
		passwordHash: hash,
	}
	store.accounts[key] = acct

	return acct.user, store.issueLocked(key), nil
}

// Login verifies credentials and issues a token.
func (store *Store) Login(email, password string) (User, string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := normalizeEmail(email)
	acct, ok := store.accounts[key]
	if !ok || !sec.CheckPasswordHash(password, acct.passwordHash) {
		return User{}, "", errBadCredentials
	}
	return acct.user, store.issueLocked(key), nil
}

func (store *Store) issueLocked(key string) string {
	token := strconv.FormatInt(store.accounts[key].user.ID, 10) + "|" + strings.ReplaceAll(uuid.NewString(), "-", "")
	store.tokens[token] = key
	return token
}

// Revoke deletes a token.
func (store *Store) Revoke(token string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.tokens, token)
}

// RevokeAll deletes every token of an account. Used to simulate
// a session revoked elsewhere.
func (store *Store) RevokeAll(email string) {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := normalizeEmail(email)
	for token, owner := range store.tokens {
		if owner == key {
			delete(store.tokens, token)
		}
	}
}

// withAccount runs fn on the account owning token.
func (store *Store) withAccount(token string, fn func(acct *account) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	key, ok := store.tokens[token]
	if !ok {
		return errUnknownToken
	}
	return fn(store.accounts[key])
}

// Me returns the user owning token.
func (store *Store) Me(token string) (User, error) {
	var user User
	err := store.withAccount(token, func(acct *account) error {
		user = acct.user
		return nil
	})
	return user, err
}

// UpdateProfile edits the profile fields.
func (store *Store) UpdateProfile(token, name, phone, address string) (User, error) {
	var user User
	err := store.withAccount(token, func(acct *account) error {
		acct.user.Name = name
		acct.user.Phone = phone
		acct.user.Address = address
		user = acct.user
		return nil
	})
	return user, err
}

// ChangePassword replaces the password after checking the current one.
func (store *Store) ChangePassword(token, current, next string) error {
	hash, err := sec.HashPassword(next)
	if err != nil {
		return err
	}
	return store.withAccount(token, func(acct *account) error {
		if !sec.CheckPasswordHash(current, acct.passwordHash) {
			return errCurrentPassword
		}
		acct.passwordHash = hash
		return nil
	})
}

// AddTransaction records a sale.
func (store *Store) AddTransaction(token string, tx Transaction) (Transaction, error) {
	err := store.withAccount(token, func(acct *account) error {
		store.nextID++
		tx.ID = store.nextID
		tx.CreatedAt = time.Now()
		if tx.Total == 0 {
			tx.Total = tx.Price * int64(tx.Qty)
		}
		acct.transactions = append(acct.transactions, tx)
		return nil
	})
	return tx, err
}

// Transactions returns the user's sales, newest first.
func (store *Store) Transactions(token string) ([]Transaction, error) {
	var out []Transaction
	err := store.withAccount(token, func(acct *account) error {
		out = make([]Transaction, 0, len(acct.transactions))
		for i := len(acct.transactions) - 1; i >= 0; i-- {
			out = append(out, acct.transactions[i])
		}
		return nil
	})
	return out, err
}
