// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID accepts both numeric and string identifiers on the wire.
type ID string

// UnmarshalJSON implements [json.Unmarshaler].
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("backend: invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// # Identity

// User is the backend user record.
type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"nama_usaha"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	Category string `json:"kategori,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"alamat,omitempty"`
}

// AuthResult is the answer to login and register.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// authWire tolerates the token under either name.
type authWire struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// RegisterInput is the new-account payload.
type RegisterInput struct {
	BusinessName string `json:"nama_usaha"`
	UserType     string `json:"user_type"`
	Category     string `json:"kategori"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

// ProfileInput is the editable part of the profile.
type ProfileInput struct {
	BusinessName string `json:"nama_usaha"`
	Phone        string `json:"phone"`
	Address      string `json:"alamat"`
}

// ChangePasswordInput changes the account password.
type ChangePasswordInput struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// # Transactions

// TransactionInput records one sale.
type TransactionInput struct {
	Product string `json:"product"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price"`
	Total   int64  `json:"total"`
	Notes   string `json:"notes,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Transaction is the stored record returned by create.
type Transaction struct {
	ID      ID     `json:"id"`
	Product string `json:"product"`
	Qty     int    `json:"qty"`
	Price   int64  `json:"price"`
	Total   int64  `json:"total"`
}
