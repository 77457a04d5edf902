// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backend is the client of the Warung Pintar REST API.

The backend owns identity, products, transactions and report statistics. The
gateway calls it with the session's bearer token and never caches its data.

Error contract:

  - 401: a [*RejectedError] matching [ErrUnauthorized] (implicit logout).
  - Other 4xx: a [*RejectedError] with the backend's message verbatim.
  - Network failure, 5xx or undecodable body: an [*UnavailableError].

Responses may or may not be wrapped in {"data": ...}; both forms are accepted.
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/taibuivan/warungpintar/internal/platform/metrics"
)

// maxResponseBody bounds how much of a backend answer is read.
const maxResponseBody = 4 << 20

// Client calls the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	recorder   metrics.Recorder
}

// NewClient constructs a [Client]. baseURL has no trailing slash, e.g.
// "http://localhost:8000/api".
func NewClient(baseURL string, httpClient *http.Client, recorder metrics.Recorder) *Client {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		recorder:   recorder,
	}
}

// call describes one backend request.
type call struct {
	operation string
	method    string
	path      string
	token     string
	query     url.Values
	body      any
}

// errorWire is the backend's error body.
type errorWire struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

/*
do executes a call and decodes the (unwrapped) answer into out.

out may be nil to discard the body, or *json.RawMessage to keep it opaque.
*/
func (client *Client) do(ctx context.Context, c call, out any) error {
	// 1. Build request
	target := client.baseURL + c.path
	if len(c.query) > 0 {
		target += "?" + c.query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		if raw, ok := c.body.(json.RawMessage); ok {
			body = bytes.NewReader(raw)
		} else {
			encoded, err := json.Marshal(c.body)
			if err != nil {
				return fmt.Errorf("backend: encode %s request: %w", c.operation, err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	request, err := http.NewRequestWithContext(ctx, c.method, target, body)
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", c.operation, err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	// 2. Execute
	response, err := client.httpClient.Do(request)
	if err != nil {
		client.recorder.RecordBackendCall(c.operation, 0)
		return &UnavailableError{Operation: c.operation, Err: err}
	}
	defer response.Body.Close()
	client.recorder.RecordBackendCall(c.operation, response.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBody))
	if err != nil {
		return &UnavailableError{Operation: c.operation, Status: response.StatusCode, Err: err}
	}

	// 3. Classify status
	switch {
	case response.StatusCode >= 500:
		return &UnavailableError{
			Operation: c.operation,
			Status:    response.StatusCode,
			Err:       errors.New(errorMessage(raw, response.Status)),
		}
	case response.StatusCode >= 400:
		return &RejectedError{
			Operation: c.operation,
			Status:    response.StatusCode,
			Message:   errorMessage(raw, ""),
		}
	}

	// 4. Decode
	payload := unwrap(raw)
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &UnavailableError{
			Operation: c.operation,
			Status:    response.StatusCode,
			Err:       fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// unwrap strips a {"data": ...} envelope when present.
func unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if data, ok := envelope["data"]; ok && len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		return data
	}
	return trimmed
}

// errorMessage extracts the most specific message from an error body.
// Field errors win over the summary message; fields are taken in name order
// so the choice is stable.
func errorMessage(raw []byte, fallback string) string {
	var wire errorWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fallback
	}

	if len(wire.Errors) > 0 {
		fields := make([]string, 0, len(wire.Errors))
		for field := range wire.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if messages := wire.Errors[field]; len(messages) > 0 && messages[0] != "" {
				return messages[0]
			}
		}
	}

	if wire.Message != "" {
		return wire.Message
	}
	if wire.Error != "" {
		return wire.Error
	}
	return fallback
}

// # Identity

// Login exchanges credentials for a bearer token.
func (client *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var wire authWire
	err := client.do(ctx, call{
		operation: "login",
		method:    http.MethodPost,
		path:      "/login",
		body:      map[string]string{"email": email, "password": password},
	}, &wire)
	return wire.result(), err
}

// Register creates an account and returns its bearer token.
func (client *Client) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	var wire authWire
	err := client.do(ctx, call{
		operation: "register",
		method:    http.MethodPost,
		path:      "/register",
		body:      input,
	}, &wire)
	return wire.result(), err
}

func (wire authWire) result() AuthResult {
	token := wire.Token
	if token == "" {
		token = wire.AccessToken
	}
	return AuthResult{Token: token, User: wire.User}
}

// Logout revokes the token.
func (client *Client) Logout(ctx context.Context, token string) error {
	return client.do(ctx, call{operation: "logout", method: http.MethodPost, path: "/logout", token: token}, nil)
}

// Me returns the user owning the token.
func (client *Client) Me(ctx context.Context, token string) (User, error) {
	var user User
	err := client.do(ctx, call{operation: "me", method: http.MethodGet, path: "/me", token: token}, &user)
	return user, err
}

// UpdateProfile edits the profile and returns the updated user.
func (client *Client) UpdateProfile(ctx context.Context, token string, input ProfileInput) (User, error) {
	var user User
	err := client.do(ctx, call{
		operation: "update_profile",
		method:    http.MethodPut,
		path:      "/profile",
		token:     token,
		body:      input,
	}, &user)
	return user, err
}

// ChangePassword changes the account password.
func (client *Client) ChangePassword(ctx context.Context, token string, input ChangePasswordInput) error {
	return client.do(ctx, call{
		operation: "change_password",
		method:    http.MethodPut,
		path:      "/change-password",
		token:     token,
		body:      input,
	}, nil)
}

// # Transactions

// CreateTransaction records one sale.
func (client *Client) CreateTransaction(ctx context.Context, token string, input TransactionInput) (Transaction, error) {
	var transaction Transaction
	err := client.do(ctx, call{
		operation: "create_transaction",
		method:    http.MethodPost,
		path:      "/transactions",
		token:     token,
		body:      input,
	}, &transaction)
	return transaction, err
}

// # Pass-through Resources

// Resource performs an authenticated call whose body the gateway does not
// interpret (products, transaction lists, dashboard and report statistics).
func (client *Client) Resource(ctx context.Context, token, operation, method, path string, query url.Values, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	c := call{operation: operation, method: method, path: path, token: token, query: query}
	if len(body) > 0 {
		c.body = body
	}
	if err := client.do(ctx, c, &out); err != nil {
		return nil, err
	}
	return out, nil
}
