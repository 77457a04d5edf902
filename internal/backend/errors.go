// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/taibuivan/warungpintar/internal/platform/apperr"
)

// ErrUnauthorized matches any 401 answer from the backend. Callers holding a
// session treat it as an implicit logout.
var ErrUnauthorized = errors.New("backend: unauthorized")

// RejectedError is a 4xx answer. Message is the backend's own text, kept
// verbatim so it can be shown to the user.
type RejectedError struct {
	Operation string
	Status    int
	Message   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend: %s rejected (%d): %s", e.Operation, e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 rejections.
func (e *RejectedError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// UnavailableError covers network failures, 5xx answers and bodies that
// cannot be decoded.
type UnavailableError struct {
	Operation string
	Status    int // 0 when no response was received
	Err       error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend: %s unavailable (%d): %v", e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("backend: %s unavailable: %v", e.Operation, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Message returns the user-facing text of a backend error: the backend's own
// message for rejections, a generic fallback otherwise.
func Message(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return fallbackMessage
}

const fallbackMessage = "The server could not process the request. Please try again."

// ToAppError converts a backend error into the gateway's error envelope.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return apperr.Rejected(rejected.Status, Message(err), err)
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return apperr.BadGateway("Backend service is unavailable. Please try again.", err)
	}

	if apperr.IsAppError(err) {
		return err
	}
	return apperr.Internal(err)
}
