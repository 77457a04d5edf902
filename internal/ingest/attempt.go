// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"fmt"
	"time"
)

// # State Machine

// State is the position of an attempt in the ingestion state machine:
//
//	Empty → Selected → Validating → {Rejected | Analyzing}
//	Analyzing → {AnalysisFailed | Parsed}
//	Parsed → {Committing → Committed | Cancelled}
type State int

const (
	StateEmpty State = iota
	StateSelected
	StateValidating
	StateRejected
	StateAnalyzing
	StateAnalysisFailed
	StateParsed
	StateCommitting
	StateCommitted
	StateCancelled
)

var stateNames = [...]string{
	StateEmpty:          "empty",
	StateSelected:       "selected",
	StateValidating:     "validating",
	StateRejected:       "rejected",
	StateAnalyzing:      "analyzing",
	StateAnalysisFailed: "analysis_failed",
	StateParsed:         "parsed",
	StateCommitting:     "committing",
	StateCommitted:      "committed",
	StateCancelled:      "cancelled",
}

// String returns the wire name of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements [encoding.TextMarshaler].
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *State) UnmarshalText(text []byte) error {
	for candidate, name := range stateNames {
		if name == string(text) {
			*s = State(candidate)
			return nil
		}
	}
	return fmt.Errorf("ingest: unknown state %q", text)
}

// Terminal reports whether the audit log records this state.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateAnalysisFailed, StateParsed, StateCommitted, StateCancelled:
		return true
	}
	return false
}

// cancellable reports whether the user may still remove the file.
func (s State) cancellable() bool {
	switch s {
	case StateSelected, StateValidating, StateAnalyzing, StateAnalysisFailed, StateParsed:
		return true
	}
	return false
}

// # Commit Result

// ItemFailure describes one candidate the backend did not accept.
type ItemFailure struct {
	Index   int    `json:"index"`
	Product string `json:"product"`
	Error   string `json:"error"`
}

// CommitResult accumulates the outcome of a commit fold.
type CommitResult struct {
	Attempted  int           `json:"attempted"`
	Succeeded  int           `json:"succeeded"`
	FirstError string        `json:"first_error,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	Failures   []ItemFailure `json:"failures,omitempty"`
}

// Failed is the number of candidates that were not saved.
func (r CommitResult) Failed() int {
	return r.Attempted - r.Succeeded
}

// Summary is the user-facing report: "n of m saved".
func (r CommitResult) Summary() string {
	return fmt.Sprintf("%d of %d saved", r.Succeeded, r.Attempted)
}

// add folds one item outcome into the result.
func (r CommitResult) add(index int, product string, err error) CommitResult {
	r.Attempted++
	if err == nil {
		r.Succeeded++
		return r
	}

	detail := err.Error()
	if r.FirstError == "" {
		r.FirstError = detail
	}
	r.LastError = detail
	r.Failures = append(r.Failures, ItemFailure{Index: index, Product: product, Error: detail})
	return r
}

// # Attempt

// Owner identifies who an attempt belongs to.
type Owner struct {
	SessionID string
	UserID    string
}

// Attempt is one upload-to-commit cycle.
type Attempt struct {
	ID         string
	Owner      Owner
	File       UploadedFile
	State      State
	Message    string
	Reason     string
	Candidates []Candidate
	Commit     *CommitResult
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// generation increments on every transition; an analysis result is only
	// applied if no transition happened while it was in flight.
	generation uint64
}

// clone returns a copy safe to hand out of the registry. File bytes are
// never exposed.
func (a *Attempt) clone() Attempt {
	copied := *a
	copied.File.Data = nil
	copied.Candidates = append([]Candidate(nil), a.Candidates...)
	if a.Commit != nil {
		result := *a.Commit
		result.Failures = append([]ItemFailure(nil), a.Commit.Failures...)
		copied.Commit = &result
	}
	return copied
}
