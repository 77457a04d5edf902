// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"sort"
	"sync"
	"time"
)

// AttemptRecord is one audit row, written whenever an attempt reaches a
// terminal state. An attempt that is parsed and later committed has two.
type AttemptRecord struct {
	AttemptID      string    `json:"attempt_id"`
	UserID         string    `json:"user_id"`
	FileName       string    `json:"file_name"`
	MediaType      string    `json:"media_type"`
	FileSize       int64     `json:"file_size"`
	State          State     `json:"state"`
	CandidateCount int       `json:"candidate_count"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Detail         string    `json:"detail,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// recordOf builds the audit row for the attempt's current state.
func recordOf(attempt *Attempt, now time.Time) AttemptRecord {
	record := AttemptRecord{
		AttemptID:      attempt.ID,
		UserID:         attempt.Owner.UserID,
		FileName:       attempt.File.Name,
		MediaType:      attempt.File.MediaType,
		FileSize:       attempt.File.Size,
		State:          attempt.State,
		CandidateCount: len(attempt.Candidates),
		Detail:         attempt.Reason,
		RecordedAt:     now,
	}
	if attempt.Commit != nil {
		record.Succeeded = attempt.Commit.Succeeded
		record.Failed = attempt.Commit.Failed()
		record.Detail = attempt.Commit.FirstError
	}
	return record
}

// AttemptLog is the audit trail of ingestion attempts.
type AttemptLog interface {
	// Record appends one row.
	Record(ctx context.Context, record AttemptRecord) error
	// Recent returns a user's latest rows, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]AttemptRecord, error)
}

// MemoryAttemptLog keeps the audit trail in memory. Used when no database is
// configured, and in tests.
type MemoryAttemptLog struct {
	mu      sync.RWMutex
	records []AttemptRecord
}

// NewMemoryAttemptLog creates an empty log.
func NewMemoryAttemptLog() *MemoryAttemptLog {
	return &MemoryAttemptLog{}
}

// Record implements [AttemptLog].
func (log *MemoryAttemptLog) Record(_ context.Context, record AttemptRecord) error {
	log.mu.Lock()
	defer log.mu.Unlock()

	log.records = append(log.records, record)
	return nil
}

// Recent implements [AttemptLog].
func (log *MemoryAttemptLog) Recent(_ context.Context, userID string, limit int) ([]AttemptRecord, error) {
	log.mu.RLock()
	defer log.mu.RUnlock()

	var matched []AttemptRecord
	for _, record := range log.records {
		if record.UserID == userID {
			matched = append(matched, record)
		}
	}

	// Stable sort keeps insertion order for equal timestamps.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RecordedAt.After(matched[j].RecordedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// States lists the recorded states of one attempt in order.
func (log *MemoryAttemptLog) States(attemptID string) []State {
	log.mu.RLock()
	defer log.mu.RUnlock()

	var states []State
	for _, record := range log.records {
		if record.AttemptID == attemptID {
			states = append(states, record.State)
		}
	}
	return states
}
