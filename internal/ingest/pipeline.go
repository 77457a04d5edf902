// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/taibuivan/warungpintar/internal/backend"
	"github.com/taibuivan/warungpintar/internal/gate"
	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
)

// # Contracts

// TransactionCreator submits one transaction to the backend.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, token string, input backend.TransactionInput) (backend.Transaction, error)
}

// Credentials is the session a commit runs on behalf of.
type Credentials interface {
	// Token returns the bearer token while the session is authenticated.
	Token() (string, bool)
	// Invalidate ends the session after the backend answered 401 for token.
	Invalidate(ctx context.Context, token string) gate.Snapshot
}

// Failure messages shown to the user.
const (
	analysisFailedMessage = "Gagal menganalisis file. Silakan coba lagi."
	emptyReplyMessage     = "File berhasil dianalisis, namun tidak ditemukan data transaksi."
	sessionEndedMessage   = "Sesi berakhir. Silakan login kembali."
)

// TransactionSource tags transactions created from an upload.
const TransactionSource = "upload"

// # Pipeline

/*
Pipeline runs ingestion attempts.

Attempts live in an in-memory registry keyed by id and scoped to the browser
session that created them. Each transition that reaches a terminal state is
appended to the audit log; audit failures are logged and never fail the
user's operation.
*/
type Pipeline struct {
	analyzer Analyzer
	creator  TransactionCreator
	log      AttemptLog
	recorder metrics.Recorder
	policy   *bluemonday.Policy

	now func() time.Time
	ttl time.Duration

	mu       sync.Mutex
	attempts map[string]*Attempt
}

// NewPipeline constructs a [Pipeline].
func NewPipeline(analyzer Analyzer, creator TransactionCreator, log AttemptLog, recorder metrics.Recorder) *Pipeline {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Pipeline{
		analyzer: analyzer,
		creator:  creator,
		log:      log,
		recorder: recorder,
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
		ttl:      constants.AttemptTTL,
		attempts: make(map[string]*Attempt),
	}
}

/*
Select starts an attempt for file and validates it locally.

A rejected file is not kept: the attempt returns to Empty and the rejection
(415 or 413) is returned together with the rejected attempt for display. A
valid file waits in Selected for [Pipeline.Analyze].
*/
func (pipeline *Pipeline) Select(ctx context.Context, owner Owner, file UploadedFile) (Attempt, error) {
	now := pipeline.now()
	attempt := &Attempt{
		ID:        uuid.NewString(),
		Owner:     owner,
		File:      file,
		State:     StateValidating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := Validate(file); err != nil {
		attempt.State = StateRejected
		attempt.Reason = err.Error()
		attempt.File.Data = nil
		pipeline.audit(ctx, attempt)
		return attempt.clone(), err
	}

	attempt.State = StateSelected

	pipeline.mu.Lock()
	pipeline.attempts[attempt.ID] = attempt
	pipeline.mu.Unlock()

	ctxutil.GetLogger(ctx).InfoContext(ctx, "ingest_selected",
		slog.String("attempt_id", attempt.ID),
		slog.String("media_type", file.MediaType),
		slog.Int64("size", file.Size),
	)
	return attempt.clone(), nil
}

/*
Analyze sends the file to the model and parses the reply.

Allowed from Selected, and from AnalysisFailed as a manual retry.

  - Model error, or a reply with nothing usable: AnalysisFailed.
  - A reply with or without a structured block: Parsed. Without one, the
    candidate list is empty and the model's text is kept as the message.

If the attempt is cancelled while the model is working, the result is
discarded.
*/
func (pipeline *Pipeline) Analyze(ctx context.Context, owner Owner, id string) (Attempt, error) {
	logger := ctxutil.GetLogger(ctx)

	// 1. Enter Analyzing
	pipeline.mu.Lock()
	attempt, err := pipeline.lookupLocked(owner, id)
	if err != nil {
		pipeline.mu.Unlock()
		return Attempt{}, err
	}
	if attempt.State != StateSelected && attempt.State != StateAnalysisFailed {
		pipeline.mu.Unlock()
		return attempt.clone(), apperr.Conflict("Attempt cannot be analysed in state " + attempt.State.String())
	}
	pipeline.transitionLocked(attempt, StateAnalyzing)
	generation := attempt.generation
	file := attempt.File
	pipeline.mu.Unlock()

	// 2. Call the model outside the lock
	analyzeCtx, cancel := context.WithTimeout(ctx, constants.InferenceTimeout)
	text, analyzeErr := pipeline.analyzer.Analyze(analyzeCtx, file)
	cancel()

	// 3. Apply the outcome unless the attempt moved on meanwhile
	pipeline.mu.Lock()
	if attempt.generation != generation {
		snapshot := attempt.clone()
		pipeline.mu.Unlock()
		logger.InfoContext(ctx, "ingest_analysis_discarded", slog.String("attempt_id", id))
		return snapshot, nil
	}

	if analyzeErr != nil {
		logger.WarnContext(ctx, "ingest_analysis_failed",
			slog.String("attempt_id", id),
			slog.String("error", analyzeErr.Error()),
		)
		attempt.Reason = analysisFailedMessage
		attempt.Message = ""
		attempt.Candidates = nil
		pipeline.transitionLocked(attempt, StateAnalysisFailed)
	} else {
		pipeline.applyReplyLocked(attempt, ParseReply(text))
	}
	snapshot := attempt.clone()
	pipeline.mu.Unlock()

	pipeline.audit(ctx, &snapshot)
	logger.InfoContext(ctx, "ingest_analyzed",
		slog.String("attempt_id", id),
		slog.String("state", snapshot.State.String()),
		slog.Int("candidates", len(snapshot.Candidates)),
	)
	return snapshot, nil
}

func (pipeline *Pipeline) applyReplyLocked(attempt *Attempt, reply Reply) {
	switch reply.Kind {
	case ReplyStructured:
		attempt.Candidates = FilterCandidates(reply.Candidates)
		attempt.Message = pipeline.sanitize(reply.Message)
		attempt.Reason = ""
		pipeline.transitionLocked(attempt, StateParsed)

	case ReplyMessageOnly:
		attempt.Candidates = nil
		attempt.Message = pipeline.sanitize(reply.Message)
		if attempt.Message == "" {
			attempt.Message = emptyReplyMessage
		}
		attempt.Reason = ""
		pipeline.transitionLocked(attempt, StateParsed)

	default:
		attempt.Candidates = nil
		attempt.Message = ""
		attempt.Reason = analysisFailedMessage
		pipeline.transitionLocked(attempt, StateAnalysisFailed)
	}
}

// sanitize strips any markup from model text before it is shown. Entities are
// decoded first so encoded markup cannot survive the policy.
func (pipeline *Pipeline) sanitize(text string) string {
	return strings.TrimSpace(pipeline.policy.Sanitize(html.UnescapeString(text)))
}

/*
Commit submits the parsed candidates, one create-transaction call each,
strictly in order.

The fold never stops on a failed item and never rolls back saved ones; the
result carries the success count and the first and last error. A 401 ends the
session, and the remaining items are reported as failed without being sent.

The fold is detached from request cancellation so a dropped connection cannot
leave the attempt half-committed and unreported.
*/
func (pipeline *Pipeline) Commit(ctx context.Context, owner Owner, id string, credentials Credentials) (Attempt, error) {
	logger := ctxutil.GetLogger(ctx)

	// 1. Enter Committing
	pipeline.mu.Lock()
	attempt, err := pipeline.lookupLocked(owner, id)
	if err != nil {
		pipeline.mu.Unlock()
		return Attempt{}, err
	}
	if attempt.State != StateParsed {
		pipeline.mu.Unlock()
		return attempt.clone(), apperr.Conflict("Only analysed files can be saved")
	}
	if len(attempt.Candidates) == 0 {
		pipeline.mu.Unlock()
		return attempt.clone(), apperr.Conflict("There are no transactions to save")
	}
	token, ok := credentials.Token()
	if !ok {
		pipeline.mu.Unlock()
		return attempt.clone(), apperr.Unauthorized("Authentication required")
	}
	pipeline.transitionLocked(attempt, StateCommitting)
	candidates := append([]Candidate(nil), attempt.Candidates...)
	fileName := attempt.File.Name
	pipeline.mu.Unlock()

	// 2. Sequential fold
	commitCtx := context.WithoutCancel(ctx)
	result := CommitResult{}
	sessionEnded := false

	for index, candidate := range candidates {
		if sessionEnded {
			result = result.add(index, candidate.Product, errors.New(sessionEndedMessage))
			pipeline.recorder.RecordCommitItem(false)
			continue
		}

		_, createErr := pipeline.creator.CreateTransaction(commitCtx, token, backend.TransactionInput{
			Product: candidate.Product,
			Qty:     candidate.Quantity,
			Price:   candidate.UnitPrice,
			Total:   candidate.Total(),
			Notes:   "Impor dari " + fileName,
			Source:  TransactionSource,
		})

		if createErr != nil {
			logger.WarnContext(ctx, "ingest_commit_item_failed",
				slog.String("attempt_id", id),
				slog.Int("index", index),
				slog.String("error", createErr.Error()),
			)
			if backend.IsUnauthorized(createErr) {
				credentials.Invalidate(commitCtx, token)
				sessionEnded = true
			}
			createErr = errors.New(backend.Message(createErr))
		}

		pipeline.recorder.RecordCommitItem(createErr == nil)
		result = result.add(index, candidate.Product, createErr)
	}

	// 3. Committed, whatever the count
	pipeline.mu.Lock()
	attempt.Commit = &result
	attempt.Message = result.Summary()
	attempt.File.Data = nil
	pipeline.transitionLocked(attempt, StateCommitted)
	snapshot := attempt.clone()
	pipeline.mu.Unlock()

	pipeline.audit(commitCtx, &snapshot)
	logger.InfoContext(ctx, "ingest_committed",
		slog.String("attempt_id", id),
		slog.Int("attempted", result.Attempted),
		slog.Int("succeeded", result.Succeeded),
	)
	return snapshot, nil
}

// Cancel removes the file of an attempt that has not been committed. No
// network call is made; an analysis still in flight is discarded when it
// returns.
func (pipeline *Pipeline) Cancel(ctx context.Context, owner Owner, id string) (Attempt, error) {
	pipeline.mu.Lock()
	attempt, err := pipeline.lookupLocked(owner, id)
	if err != nil {
		pipeline.mu.Unlock()
		return Attempt{}, err
	}
	if !attempt.State.cancellable() {
		pipeline.mu.Unlock()
		return attempt.clone(), apperr.Conflict("Attempt cannot be cancelled in state " + attempt.State.String())
	}

	attempt.Candidates = nil
	attempt.File.Data = nil
	attempt.Message = ""
	pipeline.transitionLocked(attempt, StateCancelled)
	snapshot := attempt.clone()
	pipeline.mu.Unlock()

	pipeline.audit(ctx, &snapshot)
	return snapshot, nil
}

// Get returns an attempt of owner.
func (pipeline *Pipeline) Get(_ context.Context, owner Owner, id string) (Attempt, error) {
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()

	attempt, err := pipeline.lookupLocked(owner, id)
	if err != nil {
		return Attempt{}, err
	}
	return attempt.clone(), nil
}

// History returns the latest audit rows of the owner's user.
func (pipeline *Pipeline) History(ctx context.Context, owner Owner, limit int) ([]AttemptRecord, error) {
	if owner.UserID == "" {
		return nil, nil
	}
	return pipeline.log.Recent(ctx, owner.UserID, limit)
}

// # Registry Maintenance

// Sweep drops attempts untouched for longer than the attempt TTL. Attempts
// with a call in flight are kept.
func (pipeline *Pipeline) Sweep(now time.Time) int {
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()

	removed := 0
	for id, attempt := range pipeline.attempts {
		if attempt.State == StateAnalyzing || attempt.State == StateCommitting {
			continue
		}
		if now.Sub(attempt.UpdatedAt) > pipeline.ttl {
			delete(pipeline.attempts, id)
			removed++
		}
	}
	return removed
}

// Run sweeps the registry periodically until ctx is cancelled.
func (pipeline *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.AttemptSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := pipeline.Sweep(pipeline.now()); removed > 0 {
				ctxutil.GetLogger(ctx).DebugContext(ctx, "ingest_sweep", slog.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

// # Internals

func (pipeline *Pipeline) lookupLocked(owner Owner, id string) (*Attempt, error) {
	attempt, ok := pipeline.attempts[id]
	if !ok || attempt.Owner.SessionID != owner.SessionID {
		return nil, apperr.NotFound("Ingestion attempt")
	}
	return attempt, nil
}

func (pipeline *Pipeline) transitionLocked(attempt *Attempt, state State) {
	attempt.State = state
	attempt.UpdatedAt = pipeline.now()
	attempt.generation++
}

// audit records a terminal state. Failures are logged only.
func (pipeline *Pipeline) audit(ctx context.Context, attempt *Attempt) {
	if !attempt.State.Terminal() {
		return
	}
	pipeline.recorder.RecordIngestOutcome(attempt.State.String())

	if err := pipeline.log.Record(ctx, recordOf(attempt, pipeline.now())); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "ingest_audit_failed",
			slog.String("attempt_id", attempt.ID),
			slog.String("error", err.Error()),
		)
	}
}
