// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warungpintar/internal/gate"
	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	requestutil "github.com/taibuivan/warungpintar/internal/platform/request"
	"github.com/taibuivan/warungpintar/internal/platform/respond"
	"github.com/taibuivan/warungpintar/internal/platform/validate"
)

const (
	// multipartOverhead is the slack allowed on top of the file for boundaries
	// and headers, so an oversized file still reaches local validation.
	multipartOverhead = 1 << 20

	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 4 << 20
)

// Handler implements the ingestion endpoints. Mount it behind the UMKM
// audience guard.
type Handler struct {
	pipeline *Pipeline
}

// NewHandler constructs a new [Handler].
func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// Routes returns a [chi.Router] for the ingestion endpoints.
//
// # Endpoints
//   - POST   /                     : Upload a file (multipart "file"), validate and analyse it.
//   - GET    /history              : Audit trail of the current user.
//   - GET    /{attemptID}          : Current state of an attempt.
//   - POST   /{attemptID}/analyze  : Retry after a failed analysis.
//   - POST   /{attemptID}/commit   : Save the candidates as transactions.
//   - DELETE /{attemptID}          : Remove the file.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.upload)
	router.Get("/history", handler.history)
	router.Route("/{attemptID}", func(router chi.Router) {
		router.Get("/", handler.get)
		router.Post("/analyze", handler.analyze)
		router.Post("/commit", handler.commit)
		router.Delete("/", handler.cancel)
	})

	return router
}

// # Views

type candidateView struct {
	Candidate
	Total        int64  `json:"total"`
	PriceDisplay string `json:"price_display"`
	TotalDisplay string `json:"total_display"`
}

type commitView struct {
	CommitResult
	Summary string `json:"summary"`
}

type attemptView struct {
	ID                string          `json:"id"`
	State             State           `json:"state"`
	FileName          string          `json:"file_name"`
	MediaType         string          `json:"media_type"`
	FileSize          int64           `json:"file_size"`
	Message           string          `json:"message,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	Candidates        []candidateView `json:"candidates"`
	GrandTotal        int64           `json:"grand_total"`
	GrandTotalDisplay string          `json:"grand_total_display"`
	Commit            *commitView     `json:"commit,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func viewOf(attempt Attempt) attemptView {
	view := attemptView{
		ID:         attempt.ID,
		State:      attempt.State,
		FileName:   attempt.File.Name,
		MediaType:  attempt.File.MediaType,
		FileSize:   attempt.File.Size,
		Message:    attempt.Message,
		Reason:     attempt.Reason,
		Candidates: make([]candidateView, 0, len(attempt.Candidates)),
		CreatedAt:  attempt.CreatedAt,
		UpdatedAt:  attempt.UpdatedAt,
	}

	for _, candidate := range attempt.Candidates {
		total := candidate.Total()
		view.GrandTotal += total
		view.Candidates = append(view.Candidates, candidateView{
			Candidate:    candidate,
			Total:        total,
			PriceDisplay: FormatRupiah(candidate.UnitPrice),
			TotalDisplay: FormatRupiah(total),
		})
	}
	view.GrandTotalDisplay = FormatRupiah(view.GrandTotal)

	if attempt.Commit != nil {
		view.Commit = &commitView{CommitResult: *attempt.Commit, Summary: attempt.Commit.Summary()}
	}
	return view
}

// ownerOf identifies the caller from the gate session.
func ownerOf(request *http.Request) (Owner, *gate.Session, error) {
	session := gate.FromContext(request.Context())
	if session == nil {
		return Owner{}, nil, apperr.Unauthorized("Authentication required")
	}

	owner := Owner{SessionID: session.ID()}
	if user := session.Snapshot().User; user != nil {
		owner.UserID = user.ID
	}
	return owner, session, nil
}

// # Handlers

// upload handles POST /api/v1/ingest.
//
// # Returns
//   - 201 with the attempt, Parsed or AnalysisFailed.
//   - 413 / 415 when local validation rejects the file (no model call).
func (handler *Handler) upload(writer http.ResponseWriter, request *http.Request) {
	owner, _, err := ownerOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// 1. Multipart extraction
	request.Body = http.MaxBytesReader(writer, request.Body, MaxFileSize+multipartOverhead)
	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(writer, request, apperr.PayloadTooLarge("File is larger than 10 MB"))
			return
		}
		respond.Error(writer, request, validate.RequiredError("file", "Expected a multipart form with a file"))
		return
	}
	defer func() { _ = request.MultipartForm.RemoveAll() }()

	part, header, err := request.FormFile("file")
	if err != nil {
		respond.Error(writer, request, validate.RequiredError("file", "This field is required"))
		return
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, MaxFileSize+1))
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	file := NewUploadedFile(header.Filename, header.Header.Get("Content-Type"), data)
	file.Size = header.Size

	// 2. Select + local validation
	attempt, err := handler.pipeline.Select(request.Context(), owner, file)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// 3. Analysis
	attempt, err = handler.pipeline.Analyze(request.Context(), owner, attempt.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, viewOf(attempt))
}

func (handler *Handler) history(writer http.ResponseWriter, request *http.Request) {
	owner, _, err := ownerOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	records, err := handler.pipeline.History(request.Context(), owner, constants.AttemptHistoryLimit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if records == nil {
		records = []AttemptRecord{}
	}
	respond.OK(writer, records)
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	owner, _, err := ownerOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	attempt, err := handler.pipeline.Get(request.Context(), owner, requestutil.Param(request, "attemptID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, viewOf(attempt))
}

func (handler *Handler) analyze(writer http.ResponseWriter, request *http.Request) {
	owner, _, err := ownerOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	attempt, err := handler.pipeline.Analyze(request.Context(), owner, requestutil.Param(request, "attemptID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, viewOf(attempt))
}

// commit handles POST /api/v1/ingest/{attemptID}/commit.
//
// Partial failure is not an HTTP error: the body reports "n of m saved"
// with the first and last failure.
func (handler *Handler) commit(writer http.ResponseWriter, request *http.Request) {
	owner, session, err := ownerOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	attempt, err := handler.pipeline.Commit(request.Context(), owner, requestutil.Param(request, "attemptID"), session)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, viewOf(attempt))
}

func (handler *Handler) cancel(writer http.ResponseWriter, request *http.Request) {
	owner, _, err := ownerOf(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	attempt, err := handler.pipeline.Cancel(request.Context(), owner, requestutil.Param(request, "attemptID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, viewOf(attempt))
}
