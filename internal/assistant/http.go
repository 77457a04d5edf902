// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assistant

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warungpintar/internal/inference"
	"github.com/taibuivan/warungpintar/internal/ingest"
	"github.com/taibuivan/warungpintar/internal/platform/apperr"
	requestutil "github.com/taibuivan/warungpintar/internal/platform/request"
	"github.com/taibuivan/warungpintar/internal/platform/respond"
	"github.com/taibuivan/warungpintar/internal/platform/validate"
)

const (
	maxMessageLen   = 2000
	multipartMemory = 4 << 20
)

// Handler implements the chat endpoints. Mount it behind an authentication
// guard.
type Handler struct {
	assistant *Assistant
}

// NewHandler constructs a new [Handler].
func NewHandler(assistant *Assistant) *Handler {
	return &Handler{assistant: assistant}
}

// Routes returns a [chi.Router] for the chat endpoints.
//
// # Endpoints
//   - GET  / : Opening greeting.
//   - POST / : Ask a question, as JSON or as multipart with a "file" part.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.greeting)
	router.Post("/", handler.ask)

	return router
}

type turnRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type askRequest struct {
	Message string        `json:"message"`
	History []turnRequest `json:"history"`
}

type replyView struct {
	Reply string `json:"reply"`
}

func (handler *Handler) greeting(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, replyView{Reply: Greeting})
}

// ask handles POST /api/v1/assistant.
func (handler *Handler) ask(writer http.ResponseWriter, request *http.Request) {
	question, err := readQuestion(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	reply, err := handler.assistant.Ask(request.Context(), question)
	switch {
	case err == nil:
		respond.OK(writer, replyView{Reply: reply})
	case errors.Is(err, ErrEmptyQuestion):
		respond.Error(writer, request, validate.RequiredError("message", "This field is required"))
	case errors.Is(err, inference.ErrNotConfigured):
		respond.Error(writer, request, apperr.BadGateway("The assistant is not available", err))
	default:
		respond.Error(writer, request, apperr.BadGateway("The assistant could not answer. Please try again.", err))
	}
}

// readQuestion accepts a JSON body, or a multipart form whose "history" field
// carries the same JSON array.
func readQuestion(writer http.ResponseWriter, request *http.Request) (Question, error) {
	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var input askRequest
		if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
			return Question{}, err
		}
		return questionOf(input, nil)
	}

	request.Body = http.MaxBytesReader(writer, request.Body, ingest.MaxFileSize+multipartMemory)
	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Question{}, apperr.PayloadTooLarge("File is larger than 10 MB")
		}
		return Question{}, validate.RequiredError("message", "Expected a multipart form")
	}
	defer func() { _ = request.MultipartForm.RemoveAll() }()

	input := askRequest{Message: request.FormValue("message")}
	if history := request.FormValue("history"); history != "" {
		if err := json.Unmarshal([]byte(history), &input.History); err != nil {
			return Question{}, validate.RequiredError("history", "Must be a JSON array of turns")
		}
	}

	var file *File
	part, header, err := request.FormFile("file")
	if err == nil {
		defer part.Close()

		data, err := io.ReadAll(io.LimitReader(part, ingest.MaxFileSize+1))
		if err != nil {
			return Question{}, apperr.Internal(err)
		}
		uploaded := ingest.NewUploadedFile(header.Filename, header.Header.Get("Content-Type"), data)
		if err := ingest.Validate(uploaded); err != nil {
			return Question{}, err
		}
		file = &File{Name: uploaded.Name, MediaType: uploaded.MediaType, Data: uploaded.Data}
	}

	return questionOf(input, file)
}

func questionOf(input askRequest, file *File) (Question, error) {
	validator := &validate.Validator{}
	validator.MaxLen("message", input.Message, maxMessageLen)
	for _, turn := range input.History {
		validator.OneOf("history.role", turn.Role, string(inference.RoleUser), string(inference.RoleModel))
		validator.MaxLen("history.text", turn.Text, maxMessageLen)
	}
	if err := validator.Err(); err != nil {
		return Question{}, err
	}

	question := Question{Message: strings.TrimSpace(input.Message), File: file}
	for _, turn := range input.History {
		if text := strings.TrimSpace(turn.Text); text != "" {
			question.History = append(question.History, inference.Turn{Role: inference.Role(turn.Role), Text: text})
		}
	}
	return question, nil
}
