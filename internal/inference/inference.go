// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package inference talks to the generative model that reads uploaded documents
and answers assistant questions.

The only contract with the model is: send an instruction (optionally with one
inlined file and a short history), receive free-form text. Interpreting that
text is the caller's job.
*/
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
	"github.com/taibuivan/warungpintar/internal/platform/metrics"
)

// DefaultEndpoint is the public Generative Language API.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/"

var (
	// ErrNotConfigured is returned when no API key was provided.
	ErrNotConfigured = errors.New("inference: model is not configured")

	// ErrEmptyReply is returned when the model produced no text, e.g. because
	// the prompt or every candidate was blocked.
	ErrEmptyReply = errors.New("inference: model returned no text")
)

// # Request Model

// Role is the author of one conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one earlier message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// Attachment is a file inlined into the request.
type Attachment struct {
	MediaType string
	Data      []byte
}

// Settings are the sampling parameters of one call.
type Settings struct {
	Temperature     float64
	TopK            int64
	TopP            float64
	MaxOutputTokens int64
}

// Request is one generation call.
type Request struct {
	// History precedes the prompt, oldest first.
	History []Turn
	// Prompt is the text of the final user turn.
	Prompt string
	// Attachment, if set, is sent after the prompt in the final user turn.
	Attachment *Attachment
	Settings   Settings
	// SafetyFilter blocks harassment, hate speech, sexual and dangerous
	// content at medium probability and above.
	SafetyFilter bool
}

// # Client

// Client calls the Gemini generateContent endpoint over REST.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	recorder   metrics.Recorder
}

// Option customises a [Client].
type Option func(*Client)

// WithEndpoint replaces [DefaultEndpoint]; tests point it at a local server.
func WithEndpoint(endpoint string) Option {
	return func(client *Client) {
		client.endpoint = strings.TrimSuffix(endpoint, "/") + "/"
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// NewClient constructs a [Client] for model (e.g. "gemini-2.0-flash").
func NewClient(apiKey, model string, recorder metrics.Recorder, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	client := &Client{
		httpClient: &http.Client{Timeout: constants.InferenceTimeout},
		endpoint:   DefaultEndpoint,
		apiKey:     apiKey,
		model:      strings.TrimPrefix(model, "models/"),
		recorder:   recorder,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Generate sends one request and returns the text of the first candidate.
func (client *Client) Generate(ctx context.Context, request Request) (string, error) {
	logger := ctxutil.GetLogger(ctx)
	started := time.Now()

	response, err := client.call(ctx, buildRequest(request))
	client.recorder.RecordInferenceLatency(time.Since(started))

	if err != nil {
		logger.WarnContext(ctx, "inference_call_failed",
			slog.String("model", client.model),
			slog.String("error", err.Error()),
		)
		return "", describe(err)
	}

	text := firstText(response)
	if text == "" {
		reason := ""
		if response.PromptFeedback != nil {
			reason = response.PromptFeedback.BlockReason
		}
		logger.InfoContext(ctx, "inference_empty_reply", slog.String("block_reason", reason))
		return "", ErrEmptyReply
	}

	logger.DebugContext(ctx, "inference_call_succeeded",
		slog.String("model", client.model),
		slog.Duration("latency", time.Since(started)),
		slog.Int("reply_chars", len(text)),
	)
	return text, nil
}

func (client *Client) call(ctx context.Context, body *generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := client.endpoint + "models/" + client.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", client.apiKey)

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Non-2xx bodies carry {"error":{"code","message","status"}}.
	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, err
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &decoded, nil
}

// # Wire Format

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int64   `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int64   `json:"maxOutputTokens,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func buildRequest(request Request) *generateRequest {
	contents := make([]content, 0, len(request.History)+1)
	for _, turn := range request.History {
		contents = append(contents, content{
			Role:  string(turn.Role),
			Parts: []part{{Text: turn.Text}},
		})
	}

	parts := []part{{Text: request.Prompt}}
	if request.Attachment != nil {
		parts = append(parts, part{
			InlineData: &blob{
				MimeType: request.Attachment.MediaType,
				Data:     base64.StdEncoding.EncodeToString(request.Attachment.Data),
			},
		})
	}
	contents = append(contents, content{Role: string(RoleUser), Parts: parts})

	generate := &generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     request.Settings.Temperature,
			TopK:            request.Settings.TopK,
			TopP:            request.Settings.TopP,
			MaxOutputTokens: request.Settings.MaxOutputTokens,
		},
	}

	if request.SafetyFilter {
		for _, category := range []string{
			"HARM_CATEGORY_HARASSMENT",
			"HARM_CATEGORY_HATE_SPEECH",
			"HARM_CATEGORY_SEXUALLY_EXPLICIT",
			"HARM_CATEGORY_DANGEROUS_CONTENT",
		} {
			generate.SafetySettings = append(generate.SafetySettings, safetySetting{
				Category:  category,
				Threshold: "BLOCK_MEDIUM_AND_ABOVE",
			})
		}
	}

	return generate
}

// firstText concatenates the text parts of the first candidate.
func firstText(response *generateResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}
	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, p := range candidate.Content.Parts {
		builder.WriteString(p.Text)
	}
	return strings.TrimSpace(builder.String())
}

// describe keeps the API's own error message when there is one.
func describe(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("inference: %s (%d): %w", apiErr.Message, apiErr.Code, err)
	}
	return fmt.Errorf("inference: %w", err)
}

// # Disabled

// Disabled stands in for the model when no API key is configured; every call
// fails with [ErrNotConfigured].
type Disabled struct{}

// Generate implements the generator contract.
func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}
