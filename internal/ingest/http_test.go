// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warungpintar/internal/gate"
	"github.com/taibuivan/warungpintar/internal/platform/sec"
)

// stubIdentity signs in any email with a fixed UMKM account.
type stubIdentity struct{}

func (stubIdentity) Login(_ context.Context, email, _ string) (gate.Credential, error) {
	return gate.Credential{
		Token: "token-" + email,
		User:  gate.User{ID: "7", Email: email, DisplayName: "Warung Budi", Role: sec.RoleUMKM},
	}, nil
}

func (stubIdentity) Register(ctx context.Context, profile gate.Profile) (gate.Credential, error) {
	return stubIdentity{}.Login(ctx, profile.Email, profile.Password)
}

func (stubIdentity) Logout(context.Context, string) error { return nil }

func (stubIdentity) Me(context.Context, string) (gate.User, error) {
	return gate.User{}, errors.New("not used")
}

type ingestFixture struct {
	*pipelineFixture
	session *gate.Session
	router  http.Handler
}

func newIngestFixture(t *testing.T, replyText string) *ingestFixture {
	t.Helper()

	manager := gate.NewManager(stubIdentity{}, gate.NewMemoryCredentialStore(), nil)
	session := manager.Session(context.Background(), "browser-1")
	session.Wait(context.Background())
	_, err := session.Login(context.Background(), "budi@example.com", "rahasia123")
	require.NoError(t, err)

	pipeline := newPipelineFixture(replyText)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			next.ServeHTTP(writer, request.WithContext(gate.WithSession(request.Context(), session)))
		})
	})
	router.Mount("/api/v1/ingest", NewHandler(pipeline.pipeline).Routes())

	return &ingestFixture{pipelineFixture: pipeline, session: session, router: router}
}

func multipartUpload(t *testing.T, name, mediaType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", mediaType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func (fixture *ingestFixture) do(request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)
	return recorder
}

type attemptEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		State      string `json:"state"`
		Message    string `json:"message"`
		Candidates []struct {
			Product      string `json:"product"`
			Qty          int    `json:"qty"`
			Price        int64  `json:"price"`
			Total        int64  `json:"total"`
			PriceDisplay string `json:"price_display"`
		} `json:"candidates"`
		GrandTotal        int64  `json:"grand_total"`
		GrandTotalDisplay string `json:"grand_total_display"`
		Commit            *struct {
			Attempted int    `json:"attempted"`
			Succeeded int    `json:"succeeded"`
			Summary   string `json:"summary"`
		} `json:"commit"`
	} `json:"data"`
	Code string `json:"code"`
}

func decodeAttempt(t *testing.T, recorder *httptest.ResponseRecorder) attemptEnvelope {
	t.Helper()

	var envelope attemptEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope), recorder.Body.String())
	return envelope
}

func TestUpload_AnalysesAndCommits(t *testing.T) {
	fixture := newIngestFixture(t, twoItemReply)

	uploaded := fixture.do(multipartUpload(t, "struk.jpg", "image/jpeg", []byte("jpeg bytes")))
	require.Equal(t, http.StatusCreated, uploaded.Code, uploaded.Body.String())

	attempt := decodeAttempt(t, uploaded)
	assert.Equal(t, "parsed", attempt.Data.State)
	require.Len(t, attempt.Data.Candidates, 2)
	assert.Equal(t, "Kopi", attempt.Data.Candidates[0].Product)
	assert.Equal(t, "Rp 5.000", attempt.Data.Candidates[0].PriceDisplay)
	assert.Equal(t, int64(22000), attempt.Data.GrandTotal)
	assert.Equal(t, "Rp 22.000", attempt.Data.GrandTotalDisplay)

	commitRequest := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/"+attempt.Data.ID+"/commit", nil)
	committed := fixture.do(commitRequest)
	require.Equal(t, http.StatusOK, committed.Code, committed.Body.String())

	result := decodeAttempt(t, committed)
	assert.Equal(t, "committed", result.Data.State)
	require.NotNil(t, result.Data.Commit)
	assert.Equal(t, "2 of 2 saved", result.Data.Commit.Summary)
	assert.Len(t, fixture.creator.inputs, 2)
}

func TestUpload_RejectedLocally(t *testing.T) {
	fixture := newIngestFixture(t, twoItemReply)

	recorder := fixture.do(multipartUpload(t, "arsip.zip", "application/zip", []byte("PK")))

	assert.Equal(t, http.StatusUnsupportedMediaType, recorder.Code)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decodeAttempt(t, recorder).Code)
	assert.Zero(t, fixture.analyzer.callCount())
}

func TestUpload_MissingFile(t *testing.T) {
	fixture := newIngestFixture(t, twoItemReply)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "tanpa file"))
	require.NoError(t, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())

	recorder := fixture.do(request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Zero(t, fixture.analyzer.callCount())
}

func TestCancelEndpoint(t *testing.T) {
	fixture := newIngestFixture(t, twoItemReply)

	uploaded := decodeAttempt(t, fixture.do(multipartUpload(t, "nota.pdf", "application/pdf", []byte("%PDF"))))

	cancelled := fixture.do(httptest.NewRequest(http.MethodDelete, "/api/v1/ingest/"+uploaded.Data.ID, nil))
	require.Equal(t, http.StatusOK, cancelled.Code)
	assert.Equal(t, "cancelled", decodeAttempt(t, cancelled).Data.State)

	fetched := fixture.do(httptest.NewRequest(http.MethodGet, "/api/v1/ingest/"+uploaded.Data.ID, nil))
	assert.Equal(t, "cancelled", decodeAttempt(t, fetched).Data.State)
	assert.Empty(t, fixture.creator.inputs)
}

func TestHistoryEndpoint(t *testing.T) {
	fixture := newIngestFixture(t, twoItemReply)
	fixture.do(multipartUpload(t, "struk.jpg", "image/jpeg", []byte("jpeg")))

	recorder := fixture.do(httptest.NewRequest(http.MethodGet, "/api/v1/ingest/history", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data []AttemptRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, StateParsed, envelope.Data[0].State)
	assert.Equal(t, "7", envelope.Data[0].UserID)
}

func TestUnknownAttempt(t *testing.T) {
	fixture := newIngestFixture(t, twoItemReply)

	recorder := fixture.do(httptest.NewRequest(http.MethodGet, "/api/v1/ingest/nope", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
