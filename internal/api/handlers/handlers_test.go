package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/pipeline"
)

var testLog = logger.NewWithWriter(&bytes.Buffer{})

type mockUploads struct {
	HandleFunc func(ctx context.Context, payload []byte) pipeline.StageResponse
}

func (m *mockUploads) HandleUploadEvent(ctx context.Context, payload []byte) pipeline.StageResponse {
	return m.HandleFunc(ctx, payload)
}

type mockDashboards struct {
	HandleFunc func(ctx context.Context, payload []byte) pipeline.StageResponse
	ListFunc   func(ctx context.Context, ownerID string) ([]string, error)
}

func (m *mockDashboards) Handle(ctx context.Context, payload []byte) pipeline.StageResponse {
	return m.HandleFunc(ctx, payload)
}

func (m *mockDashboards) ListDashboards(ctx context.Context, ownerID string) ([]string, error) {
	return m.ListFunc(ctx, ownerID)
}

type mockAssistant struct {
	AskFunc func(ctx context.Context, ownerID, question string) (string, error)
}

func (m *mockAssistant) Ask(ctx context.Context, ownerID, question string) (string, error) {
	return m.AskFunc(ctx, ownerID, question)
}

type mockUsers struct {
	ExistsFunc func(ctx context.Context, userID string) (bool, error)
	CreateFunc func(ctx context.Context, email, password string) (*domain.User, error)
}

func (m *mockUsers) Exists(ctx context.Context, userID string) (bool, error) {
	return m.ExistsFunc(ctx, userID)
}

func (m *mockUsers) Create(ctx context.Context, email, password string) (*domain.User, error) {
	return m.CreateFunc(ctx, email, password)
}

type mockStorage struct {
	gcs.StorageService
	UploadFunc func(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error
}

func (m *mockStorage) Upload(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	return m.UploadFunc(ctx, bucket, key, data, contentType, metadata)
}

type mockPublisher struct {
	jobs.Publisher
	PublishFunc func(ctx context.Context, p jobs.ProcessStatementJob) (*jobs.Job, error)
}

func (m *mockPublisher) PublishProcessStatement(ctx context.Context, p jobs.ProcessStatementJob) (*jobs.Job, error) {
	return m.PublishFunc(ctx, p)
}

func TestEventsHandler_PassesStageResponse(t *testing.T) {
	var got []byte
	h := NewEventsHandler(
		&mockUploads{HandleFunc: func(ctx context.Context, payload []byte) pipeline.StageResponse {
			got = payload
			return pipeline.StageResponse{StatusCode: 500, Body: json.RawMessage(`"Processing failed: boom"`)}
		}},
		&mockDashboards{HandleFunc: func(ctx context.Context, payload []byte) pipeline.StageResponse {
			return pipeline.StageResponse{StatusCode: 404, Body: json.RawMessage(`{"error":"Statement not found"}`)}
		}},
		1<<20, testLog,
	)

	rec := httptest.NewRecorder()
	h.Upload(rec, httptest.NewRequest(http.MethodPost, "/api/events/upload", strings.NewReader(`{"bucket":"b","key":"k"}`)))
	assert.Equal(t, 500, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `"Processing failed: boom"`, rec.Body.String())
	assert.JSONEq(t, `{"bucket":"b","key":"k"}`, string(got))

	rec = httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodPost, "/api/events/dashboard", strings.NewReader(`{}`)))
	assert.Equal(t, 404, rec.Code)
	assert.JSONEq(t, `{"error":"Statement not found"}`, rec.Body.String())
}

func TestEventsHandler_BodyTooLarge(t *testing.T) {
	h := NewEventsHandler(&mockUploads{}, &mockDashboards{}, 8, testLog)

	rec := httptest.NewRecorder()
	h.Upload(rec, httptest.NewRequest(http.MethodPost, "/api/events/upload", strings.NewReader(`{"bucket":"bucket","key":"key"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDashboardsHandler_List(t *testing.T) {
	tests := []struct {
		name       string
		urls       []string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"urls", []string{"https://a", "https://b"}, nil, 200, `{"user_id":"u1","dashboards":["https://a","https://b"]}`},
		{"none", nil, nil, 200, `{"user_id":"u1","dashboards":[]}`},
		{"error", nil, errors.New("boom"), 500, `{"error":"Failed to list dashboards"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDashboardsHandler(&mockDashboards{ListFunc: func(ctx context.Context, ownerID string) ([]string, error) {
				return tt.urls, tt.err
			}}, testLog)

			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/u1", nil), "u1")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestChatHandler(t *testing.T) {
	assistant := &mockAssistant{AskFunc: func(ctx context.Context, ownerID, question string) (string, error) {
		if question == "fail" {
			return "", errors.New("model down")
		}
		return "Answer for " + ownerID, nil
	}}
	h := NewChatHandler(assistant, testLog)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"ok", `{"question":"How much?","user_id":"u1"}`, 200, `{"response":"Answer for u1"}`},
		{"missing question", `{"user_id":"u1"}`, 400, `{"error":"Missing 'question' in the request body."}`},
		{"missing user", `{"question":"How much?"}`, 400, `{"error":"Missing 'user_id' in the request body."}`},
		{"bad json", `{`, 400, `{"error":"Invalid JSON format in request body."}`},
		{"model error", `{"question":"fail","user_id":"u1"}`, 500, `{"error":"An internal error occurred: model down"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestUsersHandler_Register(t *testing.T) {
	email := gofakeit.Email()
	password := gofakeit.Password(true, true, true, false, false, 12)

	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
		wantBody   string
	}{
		{"created", `{"email":"` + email + `","password":"` + password + `"}`, nil, 201, `{"user_id":"new-id"}`},
		{"duplicate", `{"email":"` + email + `","password":"` + password + `"}`, domain.ErrEmailTaken, 409, `{"error":"Email already existed"}`},
		{"bad email", `{"email":"nope","password":"` + password + `"}`, nil, 400, `{"error":"Invalid email address"}`},
		{"short password", `{"email":"` + email + `","password":"abc"}`, nil, 400, `{"error":"'password' must be at least 8 characters"}`},
		{"store error", `{"email":"` + email + `","password":"` + password + `"}`, errors.New("db"), 500, `{"error":"Failed to register user"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUsersHandler(&mockUsers{CreateFunc: func(ctx context.Context, e, p string) (*domain.User, error) {
				if tt.createErr != nil {
					return nil, tt.createErr
				}
				return &domain.User{ID: "new-id", Email: e}, nil
			}}, testLog)

			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func multipartRequest(t *testing.T, url, field, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestStatementsHandler_Upload(t *testing.T) {
	var (
		gotKey      string
		gotType     string
		gotMetadata map[string]string
		published   []jobs.ProcessStatementJob
	)
	storage := &mockStorage{UploadFunc: func(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
		gotKey, gotType, gotMetadata = key, contentType, metadata
		return nil
	}}
	publisher := &mockPublisher{PublishFunc: func(ctx context.Context, p jobs.ProcessStatementJob) (*jobs.Job, error) {
		published = append(published, p)
		return &jobs.Job{JobID: "job-1"}, nil
	}}
	users := &mockUsers{ExistsFunc: func(ctx context.Context, userID string) (bool, error) { return userID == "u1", nil }}

	h := NewStatementsHandler(storage, users, publisher, "bucket", 1<<20, testLog)
	h.now = func() time.Time { return time.Date(2024, 1, 31, 20, 15, 30, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "/api/statements?user_id=u1", "file", "My Jan.pdf", []byte("%PDF-1.4")))
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Uploaded", resp["message"])
	assert.Equal(t, "job-1", resp["job_id"])
	assert.Equal(t, gotKey, resp["key"])
	assert.True(t, strings.HasPrefix(gotKey, "statements/u1/My_Jan-20240201031530-"), gotKey)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, map[string]string{"user-id": "u1"}, gotMetadata)
	require.Len(t, published, 1)
	assert.Equal(t, jobs.ProcessStatementJob{Bucket: "bucket", Key: gotKey}, published[0])
}

func TestStatementsHandler_UploadRejections(t *testing.T) {
	users := &mockUsers{ExistsFunc: func(ctx context.Context, userID string) (bool, error) { return userID == "u1", nil }}
	storage := &mockStorage{UploadFunc: func(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
		return errors.New("bucket missing")
	}}
	h := NewStatementsHandler(storage, users, nil, "bucket", 1<<20, testLog)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantBody   string
	}{
		{"no user", multipartRequest(t, "/api/statements", "file", "a.pdf", []byte("x")), 400, `{"error":"user_id is required"}`},
		{"unknown user", multipartRequest(t, "/api/statements?user_id=ghost", "file", "a.pdf", []byte("x")), 403, `{"error":"User is not registered"}`},
		{"no file", multipartRequest(t, "/api/statements?user_id=u1", "", "", nil), 400, `{"error":"No file provided"}`},
		{"not pdf", multipartRequest(t, "/api/statements?user_id=u1", "file", "a.txt", []byte("x")), 400, `{"error":"Only PDF files are allowed"}`},
		{"storage error", multipartRequest(t, "/api/statements?user_id=u1", "file", "a.pdf", []byte("x")), 500, `{"error":"bucket missing"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Upload(rec, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
