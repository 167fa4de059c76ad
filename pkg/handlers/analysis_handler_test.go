package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/llm"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
	"github.com/pankajg09/data-dictionary-system/pkg/repositories"
	"github.com/pankajg09/data-dictionary-system/pkg/services"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockAnalysisRepo implements repositories.AnalysisRepository for handler
// tests. The background pipeline keeps running after Submit returns, so the
// mock tolerates lifecycle calls it was not configured for.
type mockAnalysisRepo struct {
	mu         sync.Mutex
	created    []*models.AnalysisRequest
	getByID    func(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error)
	listRecent func(ctx context.Context, limit int) ([]*models.AnalysisRequest, error)
}

func (m *mockAnalysisRepo) Create(ctx context.Context, request *models.AnalysisRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, request)
	return nil
}

func (m *mockAnalysisRepo) GetByID(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error) {
	if m.getByID != nil {
		return m.getByID(ctx, requestID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAnalysisRepo) MarkInProgress(ctx context.Context, requestID uuid.UUID) error {
	return nil
}

func (m *mockAnalysisRepo) MarkSucceeded(ctx context.Context, requestID uuid.UUID, providerUsed string, result *models.AnalysisResult) error {
	return nil
}

func (m *mockAnalysisRepo) MarkFailed(ctx context.Context, requestID uuid.UUID, reason string) error {
	return nil
}

func (m *mockAnalysisRepo) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRequest, error) {
	if m.listRecent != nil {
		return m.listRecent(ctx, limit)
	}
	return nil, nil
}

func (m *mockAnalysisRepo) lastCreated() *models.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.created) == 0 {
		return nil
	}
	return m.created[len(m.created)-1]
}

var _ repositories.AnalysisRepository = (*mockAnalysisRepo)(nil)

func newAnalysisHandler(t *testing.T, repo *mockAnalysisRepo) *AnalysisHandler {
	t.Helper()

	provider := llm.NewMockProvider("mock")
	provider.CompleteFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		return `{"tables": []}`, nil
	}
	gateway := llm.NewGateway([]llm.Provider{provider}, llm.DefaultGatewayConfig(), zap.NewNop())

	service := services.NewAnalysisService(
		repo,
		&mockEntryRepo{},
		services.NewMerger(zap.NewNop()),
		gateway,
		services.PipelineConfig{},
		zap.NewNop(),
	)
	t.Cleanup(service.Wait)

	return NewAnalysisHandler(service, 1<<20, zap.NewNop())
}

// ============================================================================
// Submit Handler Tests
// ============================================================================

func TestAnalysisHandler_SubmitJSON(t *testing.T) {
	repo := &mockAnalysisRepo{}
	handler := newAnalysisHandler(t, repo)

	body, _ := json.Marshal(SubmitAnalysisRequest{
		Content:  "CREATE TABLE users (id INTEGER);",
		Filename: "schema.sql",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "alice")
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	created := repo.lastCreated()
	require.NotNil(t, created)
	assert.Equal(t, models.LanguageSQL, created.Language)
	assert.Equal(t, "alice", created.ActorID)
}

func TestAnalysisHandler_SubmitDefaultsActor(t *testing.T) {
	repo := &mockAnalysisRepo{}
	handler := newAnalysisHandler(t, repo)

	body := []byte(`{"content": "CREATE TABLE users (id INTEGER);", "filename": "schema.sql"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	created := repo.lastCreated()
	require.NotNil(t, created)
	assert.Equal(t, "anonymous", created.ActorID)
}

func TestAnalysisHandler_SubmitUnsupportedFileType(t *testing.T) {
	repo := &mockAnalysisRepo{}
	handler := newAnalysisHandler(t, repo)

	body := []byte(`{"content": "MZ binary", "filename": "program.exe"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "unsupported_file_type", resp.Error)
	assert.Nil(t, repo.lastCreated(), "rejected submissions are not recorded")
}

func TestAnalysisHandler_SubmitEmptySource(t *testing.T) {
	repo := &mockAnalysisRepo{}
	handler := newAnalysisHandler(t, repo)

	body := []byte(`{"content": "   ", "filename": "schema.sql"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "empty_source", resp.Error)
}

func TestAnalysisHandler_SubmitInvalidBody(t *testing.T) {
	handler := newAnalysisHandler(t, &mockAnalysisRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisHandler_SubmitMultipart(t *testing.T) {
	repo := &mockAnalysisRepo{}
	handler := newAnalysisHandler(t, repo)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "models.py")
	require.NoError(t, err)
	_, err = part.Write([]byte("class User(Base):\n    __tablename__ = 'users'\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	created := repo.lastCreated()
	require.NotNil(t, created)
	assert.Equal(t, "models.py", created.OriginFilename)
	assert.Equal(t, models.LanguagePython, created.Language)
}

func TestAnalysisHandler_SubmitMultipartMissingFile(t *testing.T) {
	handler := newAnalysisHandler(t, &mockAnalysisRepo{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("language", "sql"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "missing_file", resp.Error)
}

func TestAnalysisHandler_SubmitFileTooLarge(t *testing.T) {
	repo := &mockAnalysisRepo{}
	provider := llm.NewMockProvider("mock")
	gateway := llm.NewGateway([]llm.Provider{provider}, llm.DefaultGatewayConfig(), zap.NewNop())
	service := services.NewAnalysisService(
		repo, &mockEntryRepo{}, services.NewMerger(zap.NewNop()),
		gateway, services.PipelineConfig{}, zap.NewNop(),
	)
	t.Cleanup(service.Wait)
	handler := NewAnalysisHandler(service, 64, zap.NewNop())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "schema.sql")
	require.NoError(t, err)
	_, err = part.Write([]byte(strings.Repeat("-- padding\n", 50)))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.Submit(rec, req)

	// ParseMultipartForm may reject the oversized body before the explicit
	// size check runs, so either rejection status is acceptable.
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
	assert.Nil(t, repo.lastCreated())
}

// ============================================================================
// Get Handler Tests
// ============================================================================

func TestAnalysisHandler_Get(t *testing.T) {
	request := &models.AnalysisRequest{
		ID:     uuid.New(),
		Status: models.AnalysisSucceeded,
	}
	repo := &mockAnalysisRepo{
		getByID: func(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error) {
			assert.Equal(t, request.ID, requestID)
			return request, nil
		},
	}
	handler := newAnalysisHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+request.ID.String(), nil)
	req.SetPathValue("aid", request.ID.String())
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestAnalysisHandler_GetNotFound(t *testing.T) {
	handler := newAnalysisHandler(t, &mockAnalysisRepo{})

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+id, nil)
	req.SetPathValue("aid", id)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "analysis_not_found", resp.Error)
}

// ============================================================================
// List Handler Tests
// ============================================================================

func TestAnalysisHandler_List(t *testing.T) {
	var gotLimit int
	repo := &mockAnalysisRepo{
		listRecent: func(ctx context.Context, limit int) ([]*models.AnalysisRequest, error) {
			gotLimit = limit
			return []*models.AnalysisRequest{{ID: uuid.New()}}, nil
		},
	}
	handler := newAnalysisHandler(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis?limit=5", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
}

func TestAnalysisHandler_ListInvalidLimit(t *testing.T) {
	handler := newAnalysisHandler(t, &mockAnalysisRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/analysis?limit=-1", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "invalid_limit", resp.Error)
}

// ============================================================================
// Cancel Handler Tests
// ============================================================================

func TestAnalysisHandler_CancelUnknownRequest(t *testing.T) {
	handler := newAnalysisHandler(t, &mockAnalysisRepo{})

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/"+id+"/cancel", nil)
	req.SetPathValue("aid", id)
	rec := httptest.NewRecorder()
	handler.Cancel(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisHandler_CancelTerminalRequestConflicts(t *testing.T) {
	request := &models.AnalysisRequest{
		ID:     uuid.New(),
		Status: models.AnalysisSucceeded,
	}
	repo := &mockAnalysisRepo{
		getByID: func(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error) {
			return request, nil
		},
	}
	handler := newAnalysisHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/"+request.ID.String()+"/cancel", nil)
	req.SetPathValue("aid", request.ID.String())
	rec := httptest.NewRecorder()
	handler.Cancel(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "analysis_not_cancellable", resp.Error)
}
