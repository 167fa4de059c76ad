package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseAnalysisID(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+id.String(), nil)
	req.SetPathValue("aid", id.String())
	rec := httptest.NewRecorder()

	got, ok := ParseAnalysisID(rec, req, zap.NewNop())
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestParseAnalysisID_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/garbage", nil)
	req.SetPathValue("aid", "garbage")
	rec := httptest.NewRecorder()

	got, ok := ParseAnalysisID(rec, req, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, got)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, "invalid_analysis_id", resp.Error)
}

func TestParseEntryID_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/dictionary/entries/nope", nil)
	req.SetPathValue("eid", "nope")
	rec := httptest.NewRecorder()

	_, ok := ParseEntryID(rec, req, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "anonymous", ActorID(req))

	req.Header.Set("X-Actor-ID", "  alice  ")
	assert.Equal(t, "alice", ActorID(req))

	req.Header.Set("X-Actor-ID", "   ")
	assert.Equal(t, "anonymous", ActorID(req))
}
