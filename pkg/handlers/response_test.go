package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusOK, ApiResponse{Success: true, Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "hi", resp.Message)
}

func TestWriteJSON_NonOKStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusAccepted, ApiResponse{Success: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	err := ErrorResponse(rec, http.StatusConflict, "stale_version", "re-read and retry")
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "stale_version", resp.Error)
	assert.Equal(t, "re-read and retry", resp.Message)
}
