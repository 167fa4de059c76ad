package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// actorHeader identifies who performed a request. Attribution only; there
// is no authentication layer in front of it.
const actorHeader = "X-Actor-ID"

const defaultActor = "anonymous"

// ParseAnalysisID extracts and validates the analysis request ID from the
// request path. Returns the parsed UUID and true on success, or uuid.Nil
// and false after writing an error response.
// Expects path parameter: aid
func ParseAnalysisID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "aid", "invalid_analysis_id", "Invalid analysis ID format", logger)
}

// ParseEntryID extracts and validates the dictionary entry ID from the
// request path. Returns the parsed UUID and true on success, or uuid.Nil
// and false after writing an error response.
// Expects path parameter: eid
func ParseEntryID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "eid", "invalid_entry_id", "Invalid entry ID format", logger)
}

// ActorID returns the acting identity from the request headers, falling
// back to "anonymous".
func ActorID(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(actorHeader)); actor != "" {
		return actor
	}
	return defaultActor
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
