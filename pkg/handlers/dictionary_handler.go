package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
	"github.com/pankajg09/data-dictionary-system/pkg/repositories"
	"github.com/pankajg09/data-dictionary-system/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// EntryListResponse for GET /api/dictionary/entries
type EntryListResponse struct {
	Entries []*models.DictionaryEntry `json:"entries"`
	Total   int                       `json:"total"`
}

// UpdateEntryRequest for PUT /api/dictionary/entries/{eid}. Version is
// required: it is the version the client read, and a mismatch means someone
// else wrote first and the edit is rejected with 409. Omitting it is a 400.
type UpdateEntryRequest struct {
	services.EntryInput
	Version int `json:"version"`
}

// HistoryResponse for GET /api/dictionary/entries/{eid}/history
type HistoryResponse struct {
	EntryID string                 `json:"entry_id"`
	History []*models.HistoryEntry `json:"history"`
}

// ============================================================================
// Handler
// ============================================================================

// DictionaryHandler handles dictionary entry HTTP requests.
type DictionaryHandler struct {
	dictionaryService *services.DictionaryService
	logger            *zap.Logger
}

// NewDictionaryHandler creates a new dictionary handler.
func NewDictionaryHandler(dictionaryService *services.DictionaryService, logger *zap.Logger) *DictionaryHandler {
	return &DictionaryHandler{
		dictionaryService: dictionaryService,
		logger:            logger,
	}
}

// RegisterRoutes registers the dictionary handler's routes on the given mux.
func (h *DictionaryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dictionary/entries", h.List)
	mux.HandleFunc("POST /api/dictionary/entries", h.Create)
	mux.HandleFunc("GET /api/dictionary/entries/{eid}", h.Get)
	mux.HandleFunc("PUT /api/dictionary/entries/{eid}", h.Update)
	mux.HandleFunc("GET /api/dictionary/entries/{eid}/history", h.History)
}

// List handles GET /api/dictionary/entries
func (h *DictionaryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListFilter{
		TableName: r.URL.Query().Get("table_name"),
		Source:    models.EntrySource(r.URL.Query().Get("source")),
	}

	entries, err := h.dictionaryService.ListEntries(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list dictionary entries", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_entries_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := EntryListResponse{
		Entries: entries,
		Total:   len(entries),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/dictionary/entries/{eid}
func (h *DictionaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entryID, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	entry, err := h.dictionaryService.GetEntry(r.Context(), entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Dictionary entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get dictionary entry",
			zap.String("entry_id", entryID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_entry_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/dictionary/entries
func (h *DictionaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry, err := h.dictionaryService.CreateEntry(r.Context(), req, ActorID(r))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBadRequest):
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrConflict):
			if err := ErrorResponse(w, http.StatusConflict, "entry_exists", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to create dictionary entry",
				zap.String("table", req.TableName),
				zap.String("column", req.ColumnName),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "create_entry_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/dictionary/entries/{eid}
func (h *DictionaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	entryID, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry, err := h.dictionaryService.UpdateEntry(r.Context(), entryID, req.Version, req.EntryInput, ActorID(r))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBadRequest):
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Dictionary entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrStaleVersion):
			if err := ErrorResponse(w, http.StatusConflict, "stale_version", "Entry was modified by another writer; re-read and retry"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to update dictionary entry",
				zap.String("entry_id", entryID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "update_entry_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// History handles GET /api/dictionary/entries/{eid}/history
func (h *DictionaryHandler) History(w http.ResponseWriter, r *http.Request) {
	entryID, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	history, err := h.dictionaryService.GetEntryHistory(r.Context(), entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Dictionary entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get entry history",
			zap.String("entry_id", entryID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_history_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := HistoryResponse{
		EntryID: entryID.String(),
		History: history,
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
