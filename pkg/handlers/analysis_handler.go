package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SubmitAnalysisRequest for POST /api/analysis with a JSON body. File
// uploads use multipart/form-data with a "file" part instead.
type SubmitAnalysisRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
	Language string `json:"language,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// AnalysisHandler handles analysis pipeline HTTP requests.
type AnalysisHandler struct {
	analysisService *services.AnalysisService
	maxUploadBytes  int64
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService *services.AnalysisService, maxUploadBytes int64, logger *zap.Logger) *AnalysisHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 1 << 20
	}
	return &AnalysisHandler{
		analysisService: analysisService,
		maxUploadBytes:  maxUploadBytes,
		logger:          logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analysis", h.Submit)
	mux.HandleFunc("GET /api/analysis", h.List)
	mux.HandleFunc("GET /api/analysis/{aid}", h.Get)
	mux.HandleFunc("POST /api/analysis/{aid}/cancel", h.Cancel)
}

// Submit handles POST /api/analysis
func (h *AnalysisHandler) Submit(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readSubmission(w, r)
	if !ok {
		return
	}
	input.ActorID = ActorID(r)

	request, err := h.analysisService.Submit(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnsupportedFileType):
			if err := ErrorResponse(w, http.StatusBadRequest, "unsupported_file_type", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrEmptySource):
			if err := ErrorResponse(w, http.StatusBadRequest, "empty_source", "Source content is empty"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to submit analysis", zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "submit_analysis_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, ApiResponse{Success: true, Data: request}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/analysis/{aid}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID, ok := ParseAnalysisID(w, r, h.logger)
	if !ok {
		return
	}

	request, err := h.analysisService.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "analysis_not_found", "Analysis request not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get analysis request",
			zap.String("request_id", requestID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_analysis_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: request}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/analysis
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		limit = parsed
	}

	requests, err := h.analysisService.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list analysis requests", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_analysis_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: requests}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Cancel handles POST /api/analysis/{aid}/cancel
func (h *AnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID, ok := ParseAnalysisID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.analysisService.Cancel(r.Context(), requestID); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := ErrorResponse(w, http.StatusNotFound, "analysis_not_found", "Analysis request not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrConflict):
			if err := ErrorResponse(w, http.StatusConflict, "analysis_not_cancellable", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to cancel analysis",
				zap.String("request_id", requestID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "cancel_analysis_failed", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "cancellation requested"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// readSubmission accepts either a multipart file upload or a JSON body.
func (h *AnalysisHandler) readSubmission(w http.ResponseWriter, r *http.Request) (services.SubmitInput, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "Invalid multipart upload"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return services.SubmitInput{}, false
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "missing_file", "Multipart upload requires a \"file\" part"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return services.SubmitInput{}, false
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "unreadable_file", "Could not read uploaded file"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return services.SubmitInput{}, false
		}
		if int64(len(content)) > h.maxUploadBytes {
			if err := ErrorResponse(w, http.StatusRequestEntityTooLarge, "file_too_large", "Uploaded file exceeds the size limit"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return services.SubmitInput{}, false
		}

		return services.SubmitInput{
			Content:          content,
			Filename:         header.Filename,
			DeclaredLanguage: r.FormValue("language"),
		}, true
	}

	var req SubmitAnalysisRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return services.SubmitInput{}, false
	}

	return services.SubmitInput{
		Content:          []byte(req.Content),
		Filename:         req.Filename,
		DeclaredLanguage: req.Language,
	}, true
}
