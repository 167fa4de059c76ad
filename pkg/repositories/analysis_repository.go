package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/database"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

// AnalysisRepository persists analysis requests and their lifecycle
// transitions. Terminal states always carry a completion timestamp, and a
// succeeded request always carries its result.
type AnalysisRepository interface {
	Create(ctx context.Context, request *models.AnalysisRequest) error
	GetByID(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error)
	MarkInProgress(ctx context.Context, requestID uuid.UUID) error
	MarkSucceeded(ctx context.Context, requestID uuid.UUID, providerUsed string, result *models.AnalysisResult) error
	MarkFailed(ctx context.Context, requestID uuid.UUID, reason string) error
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRequest, error)
}

type analysisRepository struct {
	db *database.DB
}

// NewAnalysisRepository creates an AnalysisRepository backed by postgres.
func NewAnalysisRepository(db *database.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

var _ AnalysisRepository = (*analysisRepository)(nil)

const analysisColumns = `id, status, language, origin_filename, size_bytes, actor_id,
       provider_used, failure_reason, result, requested_at, completed_at`

func (r *analysisRepository) Create(ctx context.Context, request *models.AnalysisRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.Status == "" {
		request.Status = models.AnalysisPending
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO analysis_requests (
			id, status, language, origin_filename, size_bytes, actor_id, requested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		request.ID,
		request.Status,
		request.Language,
		request.OriginFilename,
		request.SizeBytes,
		request.ActorID,
		request.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis request: %w", err)
	}
	return nil
}

func (r *analysisRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analysis_requests WHERE id = $1`, requestID)

	request, err := scanAnalysisRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis request: %w", err)
	}
	return request, nil
}

func (r *analysisRepository) MarkInProgress(ctx context.Context, requestID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE analysis_requests
		SET status = $2
		WHERE id = $1 AND status = $3`,
		requestID, models.AnalysisInProgress, models.AnalysisPending)
	if err != nil {
		return fmt.Errorf("failed to mark analysis in progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis request %s is not pending: %w", requestID, apperrors.ErrConflict)
	}
	return nil
}

func (r *analysisRepository) MarkSucceeded(ctx context.Context, requestID uuid.UUID, providerUsed string, result *models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	return r.finish(ctx, requestID, models.AnalysisSucceeded, providerUsed, "", data)
}

func (r *analysisRepository) MarkFailed(ctx context.Context, requestID uuid.UUID, reason string) error {
	return r.finish(ctx, requestID, models.AnalysisFailed, "", reason, nil)
}

// finish is the single path into a terminal state. Guarding on the current
// status keeps transitions one way: a request that already completed is
// never overwritten by a late worker.
func (r *analysisRepository) finish(ctx context.Context, requestID uuid.UUID, status models.AnalysisStatus, providerUsed, reason string, result []byte) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE analysis_requests
		SET status = $2, provider_used = NULLIF($3, ''), failure_reason = NULLIF($4, ''),
		    result = $5, completed_at = $6
		WHERE id = $1 AND status IN ($7, $8)`,
		requestID, status, providerUsed, reason, result, time.Now(),
		models.AnalysisPending, models.AnalysisInProgress)
	if err != nil {
		return fmt.Errorf("failed to complete analysis request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis request %s already completed: %w", requestID, apperrors.ErrConflict)
	}
	return nil
}

func (r *analysisRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+analysisColumns+`
		FROM analysis_requests
		ORDER BY requested_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.AnalysisRequest
	for rows.Next() {
		request, err := scanAnalysisRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanAnalysisRequest(row rowScanner) (*models.AnalysisRequest, error) {
	request := &models.AnalysisRequest{}
	var originFilename, providerUsed, failureReason *string
	var result []byte

	err := row.Scan(
		&request.ID,
		&request.Status,
		&request.Language,
		&originFilename,
		&request.SizeBytes,
		&request.ActorID,
		&providerUsed,
		&failureReason,
		&result,
		&request.RequestedAt,
		&request.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if originFilename != nil {
		request.OriginFilename = *originFilename
	}
	if providerUsed != nil {
		request.ProviderUsed = *providerUsed
	}
	if failureReason != nil {
		request.FailureReason = *failureReason
	}
	if len(result) > 0 {
		request.Result = &models.AnalysisResult{}
		if err := json.Unmarshal(result, request.Result); err != nil {
			return nil, fmt.Errorf("failed to decode analysis result: %w", err)
		}
	}

	return request, nil
}
