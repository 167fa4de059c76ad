package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/llm"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
	"github.com/pankajg09/data-dictionary-system/pkg/parser"
	"github.com/pankajg09/data-dictionary-system/pkg/prompts"
	"github.com/pankajg09/data-dictionary-system/pkg/repositories"
	"github.com/pankajg09/data-dictionary-system/pkg/source"
	"github.com/pankajg09/data-dictionary-system/pkg/structural"
)

// mergeRetries bounds optimistic-lock retries when a concurrent writer
// advances an entry version between plan and apply.
const mergeRetries = 3

// PipelineConfig bounds one analysis run.
type PipelineConfig struct {
	// TotalBudget caps the whole pipeline, submission to stored result.
	TotalBudget time.Duration
	// PromptBudget bounds how much source text is embedded in the prompt.
	PromptBudget prompts.Budget
}

// DefaultPipelineConfig returns the production pipeline bounds.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TotalBudget:  2 * time.Minute,
		PromptBudget: prompts.DefaultBudget(),
	}
}

// SubmitInput is one analysis submission.
type SubmitInput struct {
	Content          []byte
	Filename         string
	DeclaredLanguage string
	ActorID          string
}

// AnalysisService drives the pipeline: normalize, pre-analyze, prompt,
// invoke the gateway, parse, merge, persist. Submission is synchronous up
// to validation; the rest runs in the background under the run's own
// deadline, and the request row is the only window into its progress.
type AnalysisService struct {
	analysisRepo repositories.AnalysisRepository
	entryRepo    repositories.DictionaryRepository
	merger       *Merger
	gateway      *llm.Gateway
	cfg          PipelineConfig
	logger       *zap.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	analysisRepo repositories.AnalysisRepository,
	entryRepo repositories.DictionaryRepository,
	merger *Merger,
	gateway *llm.Gateway,
	cfg PipelineConfig,
	logger *zap.Logger,
) *AnalysisService {
	if cfg.TotalBudget <= 0 {
		cfg.TotalBudget = DefaultPipelineConfig().TotalBudget
	}
	if cfg.PromptBudget.MaxSourceChars <= 0 {
		cfg.PromptBudget = prompts.DefaultBudget()
	}
	return &AnalysisService{
		analysisRepo: analysisRepo,
		entryRepo:    entryRepo,
		merger:       merger,
		gateway:      gateway,
		cfg:          cfg,
		logger:       logger.Named("analysis"),
		cancels:      make(map[uuid.UUID]context.CancelFunc),
	}
}

// Submit validates and normalizes the submission, records a pending
// request, and starts the pipeline in the background. Validation failures
// (unsupported type, empty source) are returned synchronously and nothing
// is recorded.
func (s *AnalysisService) Submit(ctx context.Context, input SubmitInput) (*models.AnalysisRequest, error) {
	unit, err := source.Normalize(input.Content, input.Filename, input.DeclaredLanguage)
	if err != nil {
		return nil, err
	}

	request := &models.AnalysisRequest{
		ID:             uuid.New(),
		Status:         models.AnalysisPending,
		Language:       unit.Language,
		OriginFilename: unit.OriginFilename,
		SizeBytes:      unit.SizeBytes,
		ActorID:        input.ActorID,
		RequestedAt:    time.Now(),
	}
	if err := s.analysisRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	// The run outlives the HTTP request, so it gets its own context bounded
	// by the pipeline budget rather than the caller's deadline.
	runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.TotalBudget)
	s.mu.Lock()
	s.cancels[request.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(request.ID)
		s.run(runCtx, request, unit)
	}()

	s.logger.Info("analysis submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("language", string(unit.Language)),
		zap.String("size_class", string(unit.SizeClass())),
		zap.Int("size_bytes", unit.SizeBytes))

	return request, nil
}

// Get returns the current state of a request.
func (s *AnalysisService) Get(ctx context.Context, requestID uuid.UUID) (*models.AnalysisRequest, error) {
	return s.analysisRepo.GetByID(ctx, requestID)
}

// ListRecent returns the most recently submitted requests.
func (s *AnalysisService) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRequest, error) {
	return s.analysisRepo.ListRecent(ctx, limit)
}

// Cancel aborts an in-flight request. Requests already in a terminal state
// return ErrConflict; unknown requests return ErrNotFound.
func (s *AnalysisService) Cancel(ctx context.Context, requestID uuid.UUID) error {
	s.mu.Lock()
	cancel, ok := s.cancels[requestID]
	s.mu.Unlock()

	if ok {
		cancel()
		return nil
	}

	request, err := s.analysisRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status.IsTerminal() {
		return fmt.Errorf("analysis request %s already %s: %w",
			requestID, request.Status, apperrors.ErrConflict)
	}
	// Pending or in_progress with no registered cancel means the run died
	// with the process; report it as no longer cancellable.
	return fmt.Errorf("analysis request %s is not running: %w", requestID, apperrors.ErrConflict)
}

// Wait blocks until all in-flight runs complete. Used during shutdown.
func (s *AnalysisService) Wait() {
	s.wg.Wait()
}

func (s *AnalysisService) release(requestID uuid.UUID) {
	s.mu.Lock()
	if cancel, ok := s.cancels[requestID]; ok {
		cancel()
		delete(s.cancels, requestID)
	}
	s.mu.Unlock()
}

// run executes the pipeline stages for one request. It owns the request's
// single terminal transition: exactly one of MarkSucceeded or MarkFailed,
// written under a fresh context so cancellation cannot lose the outcome.
func (s *AnalysisService) run(ctx context.Context, request *models.AnalysisRequest, unit *models.SourceUnit) {
	logger := s.logger.With(zap.String("request_id", request.ID.String()))
	started := time.Now()

	if err := s.analysisRepo.MarkInProgress(context.Background(), request.ID); err != nil {
		logger.Error("failed to mark analysis in progress", zap.Error(err))
		return
	}

	hints := structural.Analyze(unit)
	logger.Debug("structural pre-analysis complete",
		zap.Int("identifiers", len(hints.CandidateIdentifiers)),
		zap.Int("snippets", len(hints.CandidateSnippets)),
		zap.Int("tables", len(hints.Tables)))

	result, providerUsed, err := s.analyze(ctx, unit, hints, logger)
	if err != nil {
		reason := failureReason(ctx, err)
		logger.Warn("analysis failed",
			zap.String("reason", reason),
			zap.Duration("elapsed", time.Since(started)))
		if markErr := s.analysisRepo.MarkFailed(context.Background(), request.ID, reason); markErr != nil {
			logger.Error("failed to record analysis failure", zap.Error(markErr))
		}
		return
	}

	// A cancelled or timed-out run must not reach the dictionary, even if
	// the model call happened to finish first.
	if ctx.Err() != nil {
		reason := failureReason(ctx, ctx.Err())
		if markErr := s.analysisRepo.MarkFailed(context.Background(), request.ID, reason); markErr != nil {
			logger.Error("failed to record analysis failure", zap.Error(markErr))
		}
		return
	}

	if err := s.applyMerge(ctx, request, result, hints); err != nil {
		reason := failureReason(ctx, err)
		logger.Error("failed to merge analysis result", zap.Error(err))
		if markErr := s.analysisRepo.MarkFailed(context.Background(), request.ID, reason); markErr != nil {
			logger.Error("failed to record analysis failure", zap.Error(markErr))
		}
		return
	}

	if err := s.analysisRepo.MarkSucceeded(context.Background(), request.ID, providerUsed, result); err != nil {
		logger.Error("failed to record analysis success", zap.Error(err))
		return
	}

	logger.Info("analysis succeeded",
		zap.String("provider", providerUsed),
		zap.Int("tables", len(result.Tables)),
		zap.Int("columns", result.ColumnCount()),
		zap.Bool("degraded", result.Degraded),
		zap.Duration("elapsed", time.Since(started)))
}

// analyze runs the model-facing stages: prompt, gateway, parse.
func (s *AnalysisService) analyze(ctx context.Context, unit *models.SourceUnit, hints *models.StructuralHints, logger *zap.Logger) (*models.AnalysisResult, string, error) {
	prompt := prompts.BuildAnalysisPrompt(unit, hints, s.cfg.PromptBudget)
	system := prompts.BuildAnalysisSystemMessage()

	output, err := s.gateway.Invoke(ctx, prompt, system)
	if err != nil {
		return nil, "", err
	}

	result, err := parser.Parse(output.Text)
	if err != nil {
		return nil, "", err
	}
	if result.Degraded {
		logger.Warn("analysis result synthesized from degraded parse",
			zap.Strings("warnings", result.Warnings))
	}

	return result, output.Provider, nil
}

// applyMerge plans against the current dictionary and applies the change
// set, retrying the plan when a concurrent writer wins the version race.
// Tables found only by the static scan load their stored entries too, so
// hint-only columns merge instead of colliding on create.
func (s *AnalysisService) applyMerge(ctx context.Context, request *models.AnalysisRequest, result *models.AnalysisResult, hints *models.StructuralHints) error {
	tables := make([]string, 0, len(result.Tables))
	seenTables := make(map[string]struct{}, len(result.Tables))
	for _, t := range result.Tables {
		tables = append(tables, t.Name)
		seenTables[strings.ToLower(strings.TrimSpace(t.Name))] = struct{}{}
	}
	if hints != nil {
		for _, t := range hints.Tables {
			key := strings.ToLower(strings.TrimSpace(t.Name))
			if _, ok := seenTables[key]; ok {
				continue
			}
			seenTables[key] = struct{}{}
			tables = append(tables, t.Name)
		}
	}

	var lastErr error
	for attempt := 0; attempt < mergeRetries; attempt++ {
		existing, err := s.entryRepo.ListByTables(ctx, tables)
		if err != nil {
			return err
		}

		outcome := s.merger.Plan(result, hints, existing, request.ID)
		if outcome.Changes.Empty() {
			return nil
		}

		_, err = s.entryRepo.ApplyChanges(ctx, outcome.Changes, request.ActorID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrStaleVersion) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return apperrors.ErrCancelled.Error()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.ErrTimedOut.Error()
	case errors.Is(err, apperrors.ErrAllProvidersExhausted):
		return fmt.Sprintf("all providers exhausted: %v", err)
	case errors.Is(err, apperrors.ErrUnparsableResponse):
		return fmt.Sprintf("model response unparsable: %v", err)
	default:
		return err.Error()
	}
}
