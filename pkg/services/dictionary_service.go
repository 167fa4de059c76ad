package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
	"github.com/pankajg09/data-dictionary-system/pkg/repositories"
)

// EntryInput is a manual create or update of one dictionary entry.
type EntryInput struct {
	TableName     string   `json:"table_name"`
	ColumnName    string   `json:"column_name"`
	DataType      string   `json:"data_type"`
	Description   string   `json:"description"`
	ValidValues   []string `json:"valid_values"`
	Relationships []string `json:"relationships"`
}

// DictionaryService exposes dictionary reads and manual edits. Manual
// writes route through the same versioned store as analysis merges, so
// every change lands in history regardless of origin.
type DictionaryService struct {
	entryRepo repositories.DictionaryRepository
	logger    *zap.Logger
}

// NewDictionaryService creates a DictionaryService.
func NewDictionaryService(entryRepo repositories.DictionaryRepository, logger *zap.Logger) *DictionaryService {
	return &DictionaryService{
		entryRepo: entryRepo,
		logger:    logger.Named("dictionary"),
	}
}

// ListEntries returns entries matching the filter, ordered by table then
// column.
func (s *DictionaryService) ListEntries(ctx context.Context, filter repositories.ListFilter) ([]*models.DictionaryEntry, error) {
	return s.entryRepo.List(ctx, filter)
}

// GetEntry returns one entry by id.
func (s *DictionaryService) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.DictionaryEntry, error) {
	return s.entryRepo.GetByID(ctx, entryID)
}

// GetEntryHistory returns the entry's full audit log, oldest first. The
// entry must exist.
func (s *DictionaryService) GetEntryHistory(ctx context.Context, entryID uuid.UUID) ([]*models.HistoryEntry, error) {
	if _, err := s.entryRepo.GetByID(ctx, entryID); err != nil {
		return nil, err
	}
	return s.entryRepo.GetHistory(ctx, entryID)
}

// CreateEntry records a new manual entry. The (table, column) pair must
// not already exist.
func (s *DictionaryService) CreateEntry(ctx context.Context, input EntryInput, actor string) (*models.DictionaryEntry, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	entry := &models.DictionaryEntry{
		TableName:     strings.TrimSpace(input.TableName),
		ColumnName:    strings.TrimSpace(input.ColumnName),
		DataType:      strings.TrimSpace(input.DataType),
		Description:   strings.TrimSpace(input.Description),
		ValidValues:   input.ValidValues,
		Relationships: input.Relationships,
		Source:        models.SourceManual,
	}

	existing, err := s.entryRepo.ListByTables(ctx, []string{entry.TableName})
	if err != nil {
		return nil, err
	}
	for _, stored := range existing {
		if stored.DedupKey() == entry.DedupKey() {
			return nil, fmt.Errorf("entry %s.%s already exists: %w",
				entry.TableName, entry.ColumnName, apperrors.ErrConflict)
		}
	}

	if _, err := s.entryRepo.ApplyChanges(ctx, &repositories.ChangeSet{
		Creates: []*models.DictionaryEntry{entry},
	}, actor); err != nil {
		return nil, err
	}

	s.logger.Info("manual entry created",
		zap.String("entry_id", entry.ID.String()),
		zap.String("table", entry.TableName),
		zap.String("column", entry.ColumnName),
		zap.String("actor", actor))

	return entry, nil
}

// UpdateEntry applies a manual edit against the version the caller read.
// The version is mandatory: without it the optimistic check degrades to
// last-write-wins. A concurrent write in between surfaces as
// ErrStaleVersion; the caller re-reads and retries. Manual edits mark the
// entry manual, which pins its populated fields against later automated
// overwrites.
func (s *DictionaryService) UpdateEntry(ctx context.Context, entryID uuid.UUID, readVersion int, input EntryInput, actor string) (*models.DictionaryEntry, error) {
	if readVersion <= 0 {
		return nil, fmt.Errorf("version must be a positive integer: %w", apperrors.ErrBadRequest)
	}

	stored, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	updated := *stored
	updated.DataType = strings.TrimSpace(input.DataType)
	updated.Description = strings.TrimSpace(input.Description)
	updated.ValidValues = input.ValidValues
	updated.Relationships = input.Relationships
	updated.Source = models.SourceManual

	diff := models.FieldDiff{}
	if updated.DataType != stored.DataType {
		diff["data_type"] = models.FieldChange{Old: stored.DataType, New: updated.DataType}
	}
	if updated.Description != stored.Description {
		diff["description"] = models.FieldChange{Old: stored.Description, New: updated.Description}
	}
	if !equalStringSets(stored.ValidValues, updated.ValidValues) {
		diff["valid_values"] = models.FieldChange{
			Old: strings.Join(stored.ValidValues, ", "),
			New: strings.Join(updated.ValidValues, ", "),
		}
	}
	if !equalStringSets(stored.Relationships, updated.Relationships) {
		diff["relationships"] = models.FieldChange{
			Old: strings.Join(stored.Relationships, ", "),
			New: strings.Join(updated.Relationships, ", "),
		}
	}
	if updated.Source != stored.Source {
		diff["source"] = models.FieldChange{Old: string(stored.Source), New: string(updated.Source)}
	}
	if len(diff) == 0 {
		return stored, nil
	}

	if _, err := s.entryRepo.ApplyChanges(ctx, &repositories.ChangeSet{
		Updates: []*repositories.EntryUpdate{{
			Entry:       &updated,
			ReadVersion: readVersion,
			Diff:        diff,
		}},
	}, actor); err != nil {
		return nil, err
	}

	s.logger.Info("manual entry updated",
		zap.String("entry_id", entryID.String()),
		zap.Int("version", updated.Version),
		zap.String("actor", actor))

	return &updated, nil
}

func validateEntryInput(input EntryInput) error {
	if strings.TrimSpace(input.TableName) == "" {
		return fmt.Errorf("table_name is required: %w", apperrors.ErrBadRequest)
	}
	if strings.TrimSpace(input.ColumnName) == "" {
		return fmt.Errorf("column_name is required: %w", apperrors.ErrBadRequest)
	}
	return nil
}
