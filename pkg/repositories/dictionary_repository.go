package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/database"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

// EntryUpdate pairs an entry's new field values with the version it was read
// at and the precomputed field diff. If the stored version has advanced past
// ReadVersion, the whole change set is rejected with ErrStaleVersion.
type EntryUpdate struct {
	Entry       *models.DictionaryEntry
	ReadVersion int
	Diff        models.FieldDiff
}

// ChangeSet is the batch the merger proposes: entries to create and entries
// to update. Applied atomically.
type ChangeSet struct {
	Creates []*models.DictionaryEntry
	Updates []*EntryUpdate
}

// Empty reports whether the change set contains no work.
func (c *ChangeSet) Empty() bool {
	return len(c.Creates) == 0 && len(c.Updates) == 0
}

// AppliedResult summarizes a successful ApplyChanges call.
type AppliedResult struct {
	Created int
	Updated int
}

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	TableName string
	Source    models.EntrySource
}

// DictionaryRepository is the versioned store for dictionary entries. It is
// the only component able to write entries or history: every mutation goes
// through ApplyChanges, which appends exactly one history row per mutated
// entry in the same transaction, so entry state and history never diverge.
type DictionaryRepository interface {
	ApplyChanges(ctx context.Context, changes *ChangeSet, actor string) (*AppliedResult, error)
	GetByID(ctx context.Context, entryID uuid.UUID) (*models.DictionaryEntry, error)
	List(ctx context.Context, filter ListFilter) ([]*models.DictionaryEntry, error)
	ListByTables(ctx context.Context, tableNames []string) ([]*models.DictionaryEntry, error)
	GetHistory(ctx context.Context, entryID uuid.UUID) ([]*models.HistoryEntry, error)
}

type dictionaryRepository struct {
	db *database.DB
}

// NewDictionaryRepository creates a DictionaryRepository backed by postgres.
func NewDictionaryRepository(db *database.DB) DictionaryRepository {
	return &dictionaryRepository{db: db}
}

var _ DictionaryRepository = (*dictionaryRepository)(nil)

const entryColumns = `id, analysis_id, table_name, column_name, data_type, description,
       valid_values, relationships, source, version, created_by, created_at, updated_at`

// ApplyChanges applies the change set in a single transaction: all creates
// and updates succeed or none do. Each update carries the version it was
// read at; a version mismatch aborts the transaction with ErrStaleVersion
// and the caller must retry with fresh data.
func (r *dictionaryRepository) ApplyChanges(ctx context.Context, changes *ChangeSet, actor string) (*AppliedResult, error) {
	if changes == nil || changes.Empty() {
		return &AppliedResult{}, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	result := &AppliedResult{}

	for _, entry := range changes.Creates {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.Version = 1
		entry.CreatedBy = actor
		entry.CreatedAt = now
		entry.UpdatedAt = now

		_, err := tx.Exec(ctx, `
			INSERT INTO dictionary_entries (
				id, analysis_id, table_name, column_name, data_type, description,
				valid_values, relationships, source, version, created_by,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			entry.ID,
			entry.AnalysisID,
			entry.TableName,
			entry.ColumnName,
			entry.DataType,
			entry.Description,
			jsonbValue(entry.ValidValues),
			jsonbValue(entry.Relationships),
			entry.Source,
			entry.Version,
			entry.CreatedBy,
			entry.CreatedAt,
			entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create entry %s.%s: %w", entry.TableName, entry.ColumnName, err)
		}

		if err := insertHistory(ctx, tx, entry.ID, actor, now, creationDiff(entry)); err != nil {
			return nil, err
		}
		result.Created++
	}

	for _, update := range changes.Updates {
		entry := update.Entry

		tag, err := tx.Exec(ctx, `
			UPDATE dictionary_entries
			SET data_type = $3, description = $4, valid_values = $5,
			    relationships = $6, source = $7, version = version + 1,
			    updated_at = $8
			WHERE id = $1 AND version = $2`,
			entry.ID,
			update.ReadVersion,
			entry.DataType,
			entry.Description,
			jsonbValue(entry.ValidValues),
			jsonbValue(entry.Relationships),
			entry.Source,
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update entry %s: %w", entry.ID, err)
		}
		if tag.RowsAffected() == 0 {
			// Either the entry vanished or its version advanced since the
			// read; both reject the whole batch, never silently overwrite.
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM dictionary_entries WHERE id = $1)`,
				entry.ID).Scan(&exists); err != nil {
				return nil, fmt.Errorf("failed to check entry %s: %w", entry.ID, err)
			}
			if !exists {
				return nil, fmt.Errorf("entry %s: %w", entry.ID, apperrors.ErrNotFound)
			}
			return nil, fmt.Errorf("entry %s read at version %d: %w",
				entry.ID, update.ReadVersion, apperrors.ErrStaleVersion)
		}

		entry.Version = update.ReadVersion + 1
		entry.UpdatedAt = now

		if err := insertHistory(ctx, tx, entry.ID, actor, now, update.Diff); err != nil {
			return nil, err
		}
		result.Updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit changes: %w", err)
	}

	return result, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, actor string, ts time.Time, diff models.FieldDiff) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO entry_history (id, entry_id, ts, actor, field_diff)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), entryID, ts, actor, diff,
	)
	if err != nil {
		return fmt.Errorf("failed to append history for entry %s: %w", entryID, err)
	}
	return nil
}

// creationDiff records every populated field as a transition from empty.
func creationDiff(entry *models.DictionaryEntry) models.FieldDiff {
	diff := models.FieldDiff{
		"table_name":  {Old: "", New: entry.TableName},
		"column_name": {Old: "", New: entry.ColumnName},
	}
	if entry.DataType != "" {
		diff["data_type"] = models.FieldChange{Old: "", New: entry.DataType}
	}
	if entry.Description != "" {
		diff["description"] = models.FieldChange{Old: "", New: entry.Description}
	}
	if len(entry.ValidValues) > 0 {
		diff["valid_values"] = models.FieldChange{Old: "", New: joinValues(entry.ValidValues)}
	}
	if len(entry.Relationships) > 0 {
		diff["relationships"] = models.FieldChange{Old: "", New: joinValues(entry.Relationships)}
	}
	return diff
}

func (r *dictionaryRepository) GetByID(ctx context.Context, entryID uuid.UUID) (*models.DictionaryEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM dictionary_entries WHERE id = $1`, entryID)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

func (r *dictionaryRepository) List(ctx context.Context, filter ListFilter) ([]*models.DictionaryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM dictionary_entries WHERE 1=1`
	args := []any{}

	if filter.TableName != "" {
		args = append(args, filter.TableName)
		query += fmt.Sprintf(` AND lower(trim(table_name)) = lower(trim($%d))`, len(args))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(` AND source = $%d`, len(args))
	}
	query += ` ORDER BY table_name, column_name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *dictionaryRepository) ListByTables(ctx context.Context, tableNames []string) ([]*models.DictionaryEntry, error) {
	if len(tableNames) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM dictionary_entries
		WHERE lower(trim(table_name)) = ANY($1)
		ORDER BY table_name, column_name`,
		lowerTrimmed(tableNames))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries by table: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetHistory returns the complete append-only log for an entry, oldest
// first. History is never paginated away.
func (r *dictionaryRepository) GetHistory(ctx context.Context, entryID uuid.UUID) ([]*models.HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, entry_id, ts, actor, field_diff
		FROM entry_history
		WHERE entry_id = $1
		ORDER BY ts ASC, id ASC`,
		entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry history: %w", err)
	}
	defer rows.Close()

	var history []*models.HistoryEntry
	for rows.Next() {
		h := &models.HistoryEntry{}
		if err := rows.Scan(&h.ID, &h.EntryID, &h.Timestamp, &h.Actor, &h.FieldDiff); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ============================================================================
// Scan helpers
// ============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.DictionaryEntry, error) {
	entry := &models.DictionaryEntry{}
	var validValues, relationships []byte

	err := row.Scan(
		&entry.ID,
		&entry.AnalysisID,
		&entry.TableName,
		&entry.ColumnName,
		&entry.DataType,
		&entry.Description,
		&validValues,
		&relationships,
		&entry.Source,
		&entry.Version,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(validValues) > 0 {
		if err := json.Unmarshal(validValues, &entry.ValidValues); err != nil {
			return nil, fmt.Errorf("failed to decode valid_values: %w", err)
		}
	}
	if len(relationships) > 0 {
		if err := json.Unmarshal(relationships, &entry.Relationships); err != nil {
			return nil, fmt.Errorf("failed to decode relationships: %w", err)
		}
	}

	return entry, nil
}

func scanEntries(rows pgx.Rows) ([]*models.DictionaryEntry, error) {
	var entries []*models.DictionaryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func jsonbValue(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return data
}

func lowerTrimmed(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(strings.TrimSpace(n))
	}
	return out
}

func joinValues(values []string) string {
	return strings.Join(values, ", ")
}
