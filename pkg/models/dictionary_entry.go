package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntrySource records how a dictionary entry came to exist.
type EntrySource string

const (
	SourceManual   EntrySource = "manual"
	SourceAnalysis EntrySource = "analysis"
)

// DictionaryEntry is one (table, column) record with type and description
// metadata. (TableName, ColumnName) is unique case-insensitively per logical
// dataset. Every mutation increments Version and appends a HistoryEntry;
// both happen in the same transaction inside the versioned store.
type DictionaryEntry struct {
	ID         uuid.UUID  `json:"id"`
	AnalysisID *uuid.UUID `json:"analysis_id,omitempty"` // owning analysis run, nil for manual entries

	TableName     string   `json:"table_name"`
	ColumnName    string   `json:"column_name"`
	DataType      string   `json:"data_type"`
	Description   string   `json:"description,omitempty"`
	ValidValues   []string `json:"valid_values,omitempty"`
	Relationships []string `json:"relationships,omitempty"`

	Source  EntrySource `json:"source"`
	Version int         `json:"version"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DedupKey returns the case-insensitive trimmed (table, column) key used for
// uniqueness and merging.
func (e *DictionaryEntry) DedupKey() string {
	return EntryKey(e.TableName, e.ColumnName)
}

// EntryKey builds the canonical dedup key for a (table, column) pair.
func EntryKey(tableName, columnName string) string {
	return strings.ToLower(strings.TrimSpace(tableName)) + "\x00" + strings.ToLower(strings.TrimSpace(columnName))
}

// FieldChange captures one field's old and new value inside a history diff.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// FieldDiff maps field names to their change. Stored as JSONB.
type FieldDiff map[string]FieldChange

// Scan implements sql.Scanner for reading JSONB from the database.
func (d *FieldDiff) Scan(value interface{}) error {
	if value == nil {
		*d = FieldDiff{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*d = FieldDiff{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (d FieldDiff) Value() (interface{}, error) {
	return json.Marshal(d)
}

// HistoryEntry is one append-only audit record for a dictionary entry
// mutation. History entries are never updated or deleted.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	EntryID   uuid.UUID `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	FieldDiff FieldDiff `json:"field_diff"`
}
