package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryKey(t *testing.T) {
	assert.Equal(t, EntryKey("orders", "id"), EntryKey("  ORDERS ", "Id"))
	assert.NotEqual(t, EntryKey("orders", "id"), EntryKey("orders", "user_id"))

	entry := &DictionaryEntry{TableName: "Users", ColumnName: " Email "}
	assert.Equal(t, EntryKey("users", "email"), entry.DedupKey())
}

func TestSourceUnit_SizeClass(t *testing.T) {
	assert.Equal(t, SizeSmall, (&SourceUnit{SizeBytes: 100}).SizeClass())
	assert.Equal(t, SizeSmall, (&SourceUnit{SizeBytes: 4 * 1024}).SizeClass())
	assert.Equal(t, SizeMedium, (&SourceUnit{SizeBytes: 4*1024 + 1}).SizeClass())
	assert.Equal(t, SizeLarge, (&SourceUnit{SizeBytes: 64*1024 + 1}).SizeClass())
}

func TestAnalysisStatus_IsTerminal(t *testing.T) {
	assert.False(t, AnalysisPending.IsTerminal())
	assert.False(t, AnalysisInProgress.IsTerminal())
	assert.True(t, AnalysisSucceeded.IsTerminal())
	assert.True(t, AnalysisFailed.IsTerminal())
}

func TestNormalizeRelationshipKind(t *testing.T) {
	tests := []struct {
		input string
		want  RelationshipKind
	}{
		{"foreign_key", RelationshipForeignKey},
		{"fk", RelationshipForeignKey},
		{"belongs_to", RelationshipForeignKey},
		{"1:1", RelationshipOneToOne},
		{"one-to-many", RelationshipOneToMany},
		{"has_many", RelationshipOneToMany},
		{"n:m", RelationshipManyToMany},
		{"many_to_many", RelationshipManyToMany},
		{"", RelationshipUnknown},
		{"something else", RelationshipUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRelationshipKind(tt.input), tt.input)
	}
}

func TestFieldDiff_RoundTrip(t *testing.T) {
	diff := FieldDiff{
		"description": {Old: "a", New: "b"},
	}

	value, err := diff.Value()
	require.NoError(t, err)

	var scanned FieldDiff
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, diff, scanned)
}

func TestFieldDiff_ScanNil(t *testing.T) {
	var scanned FieldDiff
	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
}

func TestAnalysisResult_ColumnCount(t *testing.T) {
	result := &AnalysisResult{
		Tables: []AnalyzedTable{
			{Name: "users", Columns: []AnalyzedColumn{{Name: "id"}, {Name: "email"}}},
			{Name: "orders", Columns: []AnalyzedColumn{{Name: "id"}}},
		},
	}
	assert.Equal(t, 3, result.ColumnCount())
	assert.Equal(t, 0, (&AnalysisResult{}).ColumnCount())
}
