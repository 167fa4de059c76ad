package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

func TestBuildAnalysisPrompt_Deterministic(t *testing.T) {
	unit := &models.SourceUnit{
		Content:        "CREATE TABLE users (id INTEGER);",
		Language:       models.LanguageSQL,
		OriginFilename: "schema.sql",
	}
	hints := &models.StructuralHints{CandidateIdentifiers: []string{"users", "id"}}

	first := BuildAnalysisPrompt(unit, hints, DefaultBudget())
	second := BuildAnalysisPrompt(unit, hints, DefaultBudget())
	assert.Equal(t, first, second)
}

func TestBuildAnalysisPrompt_Content(t *testing.T) {
	unit := &models.SourceUnit{
		Content:        "CREATE TABLE users (id INTEGER);",
		Language:       models.LanguageSQL,
		OriginFilename: "schema.sql",
	}
	hints := &models.StructuralHints{CandidateIdentifiers: []string{"users", "id"}}

	prompt := BuildAnalysisPrompt(unit, hints, DefaultBudget())

	assert.Contains(t, prompt, "Language: sql")
	assert.Contains(t, prompt, "File: schema.sql")
	assert.Contains(t, prompt, "users, id")
	assert.Contains(t, prompt, "CREATE TABLE users (id INTEGER);")
	assert.Contains(t, prompt, `"tables"`)
	assert.Contains(t, prompt, "Return ONLY the JSON")
}

func TestBuildAnalysisPrompt_NoHintsSection(t *testing.T) {
	unit := &models.SourceUnit{Content: "x = 1", Language: models.LanguageUnknown}

	prompt := BuildAnalysisPrompt(unit, &models.StructuralHints{}, DefaultBudget())
	assert.NotContains(t, prompt, "Identifiers found by static analysis")

	prompt = BuildAnalysisPrompt(unit, nil, DefaultBudget())
	assert.NotContains(t, prompt, "Identifiers found by static analysis")
}

func TestTruncateHeadTail(t *testing.T) {
	budget := Budget{MaxSourceChars: 100, HeadChars: 60, TailChars: 20}

	short := strings.Repeat("a", 100)
	assert.Equal(t, short, TruncateHeadTail(short, budget))

	long := strings.Repeat("h", 60) + strings.Repeat("m", 500) + strings.Repeat("t", 20)
	truncated := TruncateHeadTail(long, budget)

	assert.True(t, strings.HasPrefix(truncated, strings.Repeat("h", 60)))
	assert.True(t, strings.HasSuffix(truncated, strings.Repeat("t", 20)))
	assert.Contains(t, truncated, "[elided 500 characters]")
	assert.Less(t, len(truncated), len(long))
}

func TestBuildAnalysisPrompt_LargeSourceTruncated(t *testing.T) {
	head := "CREATE TABLE first_table (id INTEGER);\n"
	tail := "\nCREATE TABLE last_table (id INTEGER);"
	unit := &models.SourceUnit{
		Content:  head + strings.Repeat("-- padding\n", 5000) + tail,
		Language: models.LanguageSQL,
	}

	prompt := BuildAnalysisPrompt(unit, nil, DefaultBudget())

	require.Contains(t, prompt, "first_table")
	assert.Contains(t, prompt, "last_table", "tail of the file must stay visible")
	assert.Contains(t, prompt, "elided")
}

func TestBudgetFor(t *testing.T) {
	b := BudgetFor(8000)
	assert.Equal(t, 8000, b.MaxSourceChars)
	assert.Equal(t, 6000, b.HeadChars)
	assert.Equal(t, 2000, b.TailChars)

	assert.Equal(t, DefaultBudget(), BudgetFor(0))
}
