package prompts

import (
	"fmt"
	"strings"

	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

// Budget bounds the rendered prompt. MaxSourceChars applies to the embedded
// source text; HeadChars and TailChars control head+tail truncation so both
// declarations at the top of a file and usage near the end stay visible.
type Budget struct {
	MaxSourceChars int
	HeadChars      int
	TailChars      int
}

// DefaultBudget keeps the embedded source under ~16k characters.
func DefaultBudget() Budget {
	return Budget{
		MaxSourceChars: 16000,
		HeadChars:      12000,
		TailChars:      4000,
	}
}

// BudgetFor builds a Budget from a total source character limit, splitting
// it 3:1 between head and tail.
func BudgetFor(maxSourceChars int) Budget {
	if maxSourceChars <= 0 {
		return DefaultBudget()
	}
	tail := maxSourceChars / 4
	return Budget{
		MaxSourceChars: maxSourceChars,
		HeadChars:      maxSourceChars - tail,
		TailChars:      tail,
	}
}

// TruncateHeadTail bounds s to the budget, keeping the first HeadChars and
// last TailChars and eliding the middle with a marker. Same input, same
// output: no timestamps or random content is embedded.
func TruncateHeadTail(s string, b Budget) string {
	if len(s) <= b.MaxSourceChars || b.HeadChars+b.TailChars >= len(s) {
		return s
	}
	elided := len(s) - b.HeadChars - b.TailChars
	return s[:b.HeadChars] +
		fmt.Sprintf("\n... [elided %d characters] ...\n", elided) +
		s[len(s)-b.TailChars:]
}

// BuildAnalysisPrompt renders the provider-agnostic data dictionary
// extraction prompt from a source unit and structural hints. The output is
// deterministic for identical inputs.
func BuildAnalysisPrompt(unit *models.SourceUnit, hints *models.StructuralHints, budget Budget) string {
	var prompt strings.Builder

	prompt.WriteString("# Data Dictionary Extraction\n\n")
	prompt.WriteString("Analyze the source below and extract a data dictionary: ")
	prompt.WriteString("tables (or table-like structures such as ORM models and record types), their columns with data types and descriptions, relationships between tables, and notable code excerpts.\n\n")

	prompt.WriteString(fmt.Sprintf("Language: %s\n", unit.Language))
	if unit.OriginFilename != "" {
		prompt.WriteString(fmt.Sprintf("File: %s\n", unit.OriginFilename))
	}
	prompt.WriteString("\n")

	if hints != nil && len(hints.CandidateIdentifiers) > 0 {
		prompt.WriteString("## Identifiers found by static analysis\n\n")
		prompt.WriteString("A static scan found these candidate table/column/symbol names. Confirm, correct, or extend them; do not invent tables that have no basis in the source.\n\n")
		prompt.WriteString(strings.Join(hints.CandidateIdentifiers, ", "))
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("## Source\n\n```")
	prompt.WriteString(string(unit.Language))
	prompt.WriteString("\n")
	prompt.WriteString(TruncateHeadTail(unit.Content, budget))
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `tables`: Array of tables\n")
	prompt.WriteString("  - `name`: Table name\n")
	prompt.WriteString("  - `description`: What the table represents (1 sentence)\n")
	prompt.WriteString("  - `columns`: Array of columns\n")
	prompt.WriteString("    - `name`, `data_type`, `description`\n")
	prompt.WriteString("    - `valid_values`: Array of allowed values if the column is enum-like (omit otherwise)\n")
	prompt.WriteString("    - `relationships`: Array of \"table.column\" references if the column is a foreign key (omit otherwise)\n")
	prompt.WriteString("- `relationships`: Array of `{from_table, to_table, kind}` where kind is one of \"one_to_one\", \"one_to_many\", \"many_to_many\", \"foreign_key\", \"unknown\"\n")
	prompt.WriteString("- `code_snippets`: Array of `{file, line, code, description}` for excerpts worth documenting (may be empty)\n")
	prompt.WriteString("- `summary`: 2-3 sentence documentation summary of the data model\n\n")

	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "tables": [
    {
      "name": "orders",
      "description": "Customer orders with lifecycle status.",
      "columns": [
        {"name": "id", "data_type": "INTEGER", "description": "Primary key."},
        {"name": "user_id", "data_type": "INTEGER", "description": "Owning user.", "relationships": ["users.id"]},
        {"name": "status", "data_type": "TEXT", "description": "Order state.", "valid_values": ["pending", "shipped"]}
      ]
    }
  ],
  "relationships": [
    {"from_table": "orders", "to_table": "users", "kind": "foreign_key"}
  ],
  "code_snippets": [],
  "summary": "Order tracking schema keyed by user."
}
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildAnalysisSystemMessage returns the system message for the LLM.
func BuildAnalysisSystemMessage() string {
	return `You are a code analysis expert. You extract data dictionary information (tables, columns, types, descriptions, relationships) from source code and SQL. You respond with strict JSON only.`
}
