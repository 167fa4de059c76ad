package models

// AnalyzedColumn is one column of a table as described by the analysis.
type AnalyzedColumn struct {
	Name          string   `json:"name"`
	DataType      string   `json:"data_type"`
	Description   string   `json:"description,omitempty"`
	ValidValues   []string `json:"valid_values,omitempty"`
	Relationships []string `json:"relationships,omitempty"` // "table.column" references
}

// AnalyzedTable is one table-like structure found in the source.
type AnalyzedTable struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Columns     []AnalyzedColumn `json:"columns"`
}

// AnalyzedSnippet is a notable code excerpt flagged by the analysis.
type AnalyzedSnippet struct {
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// AnalysisResult is the schema-valid structured output of one analysis run,
// after tolerant parsing and coercion. Degraded marks results synthesized by
// the regex fallback rather than structured parsing.
type AnalysisResult struct {
	Tables        []AnalyzedTable   `json:"tables"`
	Relationships []Relationship    `json:"relationships,omitempty"`
	CodeSnippets  []AnalyzedSnippet `json:"code_snippets,omitempty"`
	Summary       string            `json:"summary,omitempty"`

	Degraded bool     `json:"degraded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ColumnCount returns the total number of columns across all tables.
func (r *AnalysisResult) ColumnCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Columns)
	}
	return n
}
