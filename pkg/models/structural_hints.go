package models

import "strings"

// CodeSpan is a region of source text worth flagging, with 1-based line
// numbers.
type CodeSpan struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
}

// HintColumn is one column the static scan attributed to a table with
// certainty: a parsed DDL column definition or an ORM model field. DataType
// is empty when the scan saw the name but not a type.
type HintColumn struct {
	Name     string `json:"name"`
	DataType string `json:"data_type,omitempty"`
}

// HintTable associates scanned columns with the table that declared them.
type HintTable struct {
	Name    string       `json:"name"`
	Columns []HintColumn `json:"columns"`
}

// StructuralHints is the output of the static pre-analysis pass: candidate
// identifiers (table/column/symbol names) and notable code spans. Hints are
// produced once per SourceUnit and discarded after the merge step. An empty
// value is valid; absence of recognizable structure is not an error.
type StructuralHints struct {
	// CandidateIdentifiers is deduplicated and preserves first-seen order.
	CandidateIdentifiers []string   `json:"candidate_identifiers"`
	CandidateSnippets    []CodeSpan `json:"candidate_snippets"`

	// Tables holds the (table, column) pairs the scan extracted with
	// certainty. The merger treats these as authoritative: a pair the model
	// omits still becomes a dictionary entry.
	Tables []HintTable `json:"tables,omitempty"`
}

// HasIdentifier reports whether name was found by the static scan
// (case-insensitive).
func (h *StructuralHints) HasIdentifier(name string) bool {
	for _, id := range h.CandidateIdentifiers {
		if strings.EqualFold(id, name) {
			return true
		}
	}
	return false
}
