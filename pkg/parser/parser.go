// Package parser turns free-form model output into a schema-valid
// AnalysisResult, or a typed failure. Extraction strategies are tried in a
// fixed order and the first success wins; it never panics on malformed
// input.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/jsonutil"
	"github.com/pankajg09/data-dictionary-system/pkg/logging"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

// UnparsableError reports that no strategy, including degraded regex
// extraction, produced anything usable. Excerpt is bounded for diagnostics;
// the full payload is never carried.
type UnparsableError struct {
	Excerpt string
}

// Error implements the error interface.
func (e *UnparsableError) Error() string {
	return fmt.Sprintf("unparsable model response: %q", e.Excerpt)
}

// Unwrap allows errors.Is(err, apperrors.ErrUnparsableResponse).
func (e *UnparsableError) Unwrap() error {
	return apperrors.ErrUnparsableResponse
}

// Parse extracts a structured analysis result from raw model text.
//
// Strategy order (stop at first success):
//  1. direct JSON parse of the whole text
//  2. contents of a fenced code block
//  3. first balanced top-level {...} or [...] region
//  4. the above re-tried after repairing common malformations (trailing commas)
//  5. regex-based line extraction, marked Degraded
func Parse(raw string) (*models.AnalysisResult, error) {
	trimmed := strings.TrimSpace(stripThinkTags(raw))
	if trimmed == "" {
		return nil, &UnparsableError{Excerpt: ""}
	}

	for _, candidate := range jsonCandidates(trimmed) {
		if result, ok := decodePayload(candidate); ok {
			return result, nil
		}
	}

	repaired := repairJSON(trimmed)
	if repaired != trimmed {
		for _, candidate := range jsonCandidates(repaired) {
			if result, ok := decodePayload(candidate); ok {
				result.Warnings = append(result.Warnings, "response JSON required repair")
				return result, nil
			}
		}
	}

	if result, ok := extractKeyValueLines(trimmed); ok {
		return result, nil
	}

	return nil, &UnparsableError{Excerpt: logging.Excerpt(trimmed, logging.DefaultExcerptLen)}
}

var (
	thinkTagPattern   = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fencedPattern     = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
	trailingComma     = regexp.MustCompile(`,\s*([}\]])`)
	smartQuotePattern = strings.NewReplacer("“", `"`, "”", `"`)
)

func stripThinkTags(s string) string {
	return thinkTagPattern.ReplaceAllString(s, "")
}

// jsonCandidates yields substrings worth handing to the JSON decoder, in
// strategy order: the whole text, each fenced block, then the first balanced
// {...} and [...] regions. Both bracket shapes are always tried; prose like
// "[see below]" ahead of the payload must not mask the object region.
func jsonCandidates(text string) []string {
	candidates := []string{text}

	for _, m := range fencedPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	if region, ok := extractBalanced(text, '{', '}'); ok {
		candidates = append(candidates, region)
	}
	if region, ok := extractBalanced(text, '[', ']'); ok {
		candidates = append(candidates, region)
	}

	return candidates
}

// extractBalanced finds the first balanced region starting with openChar,
// tracking nesting depth and ignoring delimiters inside string literals.
func extractBalanced(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// repairJSON fixes the malformations models produce most often: trailing
// commas before a closing bracket and typographic quotes.
func repairJSON(s string) string {
	s = smartQuotePattern.Replace(s)
	return trailingComma.ReplaceAllString(s, "$1")
}

// ============================================================================
// Wire payload and coercion
// ============================================================================

// Raw wire types keep every field as json.RawMessage so scalar-shape drift
// (numbers for strings, single values for arrays) coerces instead of failing
// the whole decode.
type rawPayload struct {
	Tables        []rawTable        `json:"tables"`
	Relationships []rawRelationship `json:"relationships"`
	CodeSnippets  []rawSnippet      `json:"code_snippets"`
	Summary       json.RawMessage   `json:"summary"`
}

type rawTable struct {
	Name        json.RawMessage `json:"name"`
	Description json.RawMessage `json:"description"`
	Columns     []rawColumn     `json:"columns"`
	// Some model outputs use "fields" for columns.
	Fields []rawColumn `json:"fields"`
}

type rawColumn struct {
	Name          json.RawMessage `json:"name"`
	DataType      json.RawMessage `json:"data_type"`
	Type          json.RawMessage `json:"type"`
	Description   json.RawMessage `json:"description"`
	ValidValues   json.RawMessage `json:"valid_values"`
	Relationships json.RawMessage `json:"relationships"`
}

type rawRelationship struct {
	FromTable json.RawMessage `json:"from_table"`
	ToTable   json.RawMessage `json:"to_table"`
	Kind      json.RawMessage `json:"kind"`
	Type      json.RawMessage `json:"type"`
}

type rawSnippet struct {
	File        json.RawMessage `json:"file"`
	Line        json.RawMessage `json:"line"`
	Code        json.RawMessage `json:"code"`
	Description json.RawMessage `json:"description"`
}

// decodePayload attempts a strict JSON decode of candidate and coerces it
// into the result schema. A bare top-level array is treated as the tables
// array.
func decodePayload(candidate string) (*models.AnalysisResult, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || !json.Valid([]byte(candidate)) {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		// A bare top-level array is treated as the tables array.
		var tables []rawTable
		if err := json.Unmarshal([]byte(candidate), &tables); err != nil || len(tables) == 0 {
			return nil, false
		}
		return coerce(&rawPayload{Tables: tables}), true
	}

	// Valid JSON without any of the expected keys (a bare string, an
	// unrelated object) is not a successful parse.
	if _, ok := fields["tables"]; !ok {
		if _, ok := fields["summary"]; !ok {
			return nil, false
		}
	}

	var payload rawPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, false
	}

	return coerce(&payload), true
}

// coerce validates the wire payload against the result schema. Fields that
// fail coercion are dropped with a recorded warning; an entry missing its
// structurally required name is dropped as a whole, failing only that entry.
func coerce(payload *rawPayload) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Summary: jsonutil.FlexibleString(payload.Summary),
	}

	for i, t := range payload.Tables {
		tableName := strings.TrimSpace(jsonutil.FlexibleString(t.Name))
		if tableName == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("table %d dropped: missing table name", i))
			continue
		}

		columns := t.Columns
		if len(columns) == 0 {
			columns = t.Fields
		}

		table := models.AnalyzedTable{
			Name:        tableName,
			Description: jsonutil.FlexibleString(t.Description),
		}

		for j, c := range columns {
			colName := strings.TrimSpace(jsonutil.FlexibleString(c.Name))
			if colName == "" {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("table %s: column %d dropped: missing column name", tableName, j))
				continue
			}

			dataType := jsonutil.FlexibleString(c.DataType)
			if dataType == "" {
				dataType = jsonutil.FlexibleString(c.Type)
			}

			table.Columns = append(table.Columns, models.AnalyzedColumn{
				Name:          colName,
				DataType:      dataType,
				Description:   jsonutil.FlexibleString(c.Description),
				ValidValues:   jsonutil.FlexibleStringSlice(c.ValidValues),
				Relationships: jsonutil.FlexibleStringSlice(c.Relationships),
			})
		}

		result.Tables = append(result.Tables, table)
	}

	for i, r := range payload.Relationships {
		from := strings.TrimSpace(jsonutil.FlexibleString(r.FromTable))
		to := strings.TrimSpace(jsonutil.FlexibleString(r.ToTable))
		if from == "" || to == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("relationship %d dropped: missing table name", i))
			continue
		}

		kind := jsonutil.FlexibleString(r.Kind)
		if kind == "" {
			kind = jsonutil.FlexibleString(r.Type)
		}

		result.Relationships = append(result.Relationships, models.Relationship{
			FromTable: from,
			ToTable:   to,
			Kind:      models.NormalizeRelationshipKind(kind),
		})
	}

	for _, s := range payload.CodeSnippets {
		code := jsonutil.FlexibleString(s.Code)
		if strings.TrimSpace(code) == "" {
			continue
		}
		result.CodeSnippets = append(result.CodeSnippets, models.AnalyzedSnippet{
			File:        jsonutil.FlexibleString(s.File),
			Line:        jsonutil.FlexibleInt(s.Line),
			Code:        code,
			Description: jsonutil.FlexibleString(s.Description),
		})
	}

	return result
}

// ============================================================================
// Degraded regex extraction
// ============================================================================

var kvPairPattern = regexp.MustCompile(`(?i)\b(table|column|field|type|data_type|description)\s*[:=]\s*([^,;\n]+)`)

// extractKeyValueLines is the last-resort strategy: pull table/column/type/
// description fragments out of prose lines and synthesize a minimal result.
// Output is marked Degraded.
func extractKeyValueLines(text string) (*models.AnalysisResult, bool) {
	tables := map[string]*models.AnalyzedTable{}
	var order []string

	currentTable := ""
	for _, line := range strings.Split(text, "\n") {
		pairs := kvPairPattern.FindAllStringSubmatch(line, -1)
		if pairs == nil {
			continue
		}

		var colName, colType, colDesc string
		for _, p := range pairs {
			key := strings.ToLower(p[1])
			value := strings.TrimSpace(strings.Trim(strings.TrimSpace(p[2]), `"'`+"`"))
			if value == "" {
				continue
			}
			switch key {
			case "table":
				currentTable = value
			case "column", "field":
				colName = value
			case "type", "data_type":
				colType = value
			case "description":
				colDesc = value
			}
		}

		if colName == "" || currentTable == "" {
			continue
		}

		table, ok := tables[currentTable]
		if !ok {
			table = &models.AnalyzedTable{Name: currentTable}
			tables[currentTable] = table
			order = append(order, currentTable)
		}
		table.Columns = append(table.Columns, models.AnalyzedColumn{
			Name:        colName,
			DataType:    colType,
			Description: colDesc,
		})
	}

	if len(order) == 0 {
		return nil, false
	}

	result := &models.AnalysisResult{
		Degraded: true,
		Warnings: []string{"result synthesized by degraded line extraction"},
	}
	for _, name := range order {
		result.Tables = append(result.Tables, *tables[name])
	}
	return result, true
}
