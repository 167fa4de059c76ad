// Package structural implements the static pre-analysis pass. It runs a
// lightweight language-specific scan over a SourceUnit and produces
// candidate identifiers and notable code spans. The scan is a pure function
// of the input text and never fails: unrecognizable input yields empty
// hints, not an error.
package structural

import (
	"regexp"
	"strings"

	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

// MaxIdentifiers caps candidate identifiers to bound downstream prompt size.
const MaxIdentifiers = 200

// Analyze scans a source unit and extracts structural hints.
func Analyze(unit *models.SourceUnit) *models.StructuralHints {
	if unit == nil || strings.TrimSpace(unit.Content) == "" {
		return &models.StructuralHints{}
	}

	switch unit.Language {
	case models.LanguageSQL:
		return scanSQL(unit.Content)
	case models.LanguagePython:
		return scanPython(unit.Content)
	case models.LanguageJavaScript, models.LanguageTypeScript:
		return scanJavaScript(unit.Content)
	default:
		return scanGeneric(unit.Content)
	}
}

// identifierSet collects identifiers deduplicated case-insensitively while
// preserving first-seen order.
type identifierSet struct {
	seen  map[string]struct{}
	order []string
}

func newIdentifierSet() *identifierSet {
	return &identifierSet{seen: map[string]struct{}{}}
}

func (s *identifierSet) add(name string) {
	name = cleanIdentifier(name)
	if name == "" || len(s.order) >= MaxIdentifiers {
		return
	}
	key := strings.ToLower(name)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, name)
}

func cleanIdentifier(name string) string {
	return strings.Trim(strings.TrimSpace(name), "`\"'[]")
}

var (
	createTablePattern = regexp.MustCompile(`(?i)create\s+table\s+(?:if\s+not\s+exists\s+)?([\w."` + "`" + `]+)\s*\(`)

	// Constraint-definition keywords that start a non-column line inside a
	// CREATE TABLE body.
	sqlConstraintKeywords = map[string]bool{
		"primary": true, "foreign": true, "unique": true, "constraint": true,
		"check": true, "key": true, "index": true, "references": true,
	}
)

// scanSQL extracts table names and column names from CREATE TABLE
// statements. Parsing is regex-plus-depth-tracking rather than a full SQL
// grammar; malformed DDL degrades to the generic identifier scan.
func scanSQL(text string) *models.StructuralHints {
	ids := newIdentifierSet()
	var snippets []models.CodeSpan
	var tables []models.HintTable

	matches := createTablePattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return scanGeneric(text)
	}

	for _, m := range matches {
		tableName := text[m[2]:m[3]]
		// Strip schema qualifier: "public.users" -> "users"
		if dot := strings.LastIndex(tableName, "."); dot != -1 {
			tableName = tableName[dot+1:]
		}
		ids.add(tableName)
		table := models.HintTable{Name: cleanIdentifier(tableName)}

		// The regex ends at the opening paren of the column list.
		bodyStart := m[1] - 1
		body, end, ok := balancedParen(text, bodyStart)
		if !ok {
			continue
		}

		for _, def := range splitTopLevel(body) {
			fields := strings.Fields(strings.TrimSpace(def))
			if len(fields) == 0 {
				continue
			}
			first := strings.ToLower(strings.Trim(fields[0], "`\"[]"))
			if sqlConstraintKeywords[first] {
				continue
			}
			ids.add(fields[0])
			if name := cleanIdentifier(fields[0]); name != "" {
				table.Columns = append(table.Columns, models.HintColumn{
					Name:     name,
					DataType: columnType(fields),
				})
			}
		}

		if table.Name != "" {
			tables = append(tables, table)
		}
		snippets = append(snippets, models.CodeSpan{
			StartLine: lineOf(text, m[0]),
			EndLine:   lineOf(text, end),
			Text:      text[m[0] : end+1],
		})
	}

	return &models.StructuralHints{
		CandidateIdentifiers: ids.order,
		CandidateSnippets:    snippets,
		Tables:               tables,
	}
}

// sqlTypeTerminators end the data-type portion of a column definition.
var sqlTypeTerminators = map[string]bool{
	"not": true, "null": true, "default": true, "primary": true,
	"unique": true, "references": true, "check": true, "constraint": true,
	"generated": true,
}

// columnType extracts the data type from a tokenized column definition:
// everything after the name up to the first constraint keyword.
func columnType(fields []string) string {
	var parts []string
	for _, f := range fields[1:] {
		if sqlTypeTerminators[strings.ToLower(f)] {
			break
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

// balancedParen returns the contents of the parenthesized region starting at
// open (which must index a '('), the index of the matching ')', and whether
// a balanced region was found. String literals are skipped so quoted parens
// do not affect depth.
func balancedParen(s string, open int) (string, int, bool) {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return "", 0, false
	}

	depth := 0
	inString := byte(0)
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[open+1 : i], i, true
			}
		}
	}
	return "", 0, false
}

// splitTopLevel splits a column-definition list by commas, respecting nested
// parentheses (types like NUMERIC(10,2) and CHECK constraints).
func splitTopLevel(body string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range body {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func lineOf(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}

var (
	pythonClassPattern = regexp.MustCompile(`(?m)^\s*class\s+(\w+)`)
	pythonDefPattern   = regexp.MustCompile(`(?m)^\s*def\s+(\w+)`)
	pythonFieldPattern = regexp.MustCompile(`(?m)^\s+(\w+)\s*[:=]`)
	pythonTableName    = regexp.MustCompile(`__tablename__\s*=\s*['"](\w+)['"]`)
)

// scanPython extracts class, function, and annotated-field names. SQLAlchemy
// __tablename__ assignments are picked up so ORM models surface their actual
// table names.
func scanPython(text string) *models.StructuralHints {
	ids := newIdentifierSet()
	var snippets []models.CodeSpan

	for _, m := range pythonTableName.FindAllStringSubmatch(text, -1) {
		ids.add(m[1])
	}
	classMatches := pythonClassPattern.FindAllStringSubmatchIndex(text, -1)
	for _, m := range classMatches {
		ids.add(text[m[2]:m[3]])
		snippets = append(snippets, classHeadSpan(text, m[0]))
	}
	for _, m := range pythonDefPattern.FindAllStringSubmatch(text, -1) {
		if !strings.HasPrefix(m[1], "__") {
			ids.add(m[1])
		}
	}
	for _, m := range pythonFieldPattern.FindAllStringSubmatch(text, -1) {
		if !strings.HasPrefix(m[1], "_") && !pythonKeywords[m[1]] {
			ids.add(m[1])
		}
	}

	return &models.StructuralHints{
		CandidateIdentifiers: ids.order,
		CandidateSnippets:    snippets,
		Tables:               pythonModelTables(text, classMatches),
	}
}

// pythonModelTables associates ORM model fields with their declared table.
// Only classes carrying __tablename__ qualify; a class body runs until the
// next class declaration.
func pythonModelTables(text string, classMatches [][]int) []models.HintTable {
	var tables []models.HintTable

	for i, m := range classMatches {
		bodyEnd := len(text)
		if i+1 < len(classMatches) {
			bodyEnd = classMatches[i+1][0]
		}
		body := text[m[1]:bodyEnd]

		name := pythonTableName.FindStringSubmatch(body)
		if name == nil {
			continue
		}

		table := models.HintTable{Name: name[1]}
		seen := map[string]struct{}{}
		for _, f := range pythonFieldPattern.FindAllStringSubmatch(body, -1) {
			field := f[1]
			if strings.HasPrefix(field, "_") || pythonKeywords[field] {
				continue
			}
			key := strings.ToLower(field)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			table.Columns = append(table.Columns, models.HintColumn{Name: field})
		}
		if len(table.Columns) > 0 {
			tables = append(tables, table)
		}
	}

	return tables
}

var pythonKeywords = map[string]bool{
	"if": true, "else": true, "elif": true, "for": true, "while": true,
	"return": true, "pass": true, "with": true, "try": true, "except": true,
	"raise": true, "import": true, "from": true, "as": true, "assert": true,
}

var (
	jsClassPattern     = regexp.MustCompile(`(?m)\bclass\s+(\w+)`)
	jsFunctionPattern  = regexp.MustCompile(`(?m)\bfunction\s+(\w+)`)
	jsInterfacePattern = regexp.MustCompile(`(?m)\b(?:interface|type|enum)\s+(\w+)`)
	jsConstPattern     = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)`)
	jsPropertyPattern  = regexp.MustCompile(`(?m)^\s+(\w+)\s*[?]?\s*:\s*[\w\[\]<>|'" ]+[;,]?\s*$`)
)

// scanJavaScript covers both JavaScript and TypeScript declarations.
func scanJavaScript(text string) *models.StructuralHints {
	ids := newIdentifierSet()
	var snippets []models.CodeSpan

	for _, m := range jsClassPattern.FindAllStringSubmatchIndex(text, -1) {
		ids.add(text[m[2]:m[3]])
		snippets = append(snippets, classHeadSpan(text, m[0]))
	}
	for _, m := range jsInterfacePattern.FindAllStringSubmatchIndex(text, -1) {
		ids.add(text[m[2]:m[3]])
		snippets = append(snippets, classHeadSpan(text, m[0]))
	}
	for _, m := range jsFunctionPattern.FindAllStringSubmatch(text, -1) {
		ids.add(m[1])
	}
	for _, m := range jsConstPattern.FindAllStringSubmatch(text, -1) {
		ids.add(m[1])
	}
	for _, m := range jsPropertyPattern.FindAllStringSubmatch(text, -1) {
		ids.add(m[1])
	}

	return &models.StructuralHints{
		CandidateIdentifiers: ids.order,
		CandidateSnippets:    snippets,
	}
}

// classHeadSpan captures the first few lines of a declaration as a snippet.
func classHeadSpan(text string, offset int) models.CodeSpan {
	start := lineOf(text, offset)
	lines := strings.Split(text[offset:], "\n")
	count := len(lines)
	if count > 5 {
		count = 5
	}
	return models.CodeSpan{
		StartLine: start,
		EndLine:   start + count - 1,
		Text:      strings.Join(lines[:count], "\n"),
	}
}

var genericIdentifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{2,}`)

var genericStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "not": true, "var": true,
	"int": true, "new": true, "this": true, "that": true, "with": true,
	"from": true, "where": true, "select": true, "into": true, "values": true,
	"null": true, "true": true, "false": true, "return": true, "function": true,
}

// scanGeneric is the unknown-language fallback: every token matching
// identifier syntax, deduplicated, capped at MaxIdentifiers.
func scanGeneric(text string) *models.StructuralHints {
	ids := newIdentifierSet()
	for _, tok := range genericIdentifierPattern.FindAllString(text, -1) {
		if genericStopwords[strings.ToLower(tok)] {
			continue
		}
		ids.add(tok)
		if len(ids.order) >= MaxIdentifiers {
			break
		}
	}
	return &models.StructuralHints{CandidateIdentifiers: ids.order}
}
