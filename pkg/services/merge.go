package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/models"
	"github.com/pankajg09/data-dictionary-system/pkg/repositories"
)

// MergeOutcome is the result of planning a merge: the change set to apply
// and the count of candidates that matched their stored entry exactly.
type MergeOutcome struct {
	Changes   *repositories.ChangeSet
	Unchanged int
}

// Merger turns an analysis result into a change set against the current
// dictionary. Merging is pure planning: it never touches storage, so a plan
// can be inspected or discarded without side effects.
//
// Merge policy:
//   - New (table, column) pairs become creates.
//   - Structural hints are authoritative for pairs the static scan extracted
//     with certainty: a column the model omitted still becomes an entry, and
//     a scanned type fills a type the model left blank.
//   - For entries previously written by analysis, fresh analysis output wins
//     on descriptive fields; empty output leaves the stored value alone.
//   - Manually edited entries are pinned: analysis only fills fields that
//     are still empty and never overwrites a human's text.
//   - A candidate producing an empty diff is reported unchanged, so
//     re-running the same analysis is a no-op.
type Merger struct {
	logger *zap.Logger
}

// NewMerger creates a Merger.
func NewMerger(logger *zap.Logger) *Merger {
	return &Merger{logger: logger.Named("merger")}
}

// Plan computes the change set for one analysis run. hints carries the
// static scan's table/column pairs and may be nil; existing holds the
// currently stored entries for the tables in play; analysisID is stamped on
// created entries so they can be traced back to their run.
func (m *Merger) Plan(result *models.AnalysisResult, hints *models.StructuralHints, existing []*models.DictionaryEntry, analysisID uuid.UUID) *MergeOutcome {
	existingByKey := make(map[string]*models.DictionaryEntry, len(existing))
	for _, entry := range existing {
		existingByKey[entry.DedupKey()] = entry
	}

	candidates := m.flatten(result)
	candidates = m.addHintCandidates(candidates, hints)
	m.inferForeignKeys(candidates, result, existing)

	outcome := &MergeOutcome{Changes: &repositories.ChangeSet{}}

	for _, candidate := range candidates {
		stored, ok := existingByKey[candidate.DedupKey()]
		if !ok {
			id := analysisID
			candidate.AnalysisID = &id
			candidate.Source = models.SourceAnalysis
			outcome.Changes.Creates = append(outcome.Changes.Creates, candidate)
			continue
		}

		merged, diff := m.mergeInto(stored, candidate)
		if len(diff) == 0 {
			outcome.Unchanged++
			continue
		}
		outcome.Changes.Updates = append(outcome.Changes.Updates, &repositories.EntryUpdate{
			Entry:       merged,
			ReadVersion: stored.Version,
			Diff:        diff,
		})
	}

	m.logger.Debug("merge planned",
		zap.Int("creates", len(outcome.Changes.Creates)),
		zap.Int("updates", len(outcome.Changes.Updates)),
		zap.Int("unchanged", outcome.Unchanged))

	return outcome
}

// flatten converts the result's tables into candidate entries, one per
// (table, column) pair. Duplicate pairs collapse into one candidate; the
// first occurrence wins and later ones only fill fields it left empty.
func (m *Merger) flatten(result *models.AnalysisResult) []*models.DictionaryEntry {
	var candidates []*models.DictionaryEntry
	byKey := make(map[string]*models.DictionaryEntry)

	for _, table := range result.Tables {
		if strings.TrimSpace(table.Name) == "" {
			continue
		}
		for _, column := range table.Columns {
			if strings.TrimSpace(column.Name) == "" {
				continue
			}
			key := models.EntryKey(table.Name, column.Name)

			if seen, ok := byKey[key]; ok {
				fillGaps(seen, &column)
				continue
			}

			candidate := &models.DictionaryEntry{
				TableName:     strings.TrimSpace(table.Name),
				ColumnName:    strings.TrimSpace(column.Name),
				DataType:      strings.TrimSpace(column.DataType),
				Description:   strings.TrimSpace(column.Description),
				ValidValues:   column.ValidValues,
				Relationships: column.Relationships,
			}
			byKey[key] = candidate
			candidates = append(candidates, candidate)
		}
	}

	return candidates
}

// addHintCandidates folds the static scan's table/column pairs into the
// candidate set. A scanned pair the model did not return becomes its own
// candidate, and a scanned type fills a candidate type the model left blank.
func (m *Merger) addHintCandidates(candidates []*models.DictionaryEntry, hints *models.StructuralHints) []*models.DictionaryEntry {
	if hints == nil || len(hints.Tables) == 0 {
		return candidates
	}

	byKey := make(map[string]*models.DictionaryEntry, len(candidates))
	for _, candidate := range candidates {
		byKey[candidate.DedupKey()] = candidate
	}

	synthesized := 0
	for _, table := range hints.Tables {
		tableName := strings.TrimSpace(table.Name)
		if tableName == "" {
			continue
		}
		for _, column := range table.Columns {
			columnName := strings.TrimSpace(column.Name)
			if columnName == "" {
				continue
			}
			key := models.EntryKey(tableName, columnName)

			if seen, ok := byKey[key]; ok {
				if seen.DataType == "" {
					seen.DataType = strings.TrimSpace(column.DataType)
				}
				continue
			}

			candidate := &models.DictionaryEntry{
				TableName:  tableName,
				ColumnName: columnName,
				DataType:   strings.TrimSpace(column.DataType),
			}
			byKey[key] = candidate
			candidates = append(candidates, candidate)
			synthesized++
		}
	}

	if synthesized > 0 {
		m.logger.Debug("hint-only columns synthesized", zap.Int("count", synthesized))
	}

	return candidates
}

func fillGaps(target *models.DictionaryEntry, column *models.AnalyzedColumn) {
	if target.DataType == "" {
		target.DataType = strings.TrimSpace(column.DataType)
	}
	if target.Description == "" {
		target.Description = strings.TrimSpace(column.Description)
	}
	if len(target.ValidValues) == 0 {
		target.ValidValues = column.ValidValues
	}
	if len(target.Relationships) == 0 {
		target.Relationships = column.Relationships
	}
}

// inferForeignKeys adds "table.id" relationships for columns following the
// <singular>_id naming convention when the pluralized table is known, either
// from this result or from the stored dictionary. Inferred links never
// replace relationships the analysis stated explicitly.
func (m *Merger) inferForeignKeys(candidates []*models.DictionaryEntry, result *models.AnalysisResult, existing []*models.DictionaryEntry) {
	knownTables := make(map[string]string)
	for _, table := range result.Tables {
		knownTables[strings.ToLower(strings.TrimSpace(table.Name))] = strings.TrimSpace(table.Name)
	}
	for _, candidate := range candidates {
		key := strings.ToLower(candidate.TableName)
		if _, ok := knownTables[key]; !ok {
			knownTables[key] = candidate.TableName
		}
	}
	for _, entry := range existing {
		key := strings.ToLower(strings.TrimSpace(entry.TableName))
		if _, ok := knownTables[key]; !ok {
			knownTables[key] = strings.TrimSpace(entry.TableName)
		}
	}

	for _, candidate := range candidates {
		if len(candidate.Relationships) > 0 {
			continue
		}
		column := strings.ToLower(candidate.ColumnName)
		if !strings.HasSuffix(column, "_id") || len(column) <= len("_id") {
			continue
		}

		base := strings.TrimSuffix(column, "_id")
		target, ok := knownTables[strings.ToLower(inflection.Plural(base))]
		if !ok {
			// Some schemas keep singular table names.
			target, ok = knownTables[base]
		}
		if !ok || strings.EqualFold(target, candidate.TableName) {
			continue
		}

		candidate.Relationships = []string{target + ".id"}
		result.Relationships = append(result.Relationships, models.Relationship{
			FromTable: candidate.TableName,
			ToTable:   target,
			Kind:      models.RelationshipForeignKey,
		})
	}
}

// mergeInto applies the merge policy to one stored entry and returns the
// merged copy plus the field diff. An empty diff means nothing changed.
func (m *Merger) mergeInto(stored, candidate *models.DictionaryEntry) (*models.DictionaryEntry, models.FieldDiff) {
	merged := *stored
	merged.ValidValues = append([]string(nil), stored.ValidValues...)
	merged.Relationships = append([]string(nil), stored.Relationships...)

	pinned := stored.Source == models.SourceManual
	diff := models.FieldDiff{}

	apply := func(field, oldValue, newValue string, set func(string)) {
		newValue = strings.TrimSpace(newValue)
		if newValue == "" || newValue == oldValue {
			return
		}
		if pinned && oldValue != "" {
			return
		}
		set(newValue)
		diff[field] = models.FieldChange{Old: oldValue, New: newValue}
	}

	apply("data_type", stored.DataType, candidate.DataType, func(v string) { merged.DataType = v })
	apply("description", stored.Description, candidate.Description, func(v string) { merged.Description = v })

	applyList := func(field string, oldValues, newValues []string, set func([]string)) {
		if len(newValues) == 0 || equalStringSets(oldValues, newValues) {
			return
		}
		if pinned && len(oldValues) > 0 {
			return
		}
		set(newValues)
		diff[field] = models.FieldChange{
			Old: strings.Join(oldValues, ", "),
			New: strings.Join(newValues, ", "),
		}
	}

	applyList("valid_values", stored.ValidValues, candidate.ValidValues, func(v []string) { merged.ValidValues = v })
	applyList("relationships", stored.Relationships, candidate.Relationships, func(v []string) { merged.Relationships = v })

	return &merged, diff
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[strings.ToLower(strings.TrimSpace(v))]++
	}
	for _, v := range b {
		key := strings.ToLower(strings.TrimSpace(v))
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}
