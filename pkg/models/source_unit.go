package models

// Language identifies the programming language of a source unit.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageSQL        Language = "sql"
	LanguageUnknown    Language = "unknown"
)

// SizeClass buckets source units by size for prompt budgeting.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"  // <= 4 KiB
	SizeMedium SizeClass = "medium" // <= 64 KiB
	SizeLarge  SizeClass = "large"
)

const (
	sizeSmallMax  = 4 * 1024
	sizeMediumMax = 64 * 1024
)

// SourceUnit is the canonical form of one piece of source text submitted for
// analysis. It is immutable once created and lives only for the duration of
// a single analysis request; it is never persisted.
type SourceUnit struct {
	Content        string
	Language       Language
	OriginFilename string // empty for raw-text submissions
	SizeBytes      int
}

// SizeClass returns the size bucket for this unit.
func (u *SourceUnit) SizeClass() SizeClass {
	switch {
	case u.SizeBytes <= sizeSmallMax:
		return SizeSmall
	case u.SizeBytes <= sizeMediumMax:
		return SizeMedium
	default:
		return SizeLarge
	}
}
