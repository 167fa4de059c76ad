// Package source turns uploaded files or raw text into canonical SourceUnits.
// File-type rejection happens here, before the pipeline is ever invoked.
package source

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/models"
)

// extensionLanguages is the fixed allow-list of accepted upload extensions.
var extensionLanguages = map[string]models.Language{
	".py":  models.LanguagePython,
	".js":  models.LanguageJavaScript,
	".jsx": models.LanguageJavaScript,
	".ts":  models.LanguageTypeScript,
	".tsx": models.LanguageTypeScript,
	".sql": models.LanguageSQL,
	".ddl": models.LanguageSQL,
	".txt": models.LanguageUnknown,
}

// AllowedExtensions returns the upload allow-list, sorted so error messages
// are stable, for error messages and handler validation.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(extensionLanguages))
	for ext := range extensionLanguages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ParseLanguage maps a declared language string onto the known set.
// Unrecognized or empty values yield LanguageUnknown.
func ParseLanguage(s string) models.Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return models.LanguagePython
	case "javascript", "js":
		return models.LanguageJavaScript
	case "typescript", "ts":
		return models.LanguageTypeScript
	case "sql", "ddl":
		return models.LanguageSQL
	default:
		return models.LanguageUnknown
	}
}

// Normalize builds a SourceUnit from raw content plus an optional filename
// and declared language. Declared language wins over extension, extension
// over content sniffing. A filename with a disallowed extension is rejected
// with apperrors.ErrUnsupportedFileType.
func Normalize(content []byte, filename, declaredLanguage string) (*models.SourceUnit, error) {
	text := strings.TrimRight(string(content), "\x00")
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptySource
	}

	var extLang models.Language
	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		lang, ok := extensionLanguages[ext]
		if !ok {
			return nil, fmt.Errorf("%w: %q (allowed: %s)",
				apperrors.ErrUnsupportedFileType, ext, strings.Join(AllowedExtensions(), " "))
		}
		extLang = lang
	}

	lang := ParseLanguage(declaredLanguage)
	if lang == models.LanguageUnknown && extLang != "" {
		lang = extLang
	}
	if lang == models.LanguageUnknown {
		lang = sniffLanguage(text)
	}

	return &models.SourceUnit{
		Content:        text,
		Language:       lang,
		OriginFilename: filename,
		SizeBytes:      len(text),
	}, nil
}

// sniffLanguage guesses the language from content. The guess only has to be
// good enough to pick a structural scan; the pre-analyzer tolerates
// misclassification by falling back to the generic identifier scan.
func sniffLanguage(text string) models.Language {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "create table"),
		strings.Contains(lower, "alter table"),
		strings.Contains(lower, "insert into"):
		return models.LanguageSQL
	case strings.Contains(text, "def ") && strings.Contains(text, ":"),
		strings.Contains(text, "import ") && strings.Contains(text, "self"):
		return models.LanguagePython
	case strings.Contains(text, "interface ") && strings.Contains(text, "{"),
		strings.Contains(text, ": string") || strings.Contains(text, ": number"):
		return models.LanguageTypeScript
	case strings.Contains(text, "function "),
		strings.Contains(text, "const ") && strings.Contains(text, "=>"):
		return models.LanguageJavaScript
	default:
		return models.LanguageUnknown
	}
}
