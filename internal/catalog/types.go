package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is the scoring tier of a pattern
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Language tags which language a pattern was written for. Informational only:
// every pattern is evaluated against every input.
type Language string

const (
	LanguageChinese Language = "zh"
	LanguageEnglish Language = "en"
	LanguageBoth    Language = "both"
)

var (
	// ErrEmptyCatalog is returned when a catalog is built without entries
	ErrEmptyCatalog = errors.New("catalog has no patterns")
	// ErrMissingID is returned when an entry has no id
	ErrMissingID = errors.New("missing pattern id")
	// ErrDuplicateID is returned when two entries share an id
	ErrDuplicateID = errors.New("duplicate pattern id")
	// ErrEmptyRule is returned when an entry has no match rule
	ErrEmptyRule = errors.New("empty match rule")
	// ErrUnknownSeverity is returned for a severity outside high/medium/low
	ErrUnknownSeverity = errors.New("unknown severity")
	// ErrUnknownLanguage is returned for a language outside zh/en/both
	ErrUnknownLanguage = errors.New("unknown language")
)

// ParseSeverity converts a string into a Severity
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return sev, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

// ParseLanguage converts a string into a Language
func ParseLanguage(s string) (Language, error) {
	switch lang := Language(strings.ToLower(strings.TrimSpace(s))); lang {
	case LanguageChinese, LanguageEnglish, LanguageBoth:
		return lang, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
}

// Pattern is a single cliché definition
type Pattern struct {
	ID           string   `json:"id" yaml:"id" toml:"id"`
	Rule         string   `json:"rule" yaml:"rule" toml:"rule"`
	Category     string   `json:"category" yaml:"category" toml:"category"`
	Language     Language `json:"language" yaml:"language" toml:"language"`
	Severity     Severity `json:"severity" yaml:"severity" toml:"severity"`
	Description  string   `json:"description" yaml:"description" toml:"description"`
	Alternatives []string `json:"alternatives,omitempty" yaml:"alternatives,omitempty" toml:"alternatives,omitempty"`
}

// MatcherKind tells how an entry's rule is evaluated
type MatcherKind string

const (
	// KindRegex entries are scanned globally for non-overlapping matches
	KindRegex MatcherKind = "regex"
	// KindLiteral entries fell back to substring containment and count at most once
	KindLiteral MatcherKind = "literal"
)

// Fallback records an entry whose rule did not compile as a regular expression
type Fallback struct {
	ID    string `json:"id"`
	Rule  string `json:"rule"`
	Error string `json:"error"`
}
