package detector

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/unai-app/unai/internal/catalog"
	"go.uber.org/zap"
)

// Severity weights and the score range
const (
	WeightHigh   = 15
	WeightMedium = 8
	WeightLow    = 3

	MinScore = 0
	MaxScore = 100
)

// Detector finds catalog patterns in text and scores their density.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// New creates a detector over the given catalog
func New(c *catalog.Catalog, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		catalog: c,
		logger:  logger,
	}
}

// Catalog returns the catalog the detector evaluates
func (d *Detector) Catalog() *catalog.Catalog {
	return d.catalog
}

// Detect returns every pattern with at least one occurrence in text, in
// catalog order. It never fails: a pattern whose scan errors contributes the
// occurrences found before the error.
func (d *Detector) Detect(text string) []Match {
	matches := make([]Match, 0)
	if text == "" {
		return matches
	}

	for _, entry := range d.catalog.Entries() {
		if n := d.occurrences(entry, text); n > 0 {
			matches = append(matches, Match{Pattern: entry.Pattern(), Count: n})
		}
	}
	return matches
}

// Score returns the AI-ness score of text in [0, 100]
func (d *Detector) Score(text string) int {
	return d.Analyze(text).Score
}

// Analyze detects patterns and returns the score together with its inputs
func (d *Detector) Analyze(text string) Analysis {
	if text == "" {
		return Analysis{Matches: []Match{}}
	}

	matches := d.Detect(text)
	raw := RawScore(matches)
	chars := CharCount(text)

	return Analysis{
		Matches:    matches,
		RawScore:   raw,
		Characters: chars,
		Score:      Normalize(raw, chars),
	}
}

// Highlight returns the location of every occurrence of every pattern,
// grouped by pattern in catalog order. Offsets are in runes.
func (d *Detector) Highlight(text string) []Highlight {
	highlights := make([]Highlight, 0)
	if text == "" {
		return highlights
	}

	for _, entry := range d.catalog.Entries() {
		spans, err := d.spans(entry, text)
		if err != nil {
			d.logger.Debug("Pattern highlight stopped early",
				zap.String("pattern_id", entry.ID()),
				zap.Int("spans", len(spans)),
				zap.Error(err),
			)
		}
		for _, s := range spans {
			highlights = append(highlights, Highlight{
				PatternID: entry.ID(),
				Severity:  entry.Severity(),
				Start:     s.Start,
				End:       s.End,
			})
		}
	}
	return highlights
}

// occurrences isolates per-pattern faults so one bad rule cannot abort a scan.
// A failed or timed-out scan keeps the matches counted before the failure.
func (d *Detector) occurrences(entry catalog.Entry, text string) (n int) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("Pattern scan panicked",
				zap.String("pattern_id", entry.ID()),
				zap.Any("panic", r),
			)
			n = 0
		}
	}()

	n, err := entry.Count(text)
	if err != nil {
		d.logger.Debug("Pattern scan stopped early",
			zap.String("pattern_id", entry.ID()),
			zap.Int("counted", n),
			zap.Error(err),
		)
	}
	return n
}

func (d *Detector) spans(entry catalog.Entry, text string) (spans []catalog.Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			spans, err = nil, fmt.Errorf("pattern %s: %v", entry.ID(), r)
		}
	}()
	return entry.Spans(text)
}

// Weight returns the scoring weight of a severity
func Weight(sev catalog.Severity) int {
	switch sev {
	case catalog.SeverityHigh:
		return WeightHigh
	case catalog.SeverityMedium:
		return WeightMedium
	default:
		return WeightLow
	}
}

// RawScore sums weight(severity) * count over all matches
func RawScore(matches []Match) int {
	raw := 0
	for _, m := range matches {
		raw += Weight(m.Pattern.Severity) * m.Count
	}
	return raw
}

// Normalize converts a raw score into weighted occurrences per 1000
// characters, doubled, rounded and clamped to [0, 100].
func Normalize(raw, chars int) int {
	if chars <= 0 || raw <= 0 {
		return MinScore
	}

	normalized := math.Round(float64(raw) / (float64(chars) / 1000) * 2)
	if normalized > MaxScore {
		return MaxScore
	}
	if normalized < MinScore {
		return MinScore
	}
	return int(normalized)
}

// CharCount returns the length of text in Unicode code points
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// Summarize flattens matches into findings, keeping their order
func Summarize(matches []Match) []Finding {
	findings := make([]Finding, len(matches))
	for i, m := range matches {
		findings[i] = Finding{
			ID:          m.Pattern.ID,
			Description: m.Pattern.Description,
			Category:    m.Pattern.Category,
			Severity:    m.Pattern.Severity,
			Language:    m.Pattern.Language,
			Count:       m.Count,
		}
	}
	return findings
}
