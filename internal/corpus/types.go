package corpus

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Record is a single labeled text from an evaluation corpus
type Record struct {
	Text     string `csv:"text" parquet:"text" json:"text"`
	Language string `csv:"language" parquet:"language" json:"language"`
	Label    string `csv:"label" parquet:"label" json:"label"`
}

// Config contains evaluation settings
type Config struct {
	BatchSize      int   `yaml:"batch_size" mapstructure:"batch_size"`           // 500
	WorkerCount    int   `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	ProgressReport int   `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	MaxRecords     int64 `yaml:"max_records" mapstructure:"max_records"`         // 0 = unlimited
}

// DefaultConfig returns the settings used by the CLI
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      500,
		WorkerCount:    4,
		ProgressReport: 1000,
	}
}

// ScoreBuckets is the number of histogram buckets over 0..100
const ScoreBuckets = 5

// GroupStats aggregates scores for records sharing a language or label
type GroupStats struct {
	Records   int64               `json:"records"`
	Flagged   int64               `json:"flagged"`
	ScoreSum  int64               `json:"score_sum"`
	MeanScore float64             `json:"mean_score"`
	Histogram [ScoreBuckets]int64 `json:"histogram"`
}

// PatternStats counts how often a catalog pattern fired
type PatternStats struct {
	ID          string           `json:"id"`
	Language    string           `json:"language"`
	Severity    string           `json:"severity"`
	Occurrences int64            `json:"occurrences"`
	Records     map[string]int64 `json:"records_by_language"`
}

// CrossHit is a language-specific pattern firing on text of another language
type CrossHit struct {
	PatternID       string `json:"pattern_id"`
	PatternLanguage string `json:"pattern_language"`
	RecordLanguage  string `json:"record_language"`
	Records         int64  `json:"records"`
}

// Report is the result of evaluating a corpus
type Report struct {
	File         string                   `json:"file"`
	Format       FileFormat               `json:"format"`
	TotalRecords int64                    `json:"total_records"`
	Skipped      int64                    `json:"skipped"`
	Languages    map[string]*GroupStats   `json:"languages"`
	Labels       map[string]*GroupStats   `json:"labels"`
	Patterns     map[string]*PatternStats `json:"patterns"`
	Duration     time.Duration            `json:"duration"`
}

// CrossLanguageHits lists zh patterns that fired on non-zh records and en
// patterns that fired on non-en records, ordered by pattern ID then language.
// Records without a language tag are left out.
func (r *Report) CrossLanguageHits() []CrossHit {
	hits := make([]CrossHit, 0)
	for id, ps := range r.Patterns {
		if ps.Language != "zh" && ps.Language != "en" {
			continue
		}
		for lang, n := range ps.Records {
			if lang == ps.Language || lang == unknownLanguage || n == 0 {
				continue
			}
			hits = append(hits, CrossHit{
				PatternID:       id,
				PatternLanguage: ps.Language,
				RecordLanguage:  lang,
				Records:         n,
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].PatternID != hits[j].PatternID {
			return hits[i].PatternID < hits[j].PatternID
		}
		return hits[i].RecordLanguage < hits[j].RecordLanguage
	})
	return hits
}

// FileFormat represents supported corpus formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
	FormatUnknown FileFormat = "unknown"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".parquet":
		return FormatParquet
	case ".jsonl", ".json", ".ndjson":
		return FormatJSONL
	default:
		return FormatUnknown
	}
}

// unknownLanguage groups records that carry no language tag
const unknownLanguage = "unknown"

// normalizeLanguage folds regional tags such as zh-CN into their base language
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return unknownLanguage
	}
	return lang
}

func bucket(score int) int {
	b := score * ScoreBuckets / 100
	if b >= ScoreBuckets {
		b = ScoreBuckets - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}
