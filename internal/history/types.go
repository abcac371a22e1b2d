package history

import "time"

// Record is one processed rewrite request
type Record struct {
	ID                int64     `db:"id" json:"id"`
	RequestID         string    `db:"request_id" json:"request_id"`
	Mode              string    `db:"mode" json:"mode"`
	TextHash          string    `db:"text_hash" json:"text_hash"`
	OriginalText      string    `db:"original_text" json:"original_text,omitempty"`
	RewrittenText     string    `db:"rewritten_text" json:"rewritten_text,omitempty"`
	Characters        int       `db:"characters" json:"characters"`
	OriginalScore     int       `db:"original_score" json:"original_score"`
	NewScore          int       `db:"new_score" json:"new_score"`
	PatternsFound     int       `db:"patterns_found" json:"patterns_found"`
	PatternsRemaining int       `db:"patterns_remaining" json:"patterns_remaining"`
	RewriteFailed     bool      `db:"rewrite_failed" json:"rewrite_failed"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes stored records
type Stats struct {
	TotalRewrites    int64   `db:"total_rewrites" json:"total_rewrites"`
	FailedRewrites   int64   `db:"failed_rewrites" json:"failed_rewrites"`
	AvgOriginalScore float64 `db:"avg_original_score" json:"avg_original_score"`
	AvgNewScore      float64 `db:"avg_new_score" json:"avg_new_score"`
	AvgReduction     float64 `json:"avg_reduction"`
}

// Config contains database configuration
type Config struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}
