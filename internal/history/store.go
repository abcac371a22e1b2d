package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store persists rewrite history in PostgreSQL or SQLite
type Store struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

var schemas = map[string]string{
	"postgres": `
		CREATE TABLE IF NOT EXISTS rewrite_history (
			id                 BIGSERIAL PRIMARY KEY,
			request_id         TEXT NOT NULL,
			mode               TEXT NOT NULL,
			text_hash          TEXT NOT NULL,
			original_text      TEXT NOT NULL DEFAULT '',
			rewritten_text     TEXT NOT NULL DEFAULT '',
			characters         INTEGER NOT NULL,
			original_score     INTEGER NOT NULL,
			new_score          INTEGER NOT NULL,
			patterns_found     INTEGER NOT NULL,
			patterns_remaining INTEGER NOT NULL,
			rewrite_failed     BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS rewrite_history_created_at_idx ON rewrite_history (created_at DESC);`,
	"sqlite": `
		CREATE TABLE IF NOT EXISTS rewrite_history (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id         TEXT NOT NULL,
			mode               TEXT NOT NULL,
			text_hash          TEXT NOT NULL,
			original_text      TEXT NOT NULL DEFAULT '',
			rewritten_text     TEXT NOT NULL DEFAULT '',
			characters         INTEGER NOT NULL,
			original_score     INTEGER NOT NULL,
			new_score          INTEGER NOT NULL,
			patterns_found     INTEGER NOT NULL,
			patterns_remaining INTEGER NOT NULL,
			rewrite_failed     BOOLEAN NOT NULL DEFAULT 0,
			created_at         TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS rewrite_history_created_at_idx ON rewrite_history (created_at DESC);`,
}

// Open connects to the database and creates the schema if needed
func Open(config *Config, logger *zap.Logger) (*Store, error) {
	schema, ok := schemas[config.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported history driver: %s", config.Driver)
	}

	db, err := sqlx.Connect(config.Driver, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		driver: config.Driver,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("History store initialized successfully",
		zap.String("driver", config.Driver),
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

// Insert stores a record and fills in its ID
func (s *Store) Insert(ctx context.Context, record *Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := s.db.Rebind(`
		INSERT INTO rewrite_history (
			request_id, mode, text_hash, original_text, rewritten_text, characters,
			original_score, new_score, patterns_found, patterns_remaining, rewrite_failed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		record.RequestID,
		record.Mode,
		record.TextHash,
		record.OriginalText,
		record.RewrittenText,
		record.Characters,
		record.OriginalScore,
		record.NewScore,
		record.PatternsFound,
		record.PatternsRemaining,
		record.RewriteFailed,
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		s.logger.Error("Failed to insert history record",
			zap.Error(err),
			zap.String("request_id", record.RequestID))
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	s.logger.Debug("History record inserted",
		zap.Int64("id", record.ID),
		zap.String("request_id", record.RequestID))

	return nil
}

// Recent returns the newest records first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := s.db.Rebind(`
		SELECT id, request_id, mode, text_hash, original_text, rewritten_text, characters,
		       original_score, new_score, patterns_found, patterns_remaining, rewrite_failed, created_at
		FROM rewrite_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	records := make([]Record, 0, limit)
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// Stats returns aggregate statistics over all records
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total_rewrites,
			COALESCE(SUM(CASE WHEN rewrite_failed THEN 1 ELSE 0 END), 0) AS failed_rewrites,
			COALESCE(AVG(original_score), 0) AS avg_original_score,
			COALESCE(AVG(new_score), 0) AS avg_new_score
		FROM rewrite_history`

	var stats Stats
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get history stats: %w", err)
	}
	stats.AvgReduction = stats.AvgOriginalScore - stats.AvgNewScore

	return &stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HashText returns the hex SHA-256 of text
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
