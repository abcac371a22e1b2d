package corpus

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/detector"
)

// Evaluator runs the detector over labeled corpora
type Evaluator struct {
	detector *detector.Detector
	config   *Config
	logger   *zap.Logger
}

type scored struct {
	matches []detector.Match
	score   int
}

// NewEvaluator creates a new corpus evaluator
func NewEvaluator(d *detector.Detector, config *Config, logger *zap.Logger) *Evaluator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{detector: d, config: config, logger: logger}
}

// EvaluateFile evaluates a dataset file (CSV, Parquet, or JSON lines)
func (e *Evaluator) EvaluateFile(ctx context.Context, filePath string) (*Report, error) {
	format := DetectFileFormat(filePath)
	e.logger.Info("Starting corpus evaluation",
		zap.String("file", filePath),
		zap.String("format", string(format)),
		zap.Int("batch_size", e.config.BatchSize),
		zap.Int("workers", e.config.WorkerCount))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer file.Close()

	var next func() ([]Record, error)
	switch format {
	case FormatCSV:
		next, err = e.csvBatches(file)
		if err != nil {
			return nil, fmt.Errorf("CSV processing failed: %w", err)
		}
	case FormatParquet:
		reader := parquet.NewReader(file)
		defer reader.Close()
		next = e.parquetBatches(reader)
	case FormatJSONL:
		next = e.jsonBatches(json.NewDecoder(file))
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filePath)
	}

	report := newReport(filePath, format)
	if err := e.run(ctx, next, report); err != nil {
		return report, err
	}
	return report, nil
}

// EvaluateRecords evaluates records already held in memory
func (e *Evaluator) EvaluateRecords(ctx context.Context, records []Record) (*Report, error) {
	report := newReport("", FormatUnknown)
	offset := 0
	next := func() ([]Record, error) {
		end := min(offset+e.config.BatchSize, len(records))
		batch := records[offset:end]
		offset = end
		return batch, nil
	}
	if err := e.run(ctx, next, report); err != nil {
		return report, err
	}
	return report, nil
}

func newReport(file string, format FileFormat) *Report {
	return &Report{
		File:      file,
		Format:    format,
		Languages: make(map[string]*GroupStats),
		Labels:    make(map[string]*GroupStats),
		Patterns:  make(map[string]*PatternStats),
	}
}

// csvBatches maps columns by header name; only the text column is required
func (e *Evaluator) csvBatches(r io.Reader) (func() ([]Record, error), error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	e.logger.Info("CSV header detected", zap.Strings("columns", header))

	columns := map[string]int{"text": -1, "language": -1, "label": -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := columns[name]; ok {
			columns[name] = i
		}
	}
	if columns["text"] < 0 {
		return nil, errors.New("CSV header has no text column")
	}

	field := func(row []string, name string) string {
		if i := columns[name]; i >= 0 && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	return func() ([]Record, error) {
		batch := make([]Record, 0, e.config.BatchSize)
		for len(batch) < e.config.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					e.logger.Warn("Failed to read CSV record", zap.Error(err))
					continue
				}
				return nil, err
			}
			batch = append(batch, Record{
				Text:     field(row, "text"),
				Language: field(row, "language"),
				Label:    field(row, "label"),
			})
		}
		return batch, nil
	}, nil
}

func (e *Evaluator) parquetBatches(reader *parquet.Reader) func() ([]Record, error) {
	return func() ([]Record, error) {
		batch := make([]Record, 0, e.config.BatchSize)
		for len(batch) < e.config.BatchSize {
			var record Record
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read Parquet record: %w", err)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}
}

// jsonBatches reads one JSON object per line
func (e *Evaluator) jsonBatches(decoder *json.Decoder) func() ([]Record, error) {
	return func() ([]Record, error) {
		batch := make([]Record, 0, e.config.BatchSize)
		for len(batch) < e.config.BatchSize {
			var record Record
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read JSON record: %w", err)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}
}

// run pulls batches until the reader is exhausted or MaxRecords is reached
func (e *Evaluator) run(ctx context.Context, readBatch func() ([]Record, error), report *Report) error {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		finalize(report)
	}()

	var lastReport int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if limit := e.config.MaxRecords; limit > 0 {
			remaining := limit - report.TotalRecords - report.Skipped
			if remaining <= 0 {
				break
			}
			if int64(len(batch)) > remaining {
				batch = batch[:remaining]
			}
		}

		e.processBatch(batch, report)

		if e.config.ProgressReport > 0 && report.TotalRecords-lastReport >= int64(e.config.ProgressReport) {
			lastReport = report.TotalRecords
			e.logger.Info("Corpus evaluation progress",
				zap.Int64("records", report.TotalRecords),
				zap.Int64("skipped", report.Skipped),
				zap.Duration("elapsed", time.Since(start)))
		}
	}

	e.logger.Info("Corpus evaluation completed",
		zap.Int64("total_records", report.TotalRecords),
		zap.Int64("skipped", report.Skipped),
		zap.Int("patterns_fired", len(report.Patterns)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// processBatch scores records concurrently and aggregates them in order
func (e *Evaluator) processBatch(batch []Record, report *Report) {
	results := make([]scored, len(batch))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(e.config.WorkerCount, len(batch)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				text := batch[i].Text
				matches := e.detector.Detect(text)
				results[i] = scored{
					matches: matches,
					score:   detector.Normalize(detector.RawScore(matches), detector.CharCount(text)),
				}
			}
		}()
	}
	for i := range batch {
		if strings.TrimSpace(batch[i].Text) == "" {
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, record := range batch {
		if strings.TrimSpace(record.Text) == "" {
			report.Skipped++
			continue
		}
		aggregate(report, record, results[i])
	}
}

func aggregate(report *Report, record Record, res scored) {
	report.TotalRecords++

	lang := normalizeLanguage(record.Language)
	group(report.Languages, lang).add(res)

	label := strings.ToLower(strings.TrimSpace(record.Label))
	if label == "" {
		label = "unlabeled"
	}
	group(report.Labels, label).add(res)

	for _, m := range res.matches {
		ps, ok := report.Patterns[m.Pattern.ID]
		if !ok {
			ps = &PatternStats{
				ID:       m.Pattern.ID,
				Language: string(m.Pattern.Language),
				Severity: string(m.Pattern.Severity),
				Records:  make(map[string]int64),
			}
			report.Patterns[m.Pattern.ID] = ps
		}
		ps.Occurrences += int64(m.Count)
		ps.Records[lang]++
	}
}

func group(groups map[string]*GroupStats, key string) *GroupStats {
	g, ok := groups[key]
	if !ok {
		g = &GroupStats{}
		groups[key] = g
	}
	return g
}

func (g *GroupStats) add(res scored) {
	g.Records++
	if res.score > 0 {
		g.Flagged++
	}
	g.ScoreSum += int64(res.score)
	g.Histogram[bucket(res.score)]++
}

func finalize(report *Report) {
	for _, groups := range []map[string]*GroupStats{report.Languages, report.Labels} {
		for _, g := range groups {
			if g.Records > 0 {
				g.MeanScore = float64(g.ScoreSum) / float64(g.Records)
			}
		}
	}
}
