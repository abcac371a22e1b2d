package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/corpus"
	"github.com/unai-app/unai/internal/history"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScanStdinJSON(t *testing.T) {
	out, err := execute(t, "Moreover, 值得注意的是", "scan", "--json", "--highlight")
	require.NoError(t, err)

	var result scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "-", result.Source)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 23, result.RawScore)
	assert.Equal(t, 16, result.Characters)

	var ids []string
	for _, f := range result.Patterns {
		ids = append(ids, f.ID)
	}
	assert.ElementsMatch(t, []string{"zh008", "en006"}, ids)
	assert.NotEmpty(t, result.Highlights)
}

func TestScanFileTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte("It's worth noting that the plan works. Moreover, costs fell."), 0o644))

	out, err := execute(t, "", "scan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "AI score: 100")
	assert.Contains(t, out, "en001")
	assert.Contains(t, out, "en006")
}

func TestScanCleanText(t *testing.T) {
	out, err := execute(t, "The deploy finished at noon.", "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "AI score: 0")
	assert.Contains(t, out, "No AI writing patterns detected")
}

func TestScanFailAt(t *testing.T) {
	_, err := execute(t, "Moreover, 值得注意的是", "scan", "--fail-at", "50")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold 50")
}

func TestScanMissingFile(t *testing.T) {
	_, err := execute(t, "", "scan", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestPatternsFilters(t *testing.T) {
	out, err := execute(t, "", "patterns", "--catalog", "compact", "--language", "en", "--severity", "medium")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 21 patterns")

	_, err = execute(t, "", "patterns", "--language", "fr")
	assert.Error(t, err)

	_, err = execute(t, "", "patterns", "--catalog", "tiny")
	assert.Error(t, err)
}

func TestPatternsExport(t *testing.T) {
	out, err := execute(t, "", "patterns", "--catalog", "compact", "--export", "json")
	require.NoError(t, err)

	var doc struct {
		Patterns []map[string]interface{} `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Patterns, 21)

	_, err = execute(t, "", "patterns", "--export", "xml")
	assert.Error(t, err)
}

func TestCorpusJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.jsonl")
	lines := []string{
		`{"text":"值得注意的是，这很重要。","language":"zh","label":"ai"}`,
		`{"text":"The deploy finished at noon.","language":"en","label":"human"}`,
		`{"text":"","language":"en","label":"human"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	out, err := execute(t, "", "corpus", path, "--json", "--workers", "2")
	require.NoError(t, err)

	var report corpus.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(2), report.TotalRecords)
	assert.Equal(t, int64(1), report.Skipped)
	require.Contains(t, report.Languages, "zh")
	assert.Equal(t, int64(1), report.Languages["zh"].Flagged)
	assert.Contains(t, report.Patterns, "zh008")

	out, err = execute(t, "", "corpus", path)
	require.NoError(t, err)
	assert.Contains(t, out, "zh008")
	assert.Contains(t, out, "human")
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := "file:" + filepath.Join(dir, "history.db")

	store, err := history.Open(&history.Config{Driver: "sqlite", DatabaseURL: dbPath, MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), &history.Record{
		RequestID:     "req-1",
		Mode:          "balanced",
		TextHash:      history.HashText("x"),
		Characters:    40,
		OriginalScore: 80,
		NewScore:      20,
		PatternsFound: 3,
	}))
	require.NoError(t, store.Close())

	configPath := filepath.Join(dir, "unai.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("history:\n  driver: sqlite\n  database_url: "+dbPath+"\n  max_open_conns: 1\n"), 0o644))

	out, err := execute(t, "", "history", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Rewrites: 1")
	assert.Contains(t, out, "reduction 60.0")
	assert.Contains(t, out, "req-1")

	_, err = execute(t, "", "history", "--config", configPath, "--limit", "0")
	assert.Error(t, err)
}
