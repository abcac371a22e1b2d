package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, 52, c.Len())
	assert.Empty(t, c.Fallbacks(), "every built-in rule should compile")

	patterns := c.Patterns()
	assert.Equal(t, "zh001", patterns[0].ID)
	assert.Equal(t, "en025", patterns[len(patterns)-1].ID)

	seen := make(map[string]bool)
	for _, p := range patterns {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Description, p.ID)
		assert.NotEmpty(t, p.Alternatives, p.ID)
	}

	// Lookaround rules must compile as expressions, not degrade to literals.
	for _, id := range []string{"zh026", "zh027"} {
		kind, ok := c.Kind(id)
		require.True(t, ok)
		assert.Equal(t, KindRegex, kind, id)
	}
}

func TestCompactCatalog(t *testing.T) {
	c := Compact()

	assert.Equal(t, 21, c.Len())
	for _, p := range c.Patterns() {
		assert.NotEqual(t, SeverityLow, p.Severity, p.ID)
	}

	ids := make([]string, 0, c.Len())
	for _, e := range c.Entries() {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []string{
		"zh001", "zh004", "zh006", "zh007", "zh008", "zh009", "zh011", "zh013", "zh015", "zh016", "zh022", "zh024",
		"en001", "en002", "en003", "en005", "en006", "en008", "en009", "en012", "en014",
	}, ids)

	full, ok := Default().Lookup("en001")
	require.True(t, ok)
	compact, ok := c.Lookup("en001")
	require.True(t, ok)
	assert.Equal(t, full.Rule, compact.Rule)
}

func TestNewValidation(t *testing.T) {
	valid := Pattern{ID: "t1", Rule: "abc", Language: LanguageEnglish, Severity: SeverityHigh, Description: "abc"}

	tests := []struct {
		name     string
		patterns []Pattern
		want     error
	}{
		{"empty", nil, ErrEmptyCatalog},
		{"missing id", []Pattern{{Rule: "abc", Language: LanguageEnglish, Severity: SeverityHigh}}, ErrMissingID},
		{"empty rule", []Pattern{{ID: "t1", Language: LanguageEnglish, Severity: SeverityHigh}}, ErrEmptyRule},
		{"bad severity", []Pattern{{ID: "t1", Rule: "abc", Language: LanguageEnglish, Severity: "critical"}}, ErrUnknownSeverity},
		{"bad language", []Pattern{{ID: "t1", Rule: "abc", Language: "fr", Severity: SeverityLow}}, ErrUnknownLanguage},
		{"duplicate", []Pattern{valid, valid}, ErrDuplicateID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.patterns)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInvalidRuleFallsBackToLiteral(t *testing.T) {
	c, err := New([]Pattern{
		{ID: "broken", Rule: "(unclosed", Language: LanguageEnglish, Severity: SeverityHigh, Description: "broken"},
	})
	require.NoError(t, err)

	kind, ok := c.Kind("broken")
	require.True(t, ok)
	assert.Equal(t, KindLiteral, kind)

	fallbacks := c.Fallbacks()
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "broken", fallbacks[0].ID)
	assert.NotEmpty(t, fallbacks[0].Error)

	entry := c.Entries()[0]
	n, err := entry.Count("a (unclosed b (unclosed c (unclosed")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = entry.Count("nothing here")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegexCountIsCaseExact(t *testing.T) {
	c, err := Default().Subset("en005")
	require.NoError(t, err)
	entry := c.Entries()[0]

	n, err := entry.Count("Furthermore, a. furthermore, b. Furthermore, c.")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = entry.Count("FURTHERMORE")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRulesUseECMAScriptClasses(t *testing.T) {
	c, err := New([]Pattern{
		{ID: "word", Rule: `\w+而是`, Language: LanguageEnglish, Severity: SeverityLow, Description: "word"},
	})
	require.NoError(t, err)
	entry := c.Entries()[0]

	n, err := entry.Count("不是这样而是")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = entry.Count("not this而是")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountKeepsMatchesBeforeTimeout(t *testing.T) {
	c, err := New([]Pattern{
		{ID: "slow", Rule: `(a+)+b`, Language: LanguageEnglish, Severity: SeverityHigh, Description: "slow"},
	}, WithMatchTimeout(10*time.Millisecond))
	require.NoError(t, err)
	entry := c.Entries()[0]

	text := "ab" + strings.Repeat("a", 40)
	n, err := entry.Count(text)
	assert.Error(t, err)
	assert.Equal(t, 1, n)

	spans, err := entry.Spans(text)
	assert.Error(t, err)
	assert.Equal(t, []Span{{Start: 0, End: 2}}, spans)
}

func TestLookbehindRule(t *testing.T) {
	c, err := Default().Subset("zh026")
	require.NoError(t, err)
	entry := c.Entries()[0]

	n, err := entry.Count("我们先，拆开看看。再，拆，然后拆解")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = entry.Count("拆开")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEntrySpans(t *testing.T) {
	c, err := Default().Subset("zh008")
	require.NoError(t, err)

	spans, err := c.Entries()[0].Spans("好的。值得注意的是，天气")
	require.NoError(t, err)
	assert.Equal(t, []Span{{Start: 3, End: 9}}, spans)
}

func TestPatternsAreCopies(t *testing.T) {
	c := Default()

	patterns := c.Patterns()
	patterns[0].Alternatives[0] = "mutated"
	patterns[0].Description = "mutated"

	p, ok := c.Lookup(patterns[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, "mutated", p.Alternatives[0])
	assert.NotEqual(t, "mutated", p.Description)
}

func TestSubset(t *testing.T) {
	c := Default()

	sub, err := c.Subset("en005", "zh008")
	require.NoError(t, err)
	entries := sub.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "zh008", entries[0].ID())
	assert.Equal(t, "en005", entries[1].ID())

	_, err = c.Subset("nope")
	assert.Error(t, err)
}

func TestParseSeverityAndLanguage(t *testing.T) {
	sev, err := ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, sev)

	lang, err := ParseLanguage("both")
	require.NoError(t, err)
	assert.Equal(t, LanguageBoth, lang)

	_, err = ParseLanguage("de")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestLoadByName(t *testing.T) {
	full, err := Load("full", "")
	require.NoError(t, err)
	assert.Equal(t, 52, full.Len())

	compact, err := Load(" Compact ", "")
	require.NoError(t, err)
	assert.Equal(t, 21, compact.Len())

	_, err = Load("tiny", "")
	assert.Error(t, err)

	_, err = Load("full", "does-not-exist.yaml")
	assert.Error(t, err)
}
