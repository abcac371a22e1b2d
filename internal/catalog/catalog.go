package catalog

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// Catalog is an ordered, read-only set of cliché patterns with their match
// rules resolved once at construction. It is safe for concurrent use.
type Catalog struct {
	entries   []Entry
	index     map[string]int
	fallbacks []Fallback
}

// Entry pairs a pattern with its resolved matcher
type Entry struct {
	pattern Pattern
	matcher matcher
}

// Span is a half-open [Start, End) range of rune offsets into the scanned text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// count and spans return what they found before any error, so a scan cut
// short by the match timeout still reports its earlier matches.
type matcher interface {
	kind() MatcherKind
	count(text string) (int, error)
	spans(text string) ([]Span, error)
}

// regexMatcher scans for every non-overlapping match. No case folding is
// applied beyond what the expression itself encodes.
type regexMatcher struct {
	re *regexp2.Regexp
}

func (m *regexMatcher) kind() MatcherKind { return KindRegex }

func (m *regexMatcher) count(text string) (int, error) {
	n := 0
	match, err := m.re.FindStringMatch(text)
	for match != nil && err == nil {
		n++
		match, err = m.re.FindNextMatch(match)
	}
	return n, err
}

func (m *regexMatcher) spans(text string) ([]Span, error) {
	var out []Span
	match, err := m.re.FindStringMatch(text)
	for match != nil && err == nil {
		out = append(out, Span{Start: match.Index, End: match.Index + match.Length})
		match, err = m.re.FindNextMatch(match)
	}
	return out, err
}

// literalMatcher reports a single occurrence when the rule text is contained
// anywhere in the input, however many times it appears.
type literalMatcher struct {
	literal string
}

func (m *literalMatcher) kind() MatcherKind { return KindLiteral }

func (m *literalMatcher) count(text string) (int, error) {
	if strings.Contains(text, m.literal) {
		return 1, nil
	}
	return 0, nil
}

func (m *literalMatcher) spans(text string) ([]Span, error) {
	i := strings.Index(text, m.literal)
	if i < 0 {
		return nil, nil
	}
	start := utf8.RuneCountInString(text[:i])
	return []Span{{Start: start, End: start + utf8.RuneCountInString(m.literal)}}, nil
}

type options struct {
	matchTimeout time.Duration
	logger       *zap.Logger
}

// Option configures catalog construction
type Option func(*options)

// WithMatchTimeout bounds the time a single regular expression may spend on
// one match attempt. Entry.Count reports a timed-out scan as an error
// together with the matches found before it.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) { o.matchTimeout = d }
}

// WithLogger sets the logger used for load-time diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New validates the given patterns and resolves each rule to a compiled
// regular expression, or to a literal substring when it does not compile.
// Pattern order is preserved.
func New(patterns []Pattern, opts ...Option) (*Catalog, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(patterns) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		entries: make([]Entry, 0, len(patterns)),
		index:   make(map[string]int, len(patterns)),
	}

	for i, p := range patterns {
		if err := validatePattern(p); err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, p.ID, err)
		}
		if _, exists := c.index[p.ID]; exists {
			return nil, fmt.Errorf("pattern %d: %w: %s", i, ErrDuplicateID, p.ID)
		}

		p.Alternatives = cloneStrings(p.Alternatives)

		var m matcher
		re, err := regexp2.Compile(p.Rule, regexp2.ECMAScript)
		if err != nil {
			m = &literalMatcher{literal: p.Rule}
			c.fallbacks = append(c.fallbacks, Fallback{ID: p.ID, Rule: p.Rule, Error: err.Error()})
			o.logger.Warn("Pattern rule is not a valid regular expression, using literal match",
				zap.String("pattern_id", p.ID),
				zap.String("rule", p.Rule),
				zap.Error(err),
			)
		} else {
			if o.matchTimeout > 0 {
				re.MatchTimeout = o.matchTimeout
			}
			m = &regexMatcher{re: re}
		}

		c.index[p.ID] = len(c.entries)
		c.entries = append(c.entries, Entry{pattern: p, matcher: m})
	}

	o.logger.Debug("Pattern catalog loaded",
		zap.Int("patterns", len(c.entries)),
		zap.Int("literal_fallbacks", len(c.fallbacks)),
	)

	return c, nil
}

// MustNew is like New but panics on error. Intended for built-in catalogs.
func MustNew(patterns []Pattern, opts ...Option) *Catalog {
	c, err := New(patterns, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func validatePattern(p Pattern) error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrMissingID
	}
	if p.Rule == "" {
		return ErrEmptyRule
	}
	if _, err := ParseSeverity(string(p.Severity)); err != nil {
		return err
	}
	if _, err := ParseLanguage(string(p.Language)); err != nil {
		return err
	}
	return nil
}

// Len returns the number of patterns
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns the resolved entries in catalog order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Patterns returns a copy of every pattern in catalog order
func (c *Catalog) Patterns() []Pattern {
	out := make([]Pattern, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Pattern()
	}
	return out
}

// Lookup returns the pattern with the given id
func (c *Catalog) Lookup(id string) (Pattern, bool) {
	i, ok := c.index[id]
	if !ok {
		return Pattern{}, false
	}
	return c.entries[i].Pattern(), true
}

// Kind reports how the pattern with the given id is matched
func (c *Catalog) Kind(id string) (MatcherKind, bool) {
	i, ok := c.index[id]
	if !ok {
		return "", false
	}
	return c.entries[i].Kind(), true
}

// Fallbacks lists the entries that were resolved to literal matching
func (c *Catalog) Fallbacks() []Fallback {
	out := make([]Fallback, len(c.fallbacks))
	copy(out, c.fallbacks)
	return out
}

// Subset builds a new catalog holding the named patterns. Entries keep the
// order they have in c, not the order of ids.
func (c *Catalog) Subset(ids ...string) (*Catalog, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.index[id]; !ok {
			return nil, fmt.Errorf("unknown pattern id: %s", id)
		}
		want[id] = true
	}

	sub := &Catalog{index: make(map[string]int, len(want))}
	for _, e := range c.entries {
		if !want[e.pattern.ID] {
			continue
		}
		sub.index[e.pattern.ID] = len(sub.entries)
		sub.entries = append(sub.entries, e)
	}
	for _, f := range c.fallbacks {
		if want[f.ID] {
			sub.fallbacks = append(sub.fallbacks, f)
		}
	}

	if len(sub.entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	return sub, nil
}

// Pattern returns a copy of the entry's pattern
func (e Entry) Pattern() Pattern {
	p := e.pattern
	p.Alternatives = cloneStrings(p.Alternatives)
	return p
}

// ID returns the pattern id
func (e Entry) ID() string { return e.pattern.ID }

// Rule returns the raw match rule
func (e Entry) Rule() string { return e.pattern.Rule }

// Severity returns the pattern severity
func (e Entry) Severity() Severity { return e.pattern.Severity }

// Kind reports whether the entry matches by regex or by literal fallback
func (e Entry) Kind() MatcherKind { return e.matcher.kind() }

// Count returns the number of occurrences of the entry in text. Regex entries
// count non-overlapping matches; literal entries count at most one. On error
// the count covers the matches found before the failure.
func (e Entry) Count(text string) (int, error) {
	return e.matcher.count(text)
}

// Spans returns rune offsets of the entry's occurrences in text
func (e Entry) Spans(text string) ([]Span, error) {
	return e.matcher.spans(text)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
