package detector

import "github.com/unai-app/unai/internal/catalog"

// Match is a catalog pattern found in a text together with its occurrence count.
// Count is always at least 1.
type Match struct {
	Pattern catalog.Pattern `json:"pattern"`
	Count   int             `json:"count"`
}

// Finding is the flattened form of a Match returned to API clients
type Finding struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Severity    catalog.Severity `json:"severity"`
	Language    catalog.Language `json:"language"`
	Count       int              `json:"count"`
}

// Analysis is the full breakdown behind a score
type Analysis struct {
	Matches    []Match `json:"matches"`
	RawScore   int     `json:"rawScore"`
	Characters int     `json:"characters"`
	Score      int     `json:"score"`
}

// Highlight marks one occurrence of a pattern in the scanned text
type Highlight struct {
	PatternID string           `json:"patternId"`
	Severity  catalog.Severity `json:"severity"`
	Start     int              `json:"start"`
	End       int              `json:"end"`
}
