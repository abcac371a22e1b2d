package rewrite

import "strings"

// Mode is the rewrite intensity requested by the caller
type Mode string

const (
	ModeLight      Mode = "light"
	ModeBalanced   Mode = "balanced"
	ModeAggressive Mode = "aggressive"
)

// ParseMode maps a caller-supplied mode to a known one. Empty and unknown
// values become ModeBalanced.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLight:
		return ModeLight
	case ModeAggressive:
		return ModeAggressive
	default:
		return ModeBalanced
	}
}

// Instruction returns the natural-language intensity directive sent to the model
func (m Mode) Instruction() string {
	switch m {
	case ModeLight:
		return "Minimal changes."
	case ModeAggressive:
		return "Aggressively rewrite."
	default:
		return "Balanced."
	}
}

func (m Mode) String() string {
	return string(m)
}
