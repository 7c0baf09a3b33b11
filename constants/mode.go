package constants

import "strings"

// Mode selects the prompt, how the model's reply is interpreted and the export format.
type Mode string

const (
	Handwritten Mode = "handwritten" // plain/markdown transcription
	Printed     Mode = "printed"     // semantic HTML
)

// DefaultMode is what a fresh or cleared session starts with.
const DefaultMode = Handwritten

var allModes = []Mode{Handwritten, Printed}

func Modes() []Mode {
	out := make([]Mode, len(allModes))
	copy(out, allModes)
	return out
}

// ParseMode accepts the canonical names plus a few synonyms the UI and CLI have used.
func ParseMode(input string) (Mode, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return DefaultMode, false
	}

	synonyms := map[string]Mode{
		"handwriting": Handwritten,
		"hand":        Handwritten,
		"cursive":     Handwritten,
		"print":       Printed,
		"typed":       Printed,
		"document":    Printed,
	}
	if m, ok := synonyms[normalized]; ok {
		return m, true
	}
	for _, m := range allModes {
		if normalized == string(m) {
			return m, true
		}
	}
	return DefaultMode, false
}

// Label is the button caption shown in the mode toggle.
func (m Mode) Label() string {
	if m == Printed {
		return "Printed Text"
	}
	return "Handwritten"
}
