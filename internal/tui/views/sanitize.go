package views

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// displayText prepares user-written text for a dynamic-color TextView:
// emoji modifiers tcell cannot lay out are dropped and color tags escaped.
func displayText(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}

// sanitizeForTerminal drops codepoints that break cell width computation
// in tcell: skin tone modifiers, the zero width joiner and variation
// selectors. A modified emoji collapses to its base glyph.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}
