package render

import "strings"

// The core PDF fonts are cp1252 encoded. Common symbols from model output
// are spelled out in ASCII; anything else outside cp1252 becomes '?'.
var symbolFold = strings.NewReplacer(
	"→", "->", "←", "<-", "⇒", "=>", "↔", "<->",
	"✅", "[x]", "✔", "[x]", "✓", "[x]", "❌", "[ ]", "✗", "[ ]",
	"≥", ">=", "≤", "<=", "≠", "!=", "≈", "~",
	"\u00a0", " ", "\u200b", "", "\ufe0f", "",
)

// cp1252Extra lists the runes cp1252 places in 0x80-0x9F.
const cp1252Extra = "€‚ƒ„…†‡ˆ‰Š‹ŒŽ‘’“”•–—˜™š›œžŸ"

func inCP1252(r rune) bool {
	if r < 0x80 || (r >= 0xA0 && r <= 0xFF) {
		return true
	}
	return strings.ContainsRune(cp1252Extra, r)
}

// foldCP1252 rewrites s so every rune is printable with a core font and
// reports how many runes had no stand-in.
func foldCP1252(s string) (string, int) {
	s = symbolFold.Replace(s)
	lost := 0
	for _, r := range s {
		if !inCP1252(r) {
			lost++
		}
	}
	if lost == 0 {
		return s, 0
	}
	return strings.Map(func(r rune) rune {
		if inCP1252(r) {
			return r
		}
		return '?'
	}, s), lost
}
