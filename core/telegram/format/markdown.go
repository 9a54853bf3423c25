package format

import "strings"

const specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdown escapes Telegram markdown specials in text. The scan is
// idempotent: a character already preceded by a backslash counts as escaped
// and is left alone, so escaping the same text twice yields the same result.
func EscapeMarkdown(text string) string {
	if text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	var prev rune
	for _, r := range text {
		if r < 128 && strings.ContainsRune(specials, r) && prev != '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
