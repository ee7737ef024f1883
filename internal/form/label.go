package form

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Label turns a field key into display text: "_" becomes a space, camelCase
// is split and every word is capitalized ("work_experience" -> "Work Experience",
// "firstName" -> "First Name").
func Label(key string) string {
	var b strings.Builder
	for i, r := range strings.ReplaceAll(key, "_", " ") {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
