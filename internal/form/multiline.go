package form

import (
	"strings"
	"unicode/utf8"
)

// multilineKeywords mark long-form text fields. Matched case-insensitively
// anywhere in the field path.
var multilineKeywords = []string{
	"overview", "description", "summary", "detail", "content",
	"comment", "note", "text", "body", "message", "remarks",
	"self_pr", "自己pr",
	"概要", "説明", "詳細", "内容", "備考", "コメント", "テキスト",
	"本文", "メッセージ", "記述", "記載",
}

// longValueRunes is the length above which a value gets a text area.
const longValueRunes = 100

// IsMultiline reports whether the leaf at path should be edited in a text area.
func IsMultiline(path string, value any) bool {
	lower := strings.ToLower(path)
	for _, kw := range multilineKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	return utf8.RuneCountInString(s) > longValueRunes || strings.Contains(s, "\n")
}
