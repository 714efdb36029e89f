package utils

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes the three characters Telegram's HTML parse mode treats
// as markup. Applied to all user-supplied text before sending, so a question
// containing angle brackets doesn't come back as a 400 from the API.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes every character reserved by Telegram's MarkdownV2
// parse mode. Kept alongside EscapeHTML for captions that are sent with
// Markdown formatting.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// TruncateBytes cuts s to at most n bytes without splitting a UTF-8 rune.
// Telegram caps callback payloads at 64 bytes, so button data longer than
// that is trimmed rather than rejected.
func TruncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
