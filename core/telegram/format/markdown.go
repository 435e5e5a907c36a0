package format

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

var (
	mdV1Re = regexp.MustCompile("([_*`\\[])")
	mdV2Re = regexp.MustCompile("([" + literalClass(mdV2Specials) + "])")
)

// literalClass escapes every rune so that none of them ("-" included) keeps a
// special meaning inside a character class.
func literalClass(chars string) string {
	var b strings.Builder
	for _, r := range chars {
		b.WriteByte('\\')
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
func EscapeMarkdown(text string, version int) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		return mdV2Re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// EscapeV2 escapes text for MarkdownV2 entities.
func EscapeV2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\$1`)
}
