package format

import (
	"fmt"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram legacy Markdown.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram MarkdownV2.
	MarkdownV2 = 2
)

// Entity types that change MarkdownV2 escaping rules.
const (
	EntityNone = ""
	EntityCode = "code"
	EntityPre  = "pre"
	EntityLink = "text_link"
)

const (
	mdV1Specials = "_*`["
	mdV2Specials = "_*[]()~`>#+-=|{}.!\\"
)

// EscapeMarkdown escapes text for the given Markdown version. Inside code
// and pre entities MarkdownV2 only reserves '`' and '\'; inside a link URL
// only ')' and '\'.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	var specials string
	switch version {
	case MarkdownV1:
		specials = mdV1Specials
	case MarkdownV2:
		switch entityType {
		case EntityCode, EntityPre:
			specials = "`\\"
		case EntityLink:
			specials = ")\\"
		default:
			specials = mdV2Specials
		}
	default:
		return "", fmt.Errorf("unsupported markdown version: %d", version)
	}

	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// Escape escapes plain MarkdownV2 text.
func Escape(text string) string {
	s, _ := EscapeMarkdown(text, MarkdownV2, EntityNone)
	return s
}

// Code wraps text in an inline MarkdownV2 code span.
func Code(text string) string {
	s, _ := EscapeMarkdown(text, MarkdownV2, EntityCode)
	return "`" + s + "`"
}

// Bold renders escaped text in MarkdownV2 bold.
func Bold(text string) string {
	return "*" + Escape(text) + "*"
}
