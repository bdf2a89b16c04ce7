package channels

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```[\\w]*\\n?([\\s\\S]*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	quoteRe      = regexp.MustCompile(`(?m)^>\s*(.*)$`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__(.+?)__`)
	italicRe     = regexp.MustCompile(`(?:^|[^a-zA-Z0-9])_([^_]+)_(?:[^a-zA-Z0-9]|$)`)
	strikeRe     = regexp.MustCompile(`~~(.+?)~~`)
	bulletRe     = regexp.MustCompile(`(?m)^[-*]\s+`)
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// MarkdownToTelegramHTML converts markdown to the HTML subset Telegram renders.
func MarkdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	// Code is pulled out first so nothing below rewrites it.
	var blocks []string
	text = codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := codeBlockRe.FindStringSubmatch(m)
		blocks = append(blocks, sub[1])
		return fmt.Sprintf("\x00CB%d\x00", len(blocks)-1)
	})
	var inline []string
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := inlineCodeRe.FindStringSubmatch(m)
		inline = append(inline, sub[1])
		return fmt.Sprintf("\x00IC%d\x00", len(inline)-1)
	})

	text = headingRe.ReplaceAllString(text, "$1")
	text = quoteRe.ReplaceAllString(text, "$1")
	text = htmlEscaper.Replace(text)

	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = boldStarRe.ReplaceAllString(text, "<b>$1</b>")
	text = boldUnderRe.ReplaceAllString(text, "<b>$1</b>")
	text = italicRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := italicRe.FindStringSubmatch(m)
		prefix, suffix := "", ""
		if m[0] != '_' {
			prefix = m[:1]
		}
		if m[len(m)-1] != '_' {
			suffix = m[len(m)-1:]
		}
		return prefix + "<i>" + sub[1] + "</i>" + suffix
	})
	text = strikeRe.ReplaceAllString(text, "<s>$1</s>")
	text = bulletRe.ReplaceAllString(text, "• ")

	for i, code := range inline {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00IC%d\x00", i), "<code>"+htmlEscaper.Replace(code)+"</code>")
	}
	for i, code := range blocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("\x00CB%d\x00", i), "<pre><code>"+htmlEscaper.Replace(code)+"</code></pre>")
	}
	return text
}
