package extractor

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptTag   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)

	// Block-level elements become paragraph breaks so chunking on paragraph
	// boundaries still works after markup removal.
	blockElement = regexp.MustCompile(`(?i)</?(p|div|section|article|header|footer|main|aside|h[1-6]|ul|ol|li|table|tr|blockquote|pre|figure)[^>]*>`)
	lineBreak    = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)

	multiBlank  = regexp.MustCompile(`\n{3,}`)
	lineSpaces  = regexp.MustCompile(`[ \t]+`)
	blankedLine = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

// htmlToText strips markup from an HTML payload, keeping the visible text
// with paragraph structure intact.
func htmlToText(s string) string {
	s = scriptTag.ReplaceAllString(s, " ")
	s = styleTag.ReplaceAllString(s, " ")
	s = noscriptTag.ReplaceAllString(s, " ")
	s = htmlComment.ReplaceAllString(s, " ")
	s = blockElement.ReplaceAllString(s, "\n\n")
	s = lineBreak.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return normalizeText(s)
}

// normalizeText collapses runs of spaces and tabs, trims line edges, and
// limits consecutive blank lines to one so paragraph breaks survive.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = lineSpaces.ReplaceAllString(s, " ")
	s = blankedLine.ReplaceAllString(s, "")
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
