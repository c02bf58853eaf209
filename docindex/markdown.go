package docindex

import "regexp"

var (
	fenceRE      = regexp.MustCompile("(?m)^\\s*```.*$")
	inlineCodeRE = regexp.MustCompile("`([^`]*)`")
	imageRE      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRE       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headingRE    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	blockquoteRE = regexp.MustCompile(`(?m)^>\s?`)
	bulletRE     = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	numberedRE   = regexp.MustCompile(`(?m)^(\s*)\d+\.\s+`)
	boldRE       = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	italicRE     = regexp.MustCompile(`_{1,3}([^_]+)_{1,3}`)
	htmlTagRE    = regexp.MustCompile(`<[^>]+>`)
	ruleRE       = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
)

// StripMarkdown reduces markdown content to plain text: markup characters
// are removed, the readable text and its line structure are kept.
func StripMarkdown(md string) string {
	s := fenceRE.ReplaceAllString(md, "")
	s = ruleRE.ReplaceAllString(s, "")
	s = inlineCodeRE.ReplaceAllString(s, "$1")
	s = imageRE.ReplaceAllString(s, "$1")
	s = linkRE.ReplaceAllString(s, "$1")
	s = headingRE.ReplaceAllString(s, "")
	s = blockquoteRE.ReplaceAllString(s, "")
	s = bulletRE.ReplaceAllString(s, "$1")
	s = numberedRE.ReplaceAllString(s, "$1")
	s = boldRE.ReplaceAllString(s, "$1")
	s = italicRE.ReplaceAllString(s, "$1")
	s = htmlTagRE.ReplaceAllString(s, "")
	return s
}
