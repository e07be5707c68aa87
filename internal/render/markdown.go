package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Heading is a table-of-contents entry.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

var (
	mdHeadingRe = regexp.MustCompile(`(?m)^(#{1,3})[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	mdBoldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalicRe  = regexp.MustCompile(`\*([^*\n]+)\*`)
	mdCodeRe    = regexp.MustCompile("`([^`\n]+)`")
	mdLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	mdHolderRe  = regexp.MustCompile(`\x00(\d+)\x00`)
	mdBlockEnd  = regexp.MustCompile(`(</h[1-3]>)\n`)

	tocHeadingRe = regexp.MustCompile(`^(#{2,3})[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	fenceRe      = regexp.MustCompile("^[ \t]*(```|~~~)")

	idStripRe  = regexp.MustCompile(`[^\w\s-]`)
	idSpaceRe  = regexp.MustCompile(`\s+`)
	idHyphenRe = regexp.MustCompile(`-+`)
)

// Markdown converts the small Markdown subset used in notebook cells:
// headings 1-3, bold, italic, inline code, links, and hard line breaks.
// Raw HTML in the source passes through.
func Markdown(src string) string {
	// Inline code is swapped out first so emphasis rules cannot reach into it.
	var spans []string
	out := mdCodeRe.ReplaceAllStringFunc(src, func(m string) string {
		inner := mdCodeRe.FindStringSubmatch(m)[1]
		spans = append(spans, "<code>"+html.EscapeString(inner)+"</code>")
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	})

	out = mdHeadingRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := mdHeadingRe.FindStringSubmatch(m)
		level := len(sub[1])
		id := HeadingID(headingText(restoreSpans(sub[2], spans, true)))
		return fmt.Sprintf(`<h%d id="%s">%s</h%d>`, level, id, sub[2], level)
	})
	out = mdBoldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = mdItalicRe.ReplaceAllString(out, "<em>$1</em>")
	out = mdLinkRe.ReplaceAllString(out, `<a href="$2">$1</a>`)
	out = mdBlockEnd.ReplaceAllString(out, "$1")
	out = strings.ReplaceAll(strings.TrimRight(out, "\n"), "\n", "<br>")
	return restoreSpans(out, spans, false)
}

// restoreSpans puts inline code back. With raw set it restores the original
// backtick form, which heading ids are derived from.
func restoreSpans(s string, spans []string, raw bool) string {
	return mdHolderRe.ReplaceAllStringFunc(s, func(m string) string {
		i, err := strconv.Atoi(mdHolderRe.FindStringSubmatch(m)[1])
		if err != nil || i >= len(spans) {
			return m
		}
		if raw {
			inner := strings.TrimSuffix(strings.TrimPrefix(spans[i], "<code>"), "</code>")
			return "`" + html.UnescapeString(inner) + "`"
		}
		return spans[i]
	})
}

// ExtractHeadings returns the level 2 and 3 headings of a Markdown source.
// Headings inside fenced code blocks are ignored.
func ExtractHeadings(src string) []Heading {
	var out []Heading
	inFence := false
	for _, line := range strings.Split(src, "\n") {
		if fenceRe.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := tocHeadingRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		text := headingText(m[2])
		out = append(out, Heading{
			ID:    HeadingID(text),
			Text:  text,
			Level: len(m[1]),
		})
	}
	return out
}

var (
	plainBoldRe   = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	plainItalicRe = regexp.MustCompile(`\*([^*]+)\*|\b_([^_]+)_\b`)
	plainCodeRe   = regexp.MustCompile("`([^`]+)`")
	plainLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
)

// headingText strips inline Markdown from a heading, leaving its plain text.
func headingText(s string) string {
	s = plainLinkRe.ReplaceAllString(s, "$1")
	s = plainCodeRe.ReplaceAllString(s, "$1")
	s = plainBoldRe.ReplaceAllString(s, "$1$2")
	s = plainItalicRe.ReplaceAllString(s, "$1$2")
	return strings.TrimSpace(s)
}

// HeadingID derives an anchor id: lowercase, drop anything that is not a
// word character, space, or hyphen, turn whitespace runs into hyphens, and
// collapse repeated hyphens. Leading and trailing hyphens are trimmed.
func HeadingID(text string) string {
	id := strings.ToLower(text)
	id = idStripRe.ReplaceAllString(id, "")
	id = idSpaceRe.ReplaceAllString(strings.TrimSpace(id), "-")
	id = idHyphenRe.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}
