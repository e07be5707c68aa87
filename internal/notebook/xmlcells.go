package notebook

import (
	"fmt"
	"regexp"
)

// RawCell is one cell region pulled out of XML-tagged text.
type RawCell struct {
	ID       string
	Language string
	// Text is the cleaned inner text.
	Text string
}

// Kind maps the language attribute to a cell kind. The XML-tagged format
// has no raw cells.
func (c RawCell) Kind() CellKind {
	if c.Language == "markdown" {
		return KindMarkdown
	}
	return KindCode
}

var (
	cellRegionRe = regexp.MustCompile(`(?s)<VSCode\.Cell\b([^>]*)>(.*?)</VSCode\.Cell>`)
	cellAttrRe   = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*"([^"]*)"`)
)

// ExtractCells scans text for <VSCode.Cell id=".." language="..">
// regions in document order and cleans each inner span with c. Regions
// missing either attribute are skipped. It returns ErrMalformedNotebook
// when no usable region is found.
func ExtractCells(text string, c Cleaner) ([]RawCell, error) {
	var cells []RawCell
	for _, m := range cellRegionRe.FindAllStringSubmatch(text, -1) {
		attrs := parseAttrs(m[1])
		id, hasID := attrs["id"]
		lang, hasLang := attrs["language"]
		if !hasID || !hasLang {
			continue
		}
		cells = append(cells, RawCell{
			ID:       id,
			Language: lang,
			Text:     c.Clean(m[2]),
		})
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("notebook: no <VSCode.Cell> regions: %w", ErrMalformedNotebook)
	}
	return cells, nil
}

func parseAttrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range cellAttrRe.FindAllStringSubmatch(s, -1) {
		if _, dup := out[m[1]]; !dup {
			out[m[1]] = m[2]
		}
	}
	return out
}
