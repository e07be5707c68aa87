package notebook

import (
	"regexp"
	"strings"
)

// Rule is one step of the XML-cell cleanup. Apply must be total: it never
// fails and never panics, whatever the input.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Cleaner is an ordered rule pipeline.
type Cleaner []Rule

// Clean runs every rule in order.
func (c Cleaner) Clean(text string) string {
	for _, r := range c {
		text = r.Apply(text)
	}
	return text
}

// Without returns a copy of c with the named rules removed.
func (c Cleaner) Without(names ...string) Cleaner {
	out := make(Cleaner, 0, len(c))
	for _, r := range c {
		skip := false
		for _, n := range names {
			if r.Name == n {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, r)
		}
	}
	return out
}

// DefaultCleaner strips the styling residue the VS Code exporter leaves in
// cell text. The heuristics are lossy: a literal 3-4 digit number surrounded
// by spaces, for example, is indistinguishable from an injected line marker
// and is removed.
//
// Non-breaking spaces are decoded before line markers are stripped, since a
// marker may sit between them. Whitespace is collapsed last, so every cleaned
// cell is a single line.
var DefaultCleaner = Cleaner{
	{Name: "strip-tags", Apply: stripTags},
	{Name: "strip-attributes", Apply: stripAttributes},
	{Name: "strip-utility-classes", Apply: stripUtilityClasses},
	{Name: "strip-font-weights", Apply: stripFontWeights},
	{Name: "decode-nbsp", Apply: decodeNBSP},
	{Name: "strip-line-markers", Apply: stripLineMarkers},
	{Name: "decode-entities", Apply: decodeEntities},
	{Name: "repair-keywords", Apply: repairKeywords},
	{Name: "repair-comments", Apply: repairComments},
	{Name: "collapse-whitespace", Apply: collapseWhitespace},
}

// Clean applies DefaultCleaner. Re-cleaning its output is a no-op as long as
// the input carried no HTML entities; decoded entities can form new markup.
func Clean(text string) string {
	return DefaultCleaner.Clean(text)
}

var (
	tagRe = regexp.MustCompile(`(?s)<!--.*?-->|</?[A-Za-z][^<>]*>`)

	attrRe         = regexp.MustCompile(`\s*\b(?:class|style)\s*=\s*"[^"]*"`)
	danglingTailRe = regexp.MustCompile(`"[^"\n]*">`)
	danglingHeadRe = regexp.MustCompile(`>\s*"[^"\n]*"`)

	utilityClassRe = regexp.MustCompile(
		`\b(?:text|bg|border)-[a-z]+-\d{2,3}\b` +
			`|\btext-(?:xs|sm|base|lg|[2-9]?xl)\b` +
			`|\bfont-(?:thin|extralight|light|normal|medium|semibold|bold|extrabold|black|mono|sans|serif)\b`)
	fontWeightRe = regexp.MustCompile(
		`(?i)\b[1-9]00\s+(?:thin|light|normal|regular|medium|semibold|bold|extrabold|black|italic)\b` +
			`|\bfont-weight\s*:\s*\d+;?`)

	lineStartMarkerRe = regexp.MustCompile(`(?m)^\s*(?:\d{3,4}\s+)+`)
	inlineMarkerRe    = regexp.MustCompile(`(?:\s+\d{3,4})+\s+`)

	entityReplacer = strings.NewReplacer(
		"&quot;", `"`,
		"&gt;", ">",
		"&lt;", "<",
		"&amp;", "&",
		"&nbsp;", " ",
	)

	keywordDigitRe = regexp.MustCompile(`\b(import|from|def|class)\s+(?:\d+\s+)+`)
	printSpaceRe   = regexp.MustCompile(`\bprint\s+\d+\s*\(`)
	printArgRe     = regexp.MustCompile(`\bprint\(\s*\d+\s+(["'A-Za-z_])`)
	pipInstallRe   = regexp.MustCompile(`\bpip\s+\d+\s+install\b`)

	commentDigitRe = regexp.MustCompile(`#\s*\d+\s*([A-Za-z])`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

func stripAttributes(s string) string {
	s = attrRe.ReplaceAllString(s, "")
	s = danglingTailRe.ReplaceAllString(s, "")
	return danglingHeadRe.ReplaceAllString(s, "")
}

func stripUtilityClasses(s string) string {
	return utilityClassRe.ReplaceAllString(s, "")
}

func stripFontWeights(s string) string {
	return fontWeightRe.ReplaceAllString(s, "")
}

func decodeNBSP(s string) string {
	return strings.ReplaceAll(s, "&nbsp;", " ")
}

func stripLineMarkers(s string) string {
	s = lineStartMarkerRe.ReplaceAllString(s, "")
	return inlineMarkerRe.ReplaceAllString(s, " ")
}

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

func repairKeywords(s string) string {
	s = keywordDigitRe.ReplaceAllString(s, "$1 ")
	s = printSpaceRe.ReplaceAllString(s, "print(")
	s = printArgRe.ReplaceAllString(s, "print($1")
	return pipInstallRe.ReplaceAllString(s, "pip install")
}

func repairComments(s string) string {
	return commentDigitRe.ReplaceAllString(s, "# $1")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
