package notebook

import "strings"

// Format is a notebook encoding.
type Format int

const (
	// FormatCanonicalJSON is the nbformat cell-array JSON encoding.
	FormatCanonicalJSON Format = iota
	// FormatXMLTagged is the <VSCode.Cell> text encoding.
	FormatXMLTagged
)

func (f Format) String() string {
	if f == FormatXMLTagged {
		return "xml-tagged"
	}
	return "canonical-json"
}

const cellMarker = "<VSCode.Cell"

// Detect classifies text by the presence of the VS Code cell marker. It does
// no further validation; malformed XML-tagged text fails in ExtractCells.
func Detect(text string) Format {
	if strings.Contains(text, cellMarker) {
		return FormatXMLTagged
	}
	return FormatCanonicalJSON
}
