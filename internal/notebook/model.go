// Package notebook builds the canonical in-memory notebook from either the
// nbformat JSON encoding or the XML-tagged text exported by VS Code.
package notebook

import "strings"

// CellKind is the type of a notebook cell.
type CellKind string

// Cell kinds.
const (
	KindMarkdown CellKind = "markdown"
	KindCode     CellKind = "code"
	KindRaw      CellKind = "raw"
)

func (k CellKind) valid() bool {
	switch k {
	case KindMarkdown, KindCode, KindRaw:
		return true
	}
	return false
}

// FormatVersion is the nbformat major/minor pair.
type FormatVersion struct {
	Major int
	Minor int
}

// CurrentVersion is stamped on every built document.
var CurrentVersion = FormatVersion{Major: 4, Minor: 4}

// Document is a finished notebook. It is never mutated after Build*.
type Document struct {
	Cells    []Cell
	Metadata map[string]any
	Version  FormatVersion
}

// Language returns the document-level language name from kernelspec or
// language_info, or "" if neither carries one.
func (d *Document) Language() string {
	if d == nil {
		return ""
	}
	if li, ok := d.Metadata["language_info"].(map[string]any); ok {
		if name, ok := li["name"].(string); ok && name != "" {
			return name
		}
	}
	if ks, ok := d.Metadata["kernelspec"].(map[string]any); ok {
		if lang, ok := ks["language"].(string); ok && lang != "" {
			return lang
		}
	}
	return ""
}

// Cell is one markdown, code, or raw unit.
type Cell struct {
	Kind   CellKind
	Source []string
	// Outputs is non-nil for code cells and nil otherwise.
	Outputs []Output
	// ExecutionCount is nil when the cell has not run.
	ExecutionCount *int
	Metadata       map[string]any
}

// Text joins the source lines back into the cell text.
func (c Cell) Text() string {
	return strings.Join(c.Source, "")
}

// Language returns the per-cell language override, if any.
func (c Cell) Language() string {
	if lang, ok := c.Metadata["language"].(string); ok {
		return lang
	}
	if vs, ok := c.Metadata["vscode"].(map[string]any); ok {
		if lang, ok := vs["languageId"].(string); ok {
			return lang
		}
	}
	return ""
}

// Output is the captured result of running a code cell. The concrete types
// are Stream, DisplayData, ExecuteResult, and Error.
type Output interface {
	outputType() string
}

// MediaBundle maps a MIME type to its payload. Text payloads are the joined
// lines; image payloads are the base64 blob.
type MediaBundle map[string]string

// Stream is text written to stdout or stderr.
type Stream struct {
	Name string
	Text string
}

// DisplayData is a rich display produced by the kernel.
type DisplayData struct {
	Data     MediaBundle
	Metadata map[string]any
}

// ExecuteResult is the value of the last expression in a cell.
type ExecuteResult struct {
	Data           MediaBundle
	Metadata       map[string]any
	ExecutionCount *int
}

// Error is a raised exception.
type Error struct {
	Name      string
	Message   string
	Traceback []string
}

func (Stream) outputType() string        { return "stream" }
func (DisplayData) outputType() string   { return "display_data" }
func (ExecuteResult) outputType() string { return "execute_result" }
func (Error) outputType() string         { return "error" }

// defaultMetadata is attached to documents built from XML-tagged text, which
// carries no kernel information of its own.
func defaultMetadata() map[string]any {
	return map[string]any{
		"kernelspec": map[string]any{
			"display_name": "Python 3",
			"language":     "python",
			"name":         "python3",
		},
		"language_info": map[string]any{
			"name":     "python",
			"version":  "3.8.0",
			"mimetype": "text/x-python",
			"codemirror_mode": map[string]any{
				"name":    "ipython",
				"version": 3,
			},
			"pygments_lexer":     "ipython3",
			"nbconvert_exporter": "python",
			"file_extension":     ".py",
		},
	}
}
