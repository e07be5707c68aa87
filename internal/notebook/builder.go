package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNotMultiline = errors.New("expected string or array of strings")

// Parse detects the encoding of text and builds the canonical document.
func Parse(text string) (*Document, error) {
	if Detect(text) == FormatXMLTagged {
		cells, err := ExtractCells(text, DefaultCleaner)
		if err != nil {
			return nil, err
		}
		return BuildFromCells(cells), nil
	}
	return BuildFromJSON(text)
}

// BuildFromCells assembles a document from extracted XML cells. Document
// metadata is synthesized since the XML-tagged format carries none.
func BuildFromCells(raw []RawCell) *Document {
	cells := make([]Cell, 0, len(raw))
	for _, rc := range raw {
		c := Cell{
			Kind:     rc.Kind(),
			Source:   splitLines(rc.Text),
			Metadata: map[string]any{},
		}
		if c.Kind == KindCode {
			c.Outputs = []Output{}
		}
		cells = append(cells, c)
	}
	return &Document{
		Cells:    cells,
		Metadata: defaultMetadata(),
		Version:  CurrentVersion,
	}
}

// BuildFromJSON parses nbformat JSON. Cells with an unknown cell_type and
// outputs with an unknown output_type are dropped.
func BuildFromJSON(text string) (*Document, error) {
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("notebook: parse: %w", ErrInvalidJSON)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, fmt.Errorf("notebook: top level is not an object: %w", ErrMalformedNotebook)
	}

	rawCells, ok := top["cells"]
	if !ok {
		return nil, fmt.Errorf("notebook: missing cells: %w", ErrMalformedNotebook)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawCells, &entries); err != nil || entries == nil {
		return nil, fmt.Errorf("notebook: cells is not an array: %w", ErrMalformedNotebook)
	}

	doc := &Document{
		Cells:    make([]Cell, 0, len(entries)),
		Metadata: map[string]any{},
		Version:  CurrentVersion,
	}
	if rawMeta, ok := top["metadata"]; ok {
		var meta map[string]any
		if err := json.Unmarshal(rawMeta, &meta); err == nil && meta != nil {
			doc.Metadata = meta
		}
	}

	for i, entry := range entries {
		var jc jsonCell
		if err := json.Unmarshal(entry, &jc); err != nil {
			return nil, fmt.Errorf("notebook: cell %d: %v: %w", i, err, ErrMalformedNotebook)
		}
		cell, ok, err := jc.toCell()
		if err != nil {
			return nil, fmt.Errorf("notebook: cell %d: %w", i, err)
		}
		if ok {
			doc.Cells = append(doc.Cells, cell)
		}
	}
	return doc, nil
}

// multiline is the nbformat "string or list of strings" field. The two
// shapes are kept apart until Lines() normalizes them.
type multiline struct {
	text    string
	lines   []string
	isLines bool
}

func (m *multiline) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = multiline{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = multiline{text: s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(b, &ss); err != nil {
		return errNotMultiline
	}
	*m = multiline{lines: ss, isLines: true}
	return nil
}

func (m multiline) Lines() []string {
	if m.isLines {
		if m.lines == nil {
			return []string{}
		}
		return m.lines
	}
	return splitLines(m.text)
}

func (m multiline) String() string {
	if m.isLines {
		return strings.Join(m.lines, "")
	}
	return m.text
}

type jsonCell struct {
	CellType       string            `json:"cell_type"`
	Source         multiline         `json:"source"`
	Metadata       map[string]any    `json:"metadata"`
	Outputs        []json.RawMessage `json:"outputs"`
	ExecutionCount *int              `json:"execution_count"`
}

func (jc jsonCell) toCell() (Cell, bool, error) {
	kind := CellKind(jc.CellType)
	if !kind.valid() {
		return Cell{}, false, nil
	}
	c := Cell{
		Kind:     kind,
		Source:   jc.Source.Lines(),
		Metadata: jc.Metadata,
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if kind != KindCode {
		return c, true, nil
	}

	c.ExecutionCount = jc.ExecutionCount
	c.Outputs = make([]Output, 0, len(jc.Outputs))
	for j, raw := range jc.Outputs {
		var jo jsonOutput
		if err := json.Unmarshal(raw, &jo); err != nil {
			return Cell{}, false, fmt.Errorf("output %d: %v: %w", j, err, ErrMalformedNotebook)
		}
		if out := jo.toOutput(); out != nil {
			c.Outputs = append(c.Outputs, out)
		}
	}
	return c, true, nil
}

type jsonOutput struct {
	OutputType     string                     `json:"output_type"`
	Name           string                     `json:"name"`
	Text           multiline                  `json:"text"`
	Data           map[string]json.RawMessage `json:"data"`
	Metadata       map[string]any             `json:"metadata"`
	ExecutionCount *int                       `json:"execution_count"`
	Ename          string                     `json:"ename"`
	Evalue         string                     `json:"evalue"`
	Traceback      []string                   `json:"traceback"`
}

func (jo jsonOutput) toOutput() Output {
	meta := jo.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	switch jo.OutputType {
	case "stream":
		name := jo.Name
		if name == "" {
			name = "stdout"
		}
		return Stream{Name: name, Text: jo.Text.String()}
	case "display_data":
		return DisplayData{Data: mediaBundle(jo.Data), Metadata: meta}
	case "execute_result":
		return ExecuteResult{Data: mediaBundle(jo.Data), Metadata: meta, ExecutionCount: jo.ExecutionCount}
	case "error":
		tb := jo.Traceback
		if tb == nil {
			tb = []string{}
		}
		return Error{Name: jo.Ename, Message: jo.Evalue, Traceback: tb}
	}
	return nil
}

// mediaBundle flattens a mime bundle. Payloads that are neither a string nor
// a list of strings (application/json, for one) are kept as raw JSON text.
func mediaBundle(data map[string]json.RawMessage) MediaBundle {
	out := make(MediaBundle, len(data))
	for mime, raw := range data {
		var m multiline
		if err := json.Unmarshal(raw, &m); err == nil {
			out[mime] = m.String()
			continue
		}
		out[mime] = string(raw)
	}
	return out
}

// splitLines splits s after every newline, keeping the terminators, so the
// parts concatenate back to s.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
