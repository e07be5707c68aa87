package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

type nbFile struct {
	Cells         []nbCell       `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

type nbCell struct {
	CellType string `json:"cell_type"`
	// ExecutionCount and Outputs are only set on code cells, where a nil
	// count still has to be written as null.
	ExecutionCount any            `json:"execution_count,omitempty"`
	Metadata       map[string]any `json:"metadata"`
	Outputs        any            `json:"outputs,omitempty"`
	Source         []string       `json:"source"`
}

// Marshal encodes doc as nbformat JSON with one-space indentation, the way
// Jupyter writes .ipynb files.
func Marshal(doc *Document) ([]byte, error) {
	f := nbFile{
		Cells:         make([]nbCell, 0, len(doc.Cells)),
		Metadata:      doc.Metadata,
		NBFormat:      doc.Version.Major,
		NBFormatMinor: doc.Version.Minor,
	}
	if f.Metadata == nil {
		f.Metadata = map[string]any{}
	}
	for _, c := range doc.Cells {
		nc := nbCell{
			CellType: string(c.Kind),
			Metadata: c.Metadata,
			Source:   c.Source,
		}
		if nc.Metadata == nil {
			nc.Metadata = map[string]any{}
		}
		if nc.Source == nil {
			nc.Source = []string{}
		}
		if c.Kind == KindCode {
			nc.ExecutionCount = c.ExecutionCount
			outputs := make([]map[string]any, 0, len(c.Outputs))
			for _, o := range c.Outputs {
				outputs = append(outputs, encodeOutput(o))
			}
			nc.Outputs = outputs
		}
		f.Cells = append(f.Cells, nc)
	}
	out, err := json.MarshalIndent(f, "", " ")
	if err != nil {
		return nil, fmt.Errorf("notebook: marshal: %w", err)
	}
	return append(out, '\n'), nil
}

func encodeOutput(o Output) map[string]any {
	m := map[string]any{"output_type": o.outputType()}
	switch v := o.(type) {
	case Stream:
		m["name"] = v.Name
		m["text"] = splitLines(v.Text)
	case DisplayData:
		m["data"] = encodeBundle(v.Data)
		m["metadata"] = nonNil(v.Metadata)
	case ExecuteResult:
		m["data"] = encodeBundle(v.Data)
		m["metadata"] = nonNil(v.Metadata)
		m["execution_count"] = v.ExecutionCount
	case Error:
		m["ename"] = v.Name
		m["evalue"] = v.Message
		m["traceback"] = v.Traceback
	}
	return m
}

// encodeBundle writes text payloads as line arrays and everything else
// (base64 images, raw JSON) as a single string.
func encodeBundle(b MediaBundle) map[string]any {
	out := make(map[string]any, len(b))
	for mime, payload := range b {
		if strings.HasPrefix(mime, "text/") {
			out[mime] = splitLines(payload)
		} else {
			out[mime] = payload
		}
	}
	return out
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
