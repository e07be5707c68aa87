package render

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer renders whole Markdown tutorials. Heading anchors use
// HeadingID so they line up with ExtractHeadings.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer returns a renderer whose fenced code blocks are
// highlighted with the named chroma style.
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "github"
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &MarkdownRenderer{md: md}
}

// Render strips YAML front matter from source and renders the body.
func (r *MarkdownRenderer) Render(source []byte) (*Page, error) {
	body, err := StripFrontMatter(source)
	if err != nil {
		return nil, err
	}
	ctx := parser.NewContext(parser.WithIDs(headingIDs{}))
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("render: markdown: %w", err)
	}
	out := buf.String()
	headings := ExtractHeadings(string(body))
	if headings == nil {
		headings = []Heading{}
	}
	return &Page{
		Fragments: []string{out},
		HTML:      out,
		Headings:  headings,
	}, nil
}

// StripFrontMatter returns source without a leading YAML front matter block.
// Source without front matter is returned unchanged.
func StripFrontMatter(source []byte) ([]byte, error) {
	var discard map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(source), &discard)
	if err != nil {
		return nil, fmt.Errorf("render: front matter: %w", err)
	}
	return body, nil
}

// headingIDs derives goldmark heading ids with HeadingID. Duplicates are not
// suffixed, matching ExtractHeadings.
type headingIDs struct{}

func (headingIDs) Generate(value []byte, _ ast.NodeKind) []byte {
	id := HeadingID(headingText(string(value)))
	if id == "" {
		id = "heading"
	}
	return []byte(id)
}

func (headingIDs) Put(_ []byte) {}
