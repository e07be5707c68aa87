// Package render turns canonical notebooks and Markdown tutorials into HTML
// fragments and table-of-contents headings.
package render

import (
	"context"
	"fmt"
	"html"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/theaibuilders/ai-builders-tutorial/internal/highlight"
	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
)

// DefaultLanguage is used for code cells when neither the cell nor the
// document names a language.
const DefaultLanguage = "python"

// Page is the rendered form of one tutorial file.
type Page struct {
	// Fragments holds one entry per cell, in document order. Markdown
	// tutorials produce a single fragment.
	Fragments []string  `json:"-"`
	HTML      string    `json:"html"`
	Headings  []Heading `json:"headings"`
}

// Renderer renders notebook cells. It is safe for concurrent use.
type Renderer struct {
	hl          highlight.Highlighter
	defaultLang string
	workers     int
	newID       func() string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDefaultLanguage sets the fallback code-cell language.
func WithDefaultLanguage(lang string) Option {
	return func(r *Renderer) {
		if lang != "" {
			r.defaultLang = lang
		}
	}
}

// WithWorkers bounds how many cells of one document render at once.
func WithWorkers(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New returns a Renderer. h may be nil, in which case code is never
// highlighted.
func New(h highlight.Highlighter, opts ...Option) *Renderer {
	r := &Renderer{
		hl:          h,
		defaultLang: DefaultLanguage,
		workers:     runtime.GOMAXPROCS(0),
		newID:       newCellID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newCellID() string {
	return "cell-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Document renders every cell of doc. Cells render concurrently; fragments
// keep document order. A nil doc yields an empty page.
func (r *Renderer) Document(ctx context.Context, doc *notebook.Document) (*Page, error) {
	if doc == nil {
		return &Page{Fragments: []string{}, Headings: []Heading{}}, nil
	}
	lang := doc.Language()
	frags := make([]string, len(doc.Cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, c := range doc.Cells {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frags[i] = r.cell(c, lang)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	var headings []Heading
	for _, c := range doc.Cells {
		if c.Kind == notebook.KindMarkdown {
			headings = append(headings, ExtractHeadings(c.Text())...)
		}
	}
	if headings == nil {
		headings = []Heading{}
	}

	return &Page{
		Fragments: frags,
		HTML:      strings.Join(frags, "\n"),
		Headings:  headings,
	}, nil
}

// Cell renders a single cell. Each call assigns a fresh cell id.
func (r *Renderer) Cell(c notebook.Cell) string {
	return r.cell(c, "")
}

func (r *Renderer) cell(c notebook.Cell, docLang string) string {
	id := r.newID()
	switch c.Kind {
	case notebook.KindMarkdown:
		return fmt.Sprintf(`<div class="notebook-cell markdown-cell" data-cell-id="%s"><div class="cell-content prose">%s</div></div>`,
			id, Markdown(c.Text()))
	case notebook.KindCode:
		return r.codeCell(id, c, docLang)
	case notebook.KindRaw:
		return fmt.Sprintf(`<div class="notebook-cell raw-cell" data-cell-id="%s"><pre class="raw-content">%s</pre></div>`,
			id, html.EscapeString(c.Text()))
	}
	return ""
}

func (r *Renderer) codeCell(id string, c notebook.Cell, docLang string) string {
	src := c.Text()
	lang := c.Language()
	if lang == "" {
		lang = docLang
	}
	if lang == "" {
		lang = r.defaultLang
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="notebook-cell code-cell" data-cell-id="%s">`, id)
	b.WriteString(`<div class="cell-input">`)
	fmt.Fprintf(&b, `<div class="cell-prompt"><span class="execution-count">In %s:</span></div>`, executionMarker(c.ExecutionCount))
	b.WriteString(`<div class="cell-code">`)
	fmt.Fprintf(&b, `<copy-button data-content="%s"></copy-button>`, html.EscapeString(src))
	b.WriteString(r.highlight(src, lang))
	b.WriteString(`</div></div>`)
	if len(c.Outputs) > 0 {
		b.WriteString(`<div class="cell-output">`)
		for _, o := range c.Outputs {
			b.WriteString(Output(o))
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// highlight never fails; any highlighter error falls back to escaped text.
func (r *Renderer) highlight(src, lang string) string {
	if r.hl != nil {
		if out, err := r.hl.Highlight(src, lang); err == nil {
			return out
		}
	}
	return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`,
		html.EscapeString(lang), html.EscapeString(src))
}

func executionMarker(n *int) string {
	if n == nil {
		return "[ ]"
	}
	return fmt.Sprintf("[%d]", *n)
}
