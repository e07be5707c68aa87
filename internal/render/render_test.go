package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/theaibuilders/ai-builders-tutorial/internal/highlight"
	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
)

// stubHighlighter wraps code in a marker element, or fails when err is set.
type stubHighlighter struct {
	err   error
	calls atomic.Int32
	langs chan string
}

func (s *stubHighlighter) Highlight(code, language string) (string, error) {
	s.calls.Add(1)
	if s.langs != nil {
		s.langs <- language
	}
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf(`<pre class="hl" data-lang="%s">%s</pre>`, language, code), nil
}

func parseHTML(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func intp(n int) *int { return &n }

func codeCell(src string, count *int, outputs ...notebook.Output) notebook.Cell {
	if outputs == nil {
		outputs = []notebook.Output{}
	}
	return notebook.Cell{
		Kind:           notebook.KindCode,
		Source:         []string{src},
		Outputs:        outputs,
		ExecutionCount: count,
		Metadata:       map[string]any{},
	}
}

func TestExecutionMarker(t *testing.T) {
	r := New(nil)
	cases := []struct {
		count *int
		want  string
	}{
		{nil, "In [ ]:"},
		{intp(5), "In [5]:"},
		{intp(0), "In [0]:"},
	}
	for _, tc := range cases {
		doc := parseHTML(t, r.Cell(codeCell("x", tc.count)))
		got := doc.Find(".execution-count").Text()
		if got != tc.want {
			t.Errorf("marker = %q, want %q", got, tc.want)
		}
	}
}

func TestCodeCell_Highlighted(t *testing.T) {
	h := &stubHighlighter{}
	r := New(h)
	doc := parseHTML(t, r.Cell(codeCell("print(1)", nil)))

	if doc.Find(".cell-code pre.hl").Length() != 1 {
		t.Error("highlighted block missing")
	}
	if lang, _ := doc.Find("pre.hl").Attr("data-lang"); lang != DefaultLanguage {
		t.Errorf("language = %q, want %q", lang, DefaultLanguage)
	}
	if v, _ := doc.Find("copy-button").Attr("data-content"); v != "print(1)" {
		t.Errorf("copy payload = %q", v)
	}
	if doc.Find(".cell-output").Length() != 0 {
		t.Error("no output block expected for empty outputs")
	}
}

func TestCodeCell_FallbackOnHighlightError(t *testing.T) {
	h := &stubHighlighter{err: highlight.ErrUnavailable}
	r := New(h)
	out := r.Cell(codeCell(`if a < b: print("x")`, nil))
	doc := parseHTML(t, out)

	code := doc.Find("pre code.language-python")
	if code.Length() != 1 {
		t.Fatalf("fallback block missing in %s", out)
	}
	if code.Text() != `if a < b: print("x")` {
		t.Errorf("fallback text = %q", code.Text())
	}
	if !strings.Contains(out, "&lt;") {
		t.Error("fallback must escape source")
	}
}

func TestCodeCell_LanguageResolution(t *testing.T) {
	h := &stubHighlighter{langs: make(chan string, 8)}
	r := New(h, WithDefaultLanguage("bash"))

	c := codeCell("x", nil)
	c.Metadata = map[string]any{"language": "javascript"}
	r.Cell(c)
	if got := <-h.langs; got != "javascript" {
		t.Errorf("cell override = %q", got)
	}

	r.Cell(codeCell("x", nil))
	if got := <-h.langs; got != "bash" {
		t.Errorf("default = %q", got)
	}

	doc := &notebook.Document{
		Cells:    []notebook.Cell{codeCell("x", nil)},
		Metadata: map[string]any{"language_info": map[string]any{"name": "r"}},
	}
	if _, err := r.Document(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if got := <-h.langs; got != "r" {
		t.Errorf("document language = %q", got)
	}
}

func TestMarkdownCell(t *testing.T) {
	r := New(nil)
	c := notebook.Cell{
		Kind:     notebook.KindMarkdown,
		Source:   []string{"## Getting *Started*\n", "Use **bold** and `code` with [link](http://x.io)\n", "next"},
		Metadata: map[string]any{},
	}
	doc := parseHTML(t, r.Cell(c))

	content := doc.Find(".markdown-cell .cell-content.prose")
	if content.Length() != 1 {
		t.Fatal("content container missing")
	}
	h2 := content.Find("h2#getting-started")
	if h2.Length() != 1 || h2.Find("em").Text() != "Started" {
		t.Errorf("heading not rendered: %s", mustHTML(content))
	}
	if content.Find("strong").Text() != "bold" {
		t.Error("bold missing")
	}
	if content.Find("code").Text() != "code" {
		t.Error("inline code missing")
	}
	if href, _ := content.Find("a").Attr("href"); href != "http://x.io" {
		t.Errorf("link href = %q", href)
	}
	if content.Find("br").Length() != 1 {
		t.Errorf("br count = %d, want 1", content.Find("br").Length())
	}
}

func TestRawCell(t *testing.T) {
	r := New(&stubHighlighter{})
	c := notebook.Cell{Kind: notebook.KindRaw, Source: []string{"<b>**raw**</b>"}, Metadata: map[string]any{}}
	doc := parseHTML(t, r.Cell(c))
	pre := doc.Find(".raw-cell pre.raw-content")
	if pre.Text() != "<b>**raw**</b>" {
		t.Errorf("raw text = %q", pre.Text())
	}
	if pre.Find("b").Length() != 0 {
		t.Error("raw content must be escaped")
	}
}

func TestCellIDsUnique(t *testing.T) {
	r := New(nil)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		doc := parseHTML(t, r.Cell(codeCell("x", nil)))
		id, _ := doc.Find(".notebook-cell").Attr("data-cell-id")
		if !strings.HasPrefix(id, "cell-") || len(id) != len("cell-")+12 {
			t.Fatalf("bad id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestDocument_PreservesOrder(t *testing.T) {
	r := New(&stubHighlighter{}, WithWorkers(4))
	doc := &notebook.Document{Metadata: map[string]any{}}
	for i := 0; i < 50; i++ {
		doc.Cells = append(doc.Cells, codeCell(fmt.Sprintf("cell_%02d", i), intp(i)))
	}
	page, err := r.Document(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Fragments) != 50 {
		t.Fatalf("fragments = %d", len(page.Fragments))
	}
	for i, f := range page.Fragments {
		if !strings.Contains(f, fmt.Sprintf("cell_%02d", i)) {
			t.Errorf("fragment %d out of order", i)
		}
	}
	if !strings.HasPrefix(page.HTML, page.Fragments[0]) {
		t.Error("HTML should start with the first fragment")
	}
}

func TestDocument_Headings(t *testing.T) {
	r := New(nil)
	doc := &notebook.Document{
		Cells: []notebook.Cell{
			{Kind: notebook.KindMarkdown, Source: []string{"# Title\n", "## One\n"}, Metadata: map[string]any{}},
			codeCell("## not a heading", nil),
			{Kind: notebook.KindMarkdown, Source: []string{"### Two"}, Metadata: map[string]any{}},
		},
		Metadata: map[string]any{},
	}
	page, err := r.Document(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	want := []Heading{{ID: "one", Text: "One", Level: 2}, {ID: "two", Text: "Two", Level: 3}}
	if len(page.Headings) != len(want) {
		t.Fatalf("headings = %+v", page.Headings)
	}
	for i := range want {
		if page.Headings[i] != want[i] {
			t.Errorf("heading %d = %+v, want %+v", i, page.Headings[i], want[i])
		}
	}
}

func TestDocument_Cancelled(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := &notebook.Document{Cells: []notebook.Cell{codeCell("x", nil)}}
	if _, err := r.Document(ctx, doc); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEndToEnd_XMLPrintScenario(t *testing.T) {
	nb, err := notebook.Parse(`<VSCode.Cell id="1" language="python">print(123 "hi")</VSCode.Cell>`)
	if err != nil {
		t.Fatal(err)
	}
	hl := highlight.NewChroma(highlight.Options{Style: "github"})
	page, err := New(hl).Document(context.Background(), nb)
	if err != nil {
		t.Fatal(err)
	}
	doc := parseHTML(t, page.HTML)
	if got := doc.Find(".execution-count").Text(); got != "In [ ]:" {
		t.Errorf("marker = %q", got)
	}
	if v, _ := doc.Find("copy-button").Attr("data-content"); v != `print("hi")` {
		t.Errorf("source = %q", v)
	}
	if strings.Contains(doc.Find(".cell-code").Text(), "123") {
		t.Error("numeric artifact survived")
	}
	if doc.Find(".cell-code pre").Length() == 0 {
		t.Error("code block missing")
	}
}

func mustHTML(s *goquery.Selection) string {
	h, _ := s.Html()
	return h
}

func TestDocument_Nil(t *testing.T) {
	page, err := New(nil).Document(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if page.HTML != "" || len(page.Fragments) != 0 || page.Headings == nil {
		t.Errorf("page = %+v, want empty with non-nil headings", page)
	}
}
