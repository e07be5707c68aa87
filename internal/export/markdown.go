// Package export flattens canonical notebooks into plain Markdown, used as
// the search body and for agent reads.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
)

var (
	htmlConv = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)

	ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
)

// DefaultLanguage tags code fences when the document names no language.
const DefaultLanguage = "python"

// Markdown renders doc as Markdown. Markdown cells are copied verbatim, code
// cells are fenced with the document language, and outputs follow their
// cell.
func Markdown(doc *notebook.Document) string {
	lang := doc.Language()
	if lang == "" {
		lang = DefaultLanguage
	}
	var sections []string
	for _, c := range doc.Cells {
		src := strings.TrimRight(c.Text(), "\n")
		switch c.Kind {
		case notebook.KindMarkdown:
			if strings.TrimSpace(src) != "" {
				sections = append(sections, src)
			}
		case notebook.KindCode:
			cl := c.Language()
			if cl == "" {
				cl = lang
			}
			if strings.TrimSpace(src) != "" {
				sections = append(sections, fence(cl, src))
			}
			for _, o := range c.Outputs {
				if s := Output(o); s != "" {
					sections = append(sections, s)
				}
			}
		case notebook.KindRaw:
			if strings.TrimSpace(src) != "" {
				sections = append(sections, fence("", src))
			}
		}
	}
	return strings.Join(sections, "\n\n")
}

// Output renders one output as Markdown, or "" when it carries nothing
// textual.
func Output(o notebook.Output) string {
	switch v := o.(type) {
	case notebook.Stream:
		return textBlock(v.Text)
	case notebook.DisplayData:
		return media(v.Data)
	case notebook.ExecuteResult:
		return media(v.Data)
	case notebook.Error:
		var b strings.Builder
		fmt.Fprintf(&b, "**%s:** %s", v.Name, v.Message)
		if len(v.Traceback) > 0 {
			b.WriteString("\n\n")
			b.WriteString(textBlock(strings.Join(v.Traceback, "\n")))
		}
		return b.String()
	}
	return ""
}

func media(bundle notebook.MediaBundle) string {
	if h, ok := bundle["text/html"]; ok {
		if md, err := htmlConv.ConvertString(h); err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md)
		}
	}
	for _, mime := range []string{"image/png", "image/jpeg"} {
		if _, ok := bundle[mime]; ok {
			return "![Output image](" + mime + ")"
		}
	}
	if p, ok := bundle["text/plain"]; ok {
		return textBlock(p)
	}
	return ""
}

func textBlock(s string) string {
	s = strings.TrimRight(ansiRe.ReplaceAllString(s, ""), "\n")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return fence("", s)
}

func fence(lang, body string) string {
	ticks := "```"
	for strings.Contains(body, ticks) {
		ticks += "`"
	}
	return ticks + lang + "\n" + body + "\n" + ticks
}
