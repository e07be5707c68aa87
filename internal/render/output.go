package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
)

// mediaPriority is the order in which a rich output's representations are
// tried. The first one present wins.
var mediaPriority = []string{"text/html", "image/png", "image/jpeg", "text/plain"}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// Output renders one cell output. Rich outputs with none of the supported
// media types render as "".
func Output(o notebook.Output) string {
	switch v := o.(type) {
	case notebook.Stream:
		return fmt.Sprintf(`<div class="output-stream output-%s"><pre>%s</pre></div>`,
			html.EscapeString(v.Name), escapeTerminal(v.Text))
	case notebook.DisplayData:
		return media(v.Data)
	case notebook.ExecuteResult:
		return media(v.Data)
	case notebook.Error:
		return errorOutput(v)
	}
	return ""
}

func media(bundle notebook.MediaBundle) string {
	for _, mime := range mediaPriority {
		payload, ok := bundle[mime]
		if !ok {
			continue
		}
		switch mime {
		case "text/html":
			return `<div class="output-html">` + payload + `</div>`
		case "image/png", "image/jpeg":
			return fmt.Sprintf(`<div class="output-image"><img src="data:%s;base64,%s" alt="Output image"></div>`,
				mime, strings.Join(strings.Fields(payload), ""))
		case "text/plain":
			return `<div class="output-text"><pre>` + escapeTerminal(payload) + `</pre></div>`
		}
	}
	return ""
}

func errorOutput(e notebook.Error) string {
	var b strings.Builder
	b.WriteString(`<div class="output-error">`)
	if e.Name != "" {
		fmt.Fprintf(&b, `<div class="error-name">%s</div>`, html.EscapeString(e.Name))
	}
	if e.Message != "" {
		fmt.Fprintf(&b, `<div class="error-value">%s</div>`, html.EscapeString(e.Message))
	}
	if len(e.Traceback) > 0 {
		fmt.Fprintf(&b, `<pre class="error-traceback">%s</pre>`, escapeTerminal(strings.Join(e.Traceback, "\n")))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// escapeTerminal drops ANSI colour sequences, which kernels emit in
// tracebacks and stream text, then HTML-escapes the rest.
func escapeTerminal(s string) string {
	return html.EscapeString(ansiRe.ReplaceAllString(s, ""))
}
