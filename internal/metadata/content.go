package metadata

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
)

// Content is metadata found inside a tutorial file. Empty fields were not
// present.
type Content struct {
	Title       string
	Description string
	Author      string
	Tags        []string
	Difficulty  string
}

type frontMatterEnvelope struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Tags        any    `yaml:"tags"`
	Difficulty  string `yaml:"difficulty"`
}

// minDescWidth is the length a notebook prose line must exceed to serve as
// the description.
const minDescWidth = 20

var (
	h1Re        = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
	cellTitleRe = regexp.MustCompile(`(?m)^#{1,3}\s*(?:\*\*)?(.+?)(?:\*\*)?\s*$`)
)

// FromMarkdown extracts metadata from a Markdown tutorial. YAML front matter
// wins; without it the first level-1 heading is the title and the first
// paragraph after it the description. Malformed front matter is ignored.
func FromMarkdown(data []byte) Content {
	var env frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(data), &env)
	if err != nil {
		env = frontMatterEnvelope{}
		body = data
	}
	c := Content{
		Title:       strings.TrimSpace(env.Title),
		Description: strings.TrimSpace(env.Description),
		Author:      strings.TrimSpace(env.Author),
		Tags:        tagList(env.Tags),
		Difficulty:  strings.TrimSpace(env.Difficulty),
	}

	text := string(body)
	if c.Title == "" {
		if m := h1Re.FindStringSubmatch(text); m != nil {
			c.Title = m[1]
		}
	}
	if c.Description == "" {
		c.Description = firstParagraph(text)
	}
	return c
}

// firstParagraph returns the first non-heading line after the first heading.
func firstParagraph(body string) string {
	foundTitle := false
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			foundTitle = true
			continue
		}
		if foundTitle && trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// FromNotebook extracts metadata from a notebook. Document metadata keys
// title, author, description, tags and difficulty win; otherwise the first
// markdown cell supplies a heading title and the first long prose line.
func FromNotebook(doc *notebook.Document) Content {
	var c Content
	if doc == nil {
		return c
	}
	c.Title = stringKey(doc.Metadata, "title")
	c.Author = stringKey(doc.Metadata, "author")
	c.Description = stringKey(doc.Metadata, "description")
	c.Difficulty = stringKey(doc.Metadata, "difficulty")
	c.Tags = tagList(doc.Metadata["tags"])

	var first *notebook.Cell
	for i := range doc.Cells {
		if doc.Cells[i].Kind == notebook.KindMarkdown {
			first = &doc.Cells[i]
			break
		}
	}
	if first == nil {
		return c
	}
	src := first.Text()
	if c.Title == "" {
		if m := cellTitleRe.FindStringSubmatch(src); m != nil {
			c.Title = strings.TrimSpace(m[1])
		}
	}
	if c.Description == "" {
		for _, line := range strings.Split(src, "\n") {
			t := strings.TrimSpace(line)
			if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "**") {
				continue
			}
			if len(line) > minDescWidth {
				c.Description = t
				break
			}
		}
	}
	return c
}

func stringKey(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// tagList accepts a YAML/JSON list or a comma-separated string.
func tagList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
