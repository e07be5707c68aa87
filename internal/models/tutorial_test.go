package models

import "testing"

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"intro.md":               KindMarkdown,
		"a/b/Guide.MARKDOWN":     KindMarkdown,
		"agents/chain.ipynb":     KindNotebook,
		"images/diagram.png":     "",
		"tutorial-metadata.json": "",
		"noext":                  "",
	}
	for p, want := range cases {
		if got := KindOf(p); got != want {
			t.Errorf("KindOf(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestSectionSlug(t *testing.T) {
	cases := map[string]string{
		"agents/langchain.ipynb": "agents",
		"rag/deep/vectors.md":    "rag",
		"readme.md":              "",
	}
	for p, want := range cases {
		if got := SectionSlug(p); got != want {
			t.Errorf("SectionSlug(%q) = %q, want %q", p, got, want)
		}
	}
}
