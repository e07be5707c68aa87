package site

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
	"github.com/theaibuilders/ai-builders-tutorial/internal/render"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

const langchainNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["# LangChain Agents\n", "\n", "Build a tool-using agent step by step.\n", "## Setup\n"]},
  {"cell_type": "code", "execution_count": 1, "metadata": {}, "source": ["print('hi')"],
   "outputs": [{"output_type": "stream", "name": "stdout", "text": ["hi\n"]}]}
 ],
 "metadata": {"language_info": {"name": "python"}},
 "nbformat": 4,
 "nbformat_minor": 4
}`

func seedContent(t *testing.T) *storage.FS {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"overview/intro.md":             "---\ntitle: Welcome\n---\n\n# Ignored\n\nStart here.\n",
		"overview/tutorial_overview.md": "# Overview\n\nWhat you will learn.\n",
		"agents/langchain.ipynb":        langchainNotebook,
		"agents/broken.ipynb":           "{not json",
		"agents/xml.ipynb":              `<VSCode.Cell id="1" language="markdown"># XML Notebook</VSCode.Cell><VSCode.Cell id="2" language="python">print(1)</VSCode.Cell>`,
		"rag/vectors.md":                "# Vector Stores\n\nEmbeddings everywhere.\n",
		"readme.md":                     "# Root file\n",
	}
	for p, c := range files {
		if err := fs.Write(p, []byte(c)); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func newTestService(t *testing.T, opts ...Option) (*Service, *storage.FS) {
	t.Helper()
	fs := seedContent(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(logger), WithWorkers(3)}, opts...)
	return NewService(fs, render.New(nil), opts...), fs
}

func TestSections_Ordering(t *testing.T) {
	s, _ := newTestService(t)
	cat, err := s.Sections(context.Background())
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	var names []string
	for _, sec := range cat.Sections {
		names = append(names, sec.Name)
	}
	if strings.Join(names, ",") != "Overview,Agents,Rag" {
		t.Fatalf("sections = %v", names)
	}
	ov := cat.Sections[0]
	if ov.Slug != "overview" || ov.Tutorials[0].Path != "overview/tutorial_overview.md" {
		t.Errorf("overview = %+v", ov)
	}
	if ov.Tutorials[1].Title != "Welcome" {
		t.Errorf("front matter title = %q", ov.Tutorials[1].Title)
	}

	agents := cat.Sections[1]
	if len(agents.Tutorials) != 2 {
		t.Fatalf("agents tutorials = %+v", agents.Tutorials)
	}
	if agents.Tutorials[0].Title != "LangChain Agents" || agents.Tutorials[1].Title != "XML Notebook" {
		t.Errorf("notebook titles = %q, %q", agents.Tutorials[0].Title, agents.Tutorials[1].Title)
	}
}

func TestSections_MalformedFileIsolated(t *testing.T) {
	s, _ := newTestService(t)
	cat, err := s.Sections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Errors) != 1 {
		t.Fatalf("errors = %+v", cat.Errors)
	}
	fe := cat.Errors[0]
	if fe.Path != "agents/broken.ipynb" || !errors.Is(fe, notebook.ErrInvalidJSON) {
		t.Errorf("file error = %v", fe)
	}
	for _, sec := range cat.Sections {
		for _, tut := range sec.Tutorials {
			if tut.Path == "agents/broken.ipynb" || tut.Path == "readme.md" {
				t.Errorf("unexpected tutorial %q", tut.Path)
			}
		}
	}
}

func TestSections_Cancelled(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sections(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSections_Overrides(t *testing.T) {
	fs := seedContent(t)
	_ = fs.Write(metadata.DefaultFileName, []byte(`{
  "tutorials": {"rag/vectors.md": {"authorId": "devon", "difficulty": "advanced", "lastUpdated": "2025-01-02"}},
  "authors": {"devon": {"name": "Devon Sun", "url": "https://example.com"}}
}`))
	store := metadata.NewStore(fs, "")
	s := NewService(fs, render.New(nil), WithOverrides(store), WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))

	md, err := s.Metadata(context.Background(), "rag/vectors")
	if err != nil {
		t.Fatal(err)
	}
	if md.Author != "Devon Sun" || md.Difficulty != "advanced" || md.LastUpdated != "2025-01-02" {
		t.Errorf("metadata = %+v", md)
	}
	if md.Title != "Vector Stores" || md.Description != "Embeddings everywhere." {
		t.Errorf("content layer lost: %+v", md)
	}
}

func TestSectionName(t *testing.T) {
	cases := map[string]string{
		"overview": "Overview",
		"rag":      "Rag",
		"éclair":   "Éclair",
		"":         "",
	}
	for in, want := range cases {
		if got := SectionName(in); got != want {
			t.Errorf("SectionName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookup(t *testing.T) {
	s, _ := newTestService(t)
	cases := map[string]string{
		"agents/langchain.ipynb": "agents/langchain.ipynb",
		"agents/langchain":       "agents/langchain.ipynb",
		"/rag/vectors":           "rag/vectors.md",
		"readme":                 "readme.md",
	}
	for in, want := range cases {
		m, err := s.Lookup(in)
		if err != nil {
			t.Errorf("Lookup(%q): %v", in, err)
			continue
		}
		if m.Path != want {
			t.Errorf("Lookup(%q) = %q, want %q", in, m.Path, want)
		}
	}
	if _, err := s.Lookup("agents/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestTutorial_Notebook(t *testing.T) {
	s, _ := newTestService(t)
	tut, err := s.Tutorial(context.Background(), "agents/langchain")
	if err != nil {
		t.Fatalf("Tutorial: %v", err)
	}
	if tut.Metadata.Title != "LangChain Agents" || tut.Metadata.Description != "Build a tool-using agent step by step." {
		t.Errorf("metadata = %+v", tut.Metadata)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tut.HTML))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Find(".notebook-cell").Length() != 2 {
		t.Errorf("cells = %d", doc.Find(".notebook-cell").Length())
	}
	if !strings.Contains(doc.Find(".output-stream pre").Text(), "hi") {
		t.Errorf("stream = %q", doc.Find(".output-stream pre").Text())
	}
	if len(tut.Headings) != 1 || tut.Headings[0].ID != "setup" {
		t.Errorf("headings = %+v", tut.Headings)
	}
}

func TestTutorial_Markdown(t *testing.T) {
	s, _ := newTestService(t)
	tut, err := s.Tutorial(context.Background(), "overview/intro.md")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(tut.HTML, "title: Welcome") {
		t.Error("front matter rendered")
	}
	if !strings.Contains(tut.HTML, "Start here.") {
		t.Errorf("body missing: %s", tut.HTML)
	}
}

func TestTutorial_Malformed(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Tutorial(context.Background(), "agents/broken.ipynb")
	var fe *FileError
	if !errors.As(err, &fe) || fe.Path != "agents/broken.ipynb" {
		t.Errorf("err = %v, want FileError", err)
	}
}

func TestMarkdownExport(t *testing.T) {
	s, _ := newTestService(t)
	md, err := s.Markdown(context.Background(), "agents/langchain.ipynb")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "```python\nprint('hi')\n```") {
		t.Errorf("code cell missing: %s", md)
	}
	if !strings.Contains(md, "# LangChain Agents") {
		t.Errorf("markdown cell missing: %s", md)
	}
}

func TestHeadings(t *testing.T) {
	s, _ := newTestService(t)
	hs, err := s.Headings(context.Background(), "agents/langchain.ipynb")
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 1 || hs[0].Text != "Setup" {
		t.Errorf("headings = %+v", hs)
	}
}

func TestExtract(t *testing.T) {
	s, _ := newTestService(t)
	doc, err := s.Extract("agents/langchain.ipynb", []byte(langchainNotebook))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "LangChain Agents" || !strings.Contains(doc.Body, "print('hi')") {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Tags) != 2 || doc.Tags[0] != "jupyter" {
		t.Errorf("tags = %v", doc.Tags)
	}
	if _, err := s.Extract("agents/broken.ipynb", []byte("{not json")); !errors.Is(err, notebook.ErrInvalidJSON) {
		t.Errorf("broken: err = %v", err)
	}
}

func TestPaths(t *testing.T) {
	s, _ := newTestService(t)
	paths, err := s.Paths()
	if err != nil {
		t.Fatal(err)
	}
	want := "agents/broken.ipynb,agents/langchain.ipynb,agents/xml.ipynb,overview/intro.md,overview/tutorial_overview.md,rag/vectors.md"
	if strings.Join(paths, ",") != want {
		t.Errorf("paths = %v", paths)
	}
}
