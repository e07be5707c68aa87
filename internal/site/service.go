// Package site loads tutorial files from a content source and turns them into
// the catalog, rendered pages and index documents the outer surfaces serve.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"strings"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/export"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
	"github.com/theaibuilders/ai-builders-tutorial/internal/render"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
	"github.com/theaibuilders/ai-builders-tutorial/internal/textenc"
)

// Overrides supplies the manual metadata file. *metadata.Store satisfies it.
type Overrides interface {
	Load() (*metadata.File, error)
}

// Tutorial is a resolved, rendered tutorial.
type Tutorial struct {
	Metadata models.TutorialMetadata `json:"metadata"`
	render.Page
}

// Service coordinates the content source, metadata resolution and rendering.
type Service struct {
	src       storage.Source
	overrides Overrides
	resolver  *metadata.Resolver
	notebooks *render.Renderer
	markdown  *render.MarkdownRenderer
	logger    *slog.Logger
	workers   int
}

// Option configures a Service.
type Option func(*Service)

// WithOverrides sets the manual metadata source.
func WithOverrides(o Overrides) Option {
	return func(s *Service) { s.overrides = o }
}

// WithResolver replaces the default metadata resolver.
func WithResolver(r *metadata.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithMarkdownRenderer replaces the renderer used for .md tutorials.
func WithMarkdownRenderer(r *render.MarkdownRenderer) Option {
	return func(s *Service) {
		if r != nil {
			s.markdown = r
		}
	}
}

// WithLogger sets the logger used to report skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers bounds how many files the catalog loads at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService creates a Service reading from src and rendering notebooks with r.
func NewService(src storage.Source, r *render.Renderer, opts ...Option) *Service {
	s := &Service{
		src:       src,
		resolver:  metadata.NewResolver(),
		notebooks: r,
		markdown:  render.NewMarkdownRenderer(""),
		logger:    slog.Default(),
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// file is a decoded content file.
type file struct {
	meta    models.FileMeta
	text    string
	doc     *notebook.Document
	content metadata.Content
}

// parse decodes data and extracts content metadata. Notebooks are parsed
// into a canonical document; parse failures are returned as is.
func parse(meta models.FileMeta, data []byte) (*file, error) {
	f := &file{meta: meta, text: textenc.Decode(data)}
	switch meta.Kind {
	case models.KindNotebook:
		doc, err := notebook.Parse(f.text)
		if err != nil {
			return nil, err
		}
		f.doc = doc
		f.content = metadata.FromNotebook(doc)
	case models.KindMarkdown:
		f.content = metadata.FromMarkdown([]byte(f.text))
	default:
		return nil, fmt.Errorf("site: %s: unsupported file type: %w", meta.Path, apperr.ErrInvalidInput)
	}
	return f, nil
}

func (s *Service) load(meta models.FileMeta) (*file, error) {
	data, err := s.src.Read(meta.Path)
	if err != nil {
		return nil, err
	}
	return parse(meta, data)
}

// overrideFile loads the manual metadata. A broken override file is logged
// and treated as absent so content still renders.
func (s *Service) overrideFile() *metadata.File {
	if s.overrides == nil {
		return nil
	}
	f, err := s.overrides.Load()
	if err != nil {
		s.logger.Warn("site: overrides unavailable", slog.String("error", err.Error()))
		return nil
	}
	return f
}

// Lookup finds the file for p. The extension may be omitted, in which case
// .ipynb is tried before .md.
func (s *Service) Lookup(p string) (models.FileMeta, error) {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return models.FileMeta{}, fmt.Errorf("site: empty path: %w", apperr.ErrInvalidInput)
	}
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	metas, err := s.src.List(dir)
	if err != nil {
		return models.FileMeta{}, err
	}
	candidates := []string{p}
	if models.KindOf(p) == "" {
		candidates = []string{p + ".ipynb", p + ".md"}
	}
	for _, c := range candidates {
		for _, m := range metas {
			if m.Path == c {
				return m, nil
			}
		}
	}
	return models.FileMeta{}, fmt.Errorf("site: %s: %w", p, apperr.ErrNotFound)
}

// Metadata returns the resolved metadata of the tutorial at p.
func (s *Service) Metadata(_ context.Context, p string) (models.TutorialMetadata, error) {
	meta, err := s.Lookup(p)
	if err != nil {
		return models.TutorialMetadata{}, err
	}
	f, err := s.load(meta)
	if err != nil {
		return models.TutorialMetadata{}, &FileError{Path: meta.Path, Err: err}
	}
	return s.resolver.Resolve(meta, f.content, s.overrideFile()), nil
}

// Tutorial loads, resolves and renders the tutorial at p.
func (s *Service) Tutorial(ctx context.Context, p string) (*Tutorial, error) {
	meta, err := s.Lookup(p)
	if err != nil {
		return nil, err
	}
	f, err := s.load(meta)
	if err != nil {
		return nil, &FileError{Path: meta.Path, Err: err}
	}

	var page *render.Page
	if f.doc != nil {
		page, err = s.notebooks.Document(ctx, f.doc)
	} else {
		page, err = s.markdown.Render([]byte(f.text))
	}
	if err != nil {
		return nil, &FileError{Path: meta.Path, Err: err}
	}
	return &Tutorial{
		Metadata: s.resolver.Resolve(meta, f.content, s.overrideFile()),
		Page:     *page,
	}, nil
}

// Markdown returns the tutorial at p as Markdown text. Notebooks are
// exported cell by cell; Markdown files lose their front matter.
func (s *Service) Markdown(_ context.Context, p string) (string, error) {
	meta, err := s.Lookup(p)
	if err != nil {
		return "", err
	}
	f, err := s.load(meta)
	if err != nil {
		return "", &FileError{Path: meta.Path, Err: err}
	}
	return body(f), nil
}

// Headings returns the table of contents of the tutorial at p without
// rendering it.
func (s *Service) Headings(_ context.Context, p string) ([]render.Heading, error) {
	meta, err := s.Lookup(p)
	if err != nil {
		return nil, err
	}
	f, err := s.load(meta)
	if err != nil {
		return nil, &FileError{Path: meta.Path, Err: err}
	}
	var out []render.Heading
	if f.doc != nil {
		for _, c := range f.doc.Cells {
			if c.Kind == notebook.KindMarkdown {
				out = append(out, render.ExtractHeadings(c.Text())...)
			}
		}
	} else {
		out = render.ExtractHeadings(body(f))
	}
	if out == nil {
		out = []render.Heading{}
	}
	return out, nil
}

func body(f *file) string {
	if f.doc != nil {
		return export.Markdown(f.doc)
	}
	stripped, err := render.StripFrontMatter([]byte(f.text))
	if err != nil {
		return f.text
	}
	return string(stripped)
}
