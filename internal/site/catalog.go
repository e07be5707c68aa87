package site

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
)

// OverviewSection is listed before every other section.
const OverviewSection = "Overview"

// SectionOverviewFile is listed first inside its section.
const SectionOverviewFile = "tutorial_overview.md"

// FileError records a file that could not be loaded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("site: %s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// MarshalJSON encodes the error as {"path", "error"}.
func (e *FileError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, e.Err.Error()})
}

// Catalog is the ordered list of sections plus the files that were skipped.
type Catalog struct {
	Sections []models.Section `json:"sections"`
	Errors   []*FileError     `json:"errors,omitempty"`
}

// Sections scans the content source and resolves every tutorial's metadata.
// Files are loaded concurrently. A file that fails to load is recorded in
// Catalog.Errors and the rest of the batch continues; only cancellation or a
// failing listing aborts.
func (s *Service) Sections(ctx context.Context) (*Catalog, error) {
	metas, err := s.src.List("")
	if err != nil {
		return nil, fmt.Errorf("site: list: %w", err)
	}
	metas = sectionFiles(metas)
	overrides := s.overrideFile()

	resolved := make([]*models.TutorialMetadata, len(metas))
	errs := make([]*FileError, len(metas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, m := range metas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := s.load(m)
			if err != nil {
				errs[i] = &FileError{Path: m.Path, Err: err}
				s.logger.Warn("site: skipping file",
					slog.String("path", m.Path),
					slog.String("error", err.Error()))
				return nil
			}
			md := s.resolver.Resolve(m, f.content, overrides)
			resolved[i] = &md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := &Catalog{Sections: []models.Section{}}
	bySlug := map[string]int{}
	for i, md := range resolved {
		if md == nil {
			continue
		}
		slug := models.SectionSlug(metas[i].Path)
		idx, ok := bySlug[slug]
		if !ok {
			idx = len(cat.Sections)
			bySlug[slug] = idx
			cat.Sections = append(cat.Sections, models.Section{Name: SectionName(slug), Slug: slug})
		}
		cat.Sections[idx].Tutorials = append(cat.Sections[idx].Tutorials, *md)
	}
	for _, e := range errs {
		if e != nil {
			cat.Errors = append(cat.Errors, e)
		}
	}
	sortCatalog(cat.Sections)
	return cat, nil
}

// Paths returns every tutorial path that belongs to a section, sorted.
func (s *Service) Paths() ([]string, error) {
	metas, err := s.src.List("")
	if err != nil {
		return nil, fmt.Errorf("site: list: %w", err)
	}
	metas = sectionFiles(metas)
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Path
	}
	sort.Strings(out)
	return out, nil
}

// sectionFiles drops root-level files, which belong to no section.
func sectionFiles(metas []models.FileMeta) []models.FileMeta {
	out := make([]models.FileMeta, 0, len(metas))
	for _, m := range metas {
		if models.SectionSlug(m.Path) != "" {
			out = append(out, m)
		}
	}
	return out
}

// SectionName is the display name of a section directory: its first letter
// upper-cased.
func SectionName(slug string) string {
	r, size := utf8.DecodeRuneInString(slug)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + slug[size:]
}

func sortCatalog(sections []models.Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		a, b := sections[i].Name, sections[j].Name
		if a == OverviewSection || b == OverviewSection {
			return a == OverviewSection && b != OverviewSection
		}
		return strings.ToLower(a) < strings.ToLower(b)
	})
	for _, sec := range sections {
		ts := sec.Tutorials
		sort.SliceStable(ts, func(i, j int) bool {
			a, b := path.Base(ts[i].Path), path.Base(ts[j].Path)
			if a == SectionOverviewFile || b == SectionOverviewFile {
				return a == SectionOverviewFile && b != SectionOverviewFile
			}
			if a != b {
				return strings.ToLower(a) < strings.ToLower(b)
			}
			return ts[i].Path < ts[j].Path
		})
	}
}
