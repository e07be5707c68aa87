package metadata

import (
	"path"
	"strings"
	"time"

	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
)

// DefaultAuthor is credited when neither the file nor the override file
// names an author.
const DefaultAuthor = "AI Builders Team"

var notebookTags = []string{"jupyter", "tutorial"}

// Resolver layers defaults, file content, and overrides into the final
// metadata of a tutorial.
type Resolver struct {
	author string
	now    func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDefaultAuthor replaces DefaultAuthor.
func WithDefaultAuthor(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.author = name
		}
	}
}

// WithResolverClock overrides the time source for files without a
// modification time.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{author: DefaultAuthor, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the metadata for file. Later layers win field by field:
// defaults, then content, then the override entry in f (which may be nil).
func (r *Resolver) Resolve(file models.FileMeta, content Content, f *File) models.TutorialMetadata {
	m := r.defaults(file)

	if content.Title != "" {
		m.Title = content.Title
	}
	if content.Description != "" {
		m.Description = content.Description
	}
	if content.Author != "" {
		m.Author = content.Author
	}
	if len(content.Tags) > 0 {
		m.Tags = append([]string(nil), content.Tags...)
	}
	if validDifficulty(content.Difficulty) {
		m.Difficulty = content.Difficulty
	}

	if f == nil {
		return m
	}
	o, ok := f.Tutorials[file.Path]
	if !ok {
		return m
	}
	if a, ok := f.Author(o.AuthorID); ok {
		m.AuthorID = o.AuthorID
		m.Author = a.Name
		m.AuthorPicture = a.Picture
		m.AuthorURL = a.URL
	} else if o.AuthorID != "" {
		m.AuthorID = o.AuthorID
	}
	if o.Author != "" {
		m.Author = o.Author
	}
	if o.Title != "" {
		m.Title = o.Title
	}
	if o.Description != "" {
		m.Description = o.Description
	}
	if o.LastUpdated != "" {
		m.LastUpdated = o.LastUpdated
	}
	if len(o.Tags) > 0 {
		m.Tags = append([]string(nil), o.Tags...)
	}
	if validDifficulty(o.Difficulty) {
		m.Difficulty = o.Difficulty
	}
	return m
}

func (r *Resolver) defaults(file models.FileMeta) models.TutorialMetadata {
	updated := file.UpdatedAt
	if updated.IsZero() {
		updated = r.now()
	}
	kind := file.Kind
	if kind == "" {
		kind = models.KindOf(file.Path)
	}
	tags := []string{}
	if kind == models.KindNotebook {
		tags = append(tags, notebookTags...)
	}
	return models.TutorialMetadata{
		Path:        file.Path,
		Kind:        kind,
		Title:       TitleFromName(file.Path),
		Author:      r.author,
		LastUpdated: updated.Format(models.DateLayout),
		Tags:        tags,
		Difficulty:  models.DifficultyBeginner,
	}
}

// TitleFromName derives a title from a file path: the base name without
// extension, with hyphens and underscores turned into spaces.
func TitleFromName(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}
