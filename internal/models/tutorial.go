// Package models defines the domain types shared across the tutorial site.
package models

import (
	"path"
	"strings"
	"time"
)

// Kind is the content type of a tutorial file.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindNotebook Kind = "notebook"
)

// KindOf returns the kind of a content path, or "" for unsupported files.
func KindOf(p string) Kind {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return KindMarkdown
	case ".ipynb":
		return KindNotebook
	}
	return ""
}

// FileMeta is a lightweight description of a content file returned by list
// operations.
type FileMeta struct {
	Path      string    `json:"path"`
	Kind      Kind      `json:"kind"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SectionSlug returns the section a content path belongs to: its first
// path segment, or "" for root-level files.
func SectionSlug(p string) string {
	sec, _, ok := strings.Cut(p, "/")
	if !ok {
		return ""
	}
	return sec
}

// Difficulty levels accepted in metadata.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Difficulties lists the accepted difficulty values.
var Difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// DateLayout is the on-disk format of LastUpdated.
const DateLayout = "2006-01-02"

// Author is an entry of the author registry.
type Author struct {
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	URL     string `json:"url,omitempty"`
	Bio     string `json:"bio,omitempty"`
}

// TutorialMetadata is the fully resolved metadata of one tutorial.
type TutorialMetadata struct {
	Path          string   `json:"path"`
	Kind          Kind     `json:"kind"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Author        string   `json:"author"`
	AuthorID      string   `json:"authorId,omitempty"`
	AuthorPicture string   `json:"authorPicture,omitempty"`
	AuthorURL     string   `json:"authorUrl,omitempty"`
	LastUpdated   string   `json:"lastUpdated"`
	Tags          []string `json:"tags"`
	Difficulty    string   `json:"difficulty"`
}

// Section groups the tutorials of one top-level content directory.
type Section struct {
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	Tutorials []TutorialMetadata `json:"tutorials"`
}
