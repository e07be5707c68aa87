// Package metadata resolves tutorial metadata from defaults, file content,
// and a manually maintained override file.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

// DefaultFileName is the conventional name of the override file.
const DefaultFileName = "tutorial-metadata.json"

// Override holds manually curated metadata for one tutorial. Empty fields
// leave the resolved value alone.
type Override struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	AuthorID    string   `json:"authorId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// Validate checks the date layout and difficulty value.
func (o Override) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.LastUpdated, validation.Date(models.DateLayout)),
		validation.Field(&o.Difficulty, validation.In(difficulties()...)),
		validation.Field(&o.Title, validation.Length(0, 200)),
	)
}

// merge copies the non-empty fields of in over o.
func (o Override) merge(in Override) Override {
	if in.Title != "" {
		o.Title = in.Title
	}
	if in.Description != "" {
		o.Description = in.Description
	}
	if in.Author != "" {
		o.Author = in.Author
	}
	if in.AuthorID != "" {
		o.AuthorID = in.AuthorID
	}
	if in.LastUpdated != "" {
		o.LastUpdated = in.LastUpdated
	}
	if len(in.Tags) > 0 {
		o.Tags = append([]string(nil), in.Tags...)
	}
	if in.Difficulty != "" {
		o.Difficulty = in.Difficulty
	}
	return o
}

// File is the on-disk override document.
type File struct {
	Tutorials    map[string]Override      `json:"tutorials"`
	Authors      map[string]models.Author `json:"authors,omitempty"`
	Instructions json.RawMessage          `json:"_instructions,omitempty"`
}

// Entry pairs a tutorial path with its override.
type Entry struct {
	Path     string   `json:"path"`
	Override Override `json:"override"`
}

// Author looks up id in the registry.
func (f *File) Author(id string) (models.Author, bool) {
	if f == nil || id == "" {
		return models.Author{}, false
	}
	a, ok := f.Authors[id]
	return a, ok
}

func newFile() *File {
	return &File{
		Tutorials:    map[string]Override{},
		Authors:      map[string]models.Author{},
		Instructions: json.RawMessage(instructions),
	}
}

const instructions = `{
    "description": "Manual overrides for tutorial metadata. Keys under tutorials are paths relative to the content directory.",
    "example": {
      "SectionName/tutorial_file.ipynb": {
        "authorId": "jane-doe",
        "lastUpdated": "2025-01-01"
      }
    }
  }`

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDefaultAuthorID sets the author id assigned to tutorials added by Sync.
func WithDefaultAuthorID(id string) StoreOption {
	return func(s *Store) { s.defaultAuthorID = id }
}

// WithClock overrides the time source used for Sync dates.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store reads and writes the override file through a storage.Provider.
// Writes are serialised and atomic.
type Store struct {
	mu              sync.Mutex
	fs              storage.Provider
	name            string
	defaultAuthorID string
	now             func() time.Time
}

// NewStore creates a Store for the file name inside p.
func NewStore(p storage.Provider, name string, opts ...StoreOption) *Store {
	if name == "" {
		name = DefaultFileName
	}
	s := &Store{fs: p, name: name, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the current override file. A missing file yields an empty one.
func (s *Store) Load() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*File, error) {
	data, err := s.fs.Read(s.name)
	if errors.Is(err, apperr.ErrNotFound) {
		return newFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: load: %w", err)
	}
	f := newFile()
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("metadata: parse %s: %w", s.name, err)
	}
	if f.Tutorials == nil {
		f.Tutorials = map[string]Override{}
	}
	if f.Authors == nil {
		f.Authors = map[string]models.Author{}
	}
	return f, nil
}

func (s *Store) save(f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	if err := s.fs.Write(s.name, append(data, '\n')); err != nil {
		return fmt.Errorf("metadata: save: %w", err)
	}
	return nil
}

// List returns every override, sorted by path.
func (s *Store) List() ([]Entry, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(f.Tutorials))
	for p, o := range f.Tutorials {
		out = append(out, Entry{Path: p, Override: o})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Get returns the override for path. ok is false when none exists.
func (s *Store) Get(path string) (Override, bool, error) {
	f, err := s.Load()
	if err != nil {
		return Override{}, false, err
	}
	o, ok := f.Tutorials[path]
	return o, ok, nil
}

// Set validates o and merges it into the override for path.
func (s *Store) Set(path string, o Override) (Override, error) {
	path = strings.TrimSpace(path)
	if path == "" || models.KindOf(path) == "" {
		return Override{}, fmt.Errorf("metadata: %q is not a tutorial path: %w", path, apperr.ErrInvalidInput)
	}
	if err := o.Validate(); err != nil {
		return Override{}, fmt.Errorf("metadata: %w: %w", apperr.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return Override{}, err
	}
	if o.AuthorID != "" {
		if _, ok := f.Authors[o.AuthorID]; !ok && len(f.Authors) > 0 {
			return Override{}, fmt.Errorf("metadata: unknown author id %q: %w", o.AuthorID, apperr.ErrInvalidInput)
		}
	}
	merged := f.Tutorials[path].merge(o)
	f.Tutorials[path] = merged
	if err := s.save(f); err != nil {
		return Override{}, err
	}
	return merged, nil
}

// Delete removes the override for path. The override file itself is
// removed once it holds neither overrides nor authors.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Tutorials[path]; !ok {
		return fmt.Errorf("metadata: %s: %w", path, apperr.ErrNotFound)
	}
	delete(f.Tutorials, path)
	if len(f.Tutorials) == 0 && len(f.Authors) == 0 {
		if err := s.fs.Delete(s.name); err != nil {
			return fmt.Errorf("metadata: remove %s: %w", s.name, err)
		}
		return nil
	}
	return s.save(f)
}

// SyncResult reports what Sync changed.
type SyncResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Changed reports whether the file was rewritten.
func (r SyncResult) Changed() bool { return len(r.Added)+len(r.Removed) > 0 }

// Sync adds an entry for every path without one, stamped with the default
// author id and today's date, and drops entries whose path is not listed.
// The file is only written when something changed.
func (s *Store) Sync(paths []string) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Added: []string{}, Removed: []string{}}
	live := make(map[string]struct{}, len(paths))
	today := s.now().Format(models.DateLayout)
	for _, p := range paths {
		live[p] = struct{}{}
		if _, ok := f.Tutorials[p]; ok {
			continue
		}
		f.Tutorials[p] = Override{AuthorID: s.defaultAuthorID, LastUpdated: today}
		res.Added = append(res.Added, p)
	}
	for p := range f.Tutorials {
		if _, ok := live[p]; !ok {
			delete(f.Tutorials, p)
			res.Removed = append(res.Removed, p)
		}
	}
	sort.Strings(res.Added)
	sort.Strings(res.Removed)

	if !res.Changed() {
		return res, nil
	}
	return res, s.save(f)
}

func difficulties() []any {
	out := make([]any, len(models.Difficulties))
	for i, d := range models.Difficulties {
		out[i] = d
	}
	return out
}

func validDifficulty(d string) bool {
	for _, v := range models.Difficulties {
		if d == v {
			return true
		}
	}
	return false
}
