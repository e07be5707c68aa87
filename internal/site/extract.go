package site

import (
	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
)

var _ index.Extractor = (*Service)(nil)

// Extract implements index.Extractor. The indexed body is the tutorial as
// Markdown, so notebook outputs are searchable too.
func (s *Service) Extract(p string, data []byte) (index.Document, error) {
	meta := models.FileMeta{Path: p, Kind: models.KindOf(p)}
	f, err := parse(meta, data)
	if err != nil {
		return index.Document{}, err
	}
	md := s.resolver.Resolve(meta, f.content, s.overrideFile())
	return index.Document{
		Title:       md.Title,
		Description: md.Description,
		Author:      md.Author,
		Difficulty:  md.Difficulty,
		Tags:        md.Tags,
		Body:        body(f),
	}, nil
}
