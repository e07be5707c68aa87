package index

import (
	"log/slog"
	"time"

	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

// Sync walks the content source and brings the index up to date:
//   - new/changed files are extracted and upserted
//   - files removed from the source are deleted from the index
//
// A file that fails to extract is logged and skipped; the rest of the batch
// continues.
func Sync(db *DB, src storage.Source, ex Extractor, logger *slog.Logger) error {
	metas, err := src.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := src.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, ex, m, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile extracts data and upserts it into the DB. An empty checksum in
// meta is computed from data.
func indexFile(db *DB, ex Extractor, meta models.FileMeta, data []byte) error {
	doc, err := ex.Extract(meta.Path, data)
	if err != nil {
		return err
	}
	cs := meta.Checksum
	if cs == "" {
		cs = storage.Checksum(data)
	}
	kind := meta.Kind
	if kind == "" {
		kind = models.KindOf(meta.Path)
	}
	updated := meta.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	row := Row{
		Path:        meta.Path,
		Kind:        string(kind),
		Section:     models.SectionSlug(meta.Path),
		Title:       doc.Title,
		Description: doc.Description,
		Author:      doc.Author,
		Difficulty:  doc.Difficulty,
		Checksum:    cs,
		Tags:        doc.Tags,
		UpdatedAt:   updated,
	}
	return db.Upsert(row, doc.Body)
}
