package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
)

// Row represents a row in the tutorials table.
type Row struct {
	Path        string    `json:"path"`
	Kind        string    `json:"kind"`
	Section     string    `json:"section"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Difficulty  string    `json:"difficulty,omitempty"`
	Checksum    string    `json:"checksum"`
	Tags        []string  `json:"tags"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ListQuery filters List. Zero values mean no filter.
type ListQuery struct {
	Section string
	Tag     string
	Limit   int
	Offset  int
}

// Upsert inserts or replaces a tutorial and its FTS entry within a transaction.
func (db *DB) Upsert(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if r.Tags == nil {
		r.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(r.Tags)
	if r.Section == "" {
		r.Section = models.SectionSlug(r.Path)
	}

	_, err = tx.Exec(`
		INSERT INTO tutorials (path, kind, section, title, description, author, difficulty, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind        = excluded.kind,
			section     = excluded.section,
			title       = excluded.title,
			description = excluded.description,
			author      = excluded.author,
			difficulty  = excluded.difficulty,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, r.Path, r.Kind, r.Section, r.Title, r.Description, r.Author, r.Difficulty, r.Checksum, string(tagsJSON), body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert tutorial: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Title, body, r.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a tutorial and its FTS entry.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM tutorials WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a tutorial, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM tutorials WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed tutorial.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM tutorials`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const rowColumns = `path, kind, section, title, description, author, difficulty, checksum, tags, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (Row, error) {
	var r Row
	var tags string
	if err := s.Scan(&r.Path, &r.Kind, &r.Section, &r.Title, &r.Description, &r.Author, &r.Difficulty, &r.Checksum, &tags, &r.UpdatedAt); err != nil {
		return Row{}, err
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil || r.Tags == nil {
		r.Tags = []string{}
	}
	return r, nil
}

// Get returns the indexed row for path.
func (db *DB) Get(path string) (*Row, error) {
	r, err := scanRow(db.conn.QueryRow(`SELECT `+rowColumns+` FROM tutorials WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get: %w", err)
	}
	return &r, nil
}

// List returns indexed tutorials ordered by path, plus the total matching
// count before pagination.
func (db *DB) List(q ListQuery) ([]Row, int, error) {
	var where []string
	var args []any
	if q.Section != "" {
		where = append(where, "section = ?")
		args = append(args, q.Section)
	}
	if q.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tutorials.tags) WHERE json_each.value = ?)")
		args = append(args, q.Tag)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM tutorials`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`SELECT `+rowColumns+` FROM tutorials`+clause+` ORDER BY path LIMIT ? OFFSET ?`,
		append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
