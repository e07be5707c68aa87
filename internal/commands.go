package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/mcpserver"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/notebook"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
	"github.com/theaibuilders/ai-builders-tutorial/internal/textenc"
)

// Workspace gives one-shot commands access to the configured content.
type Workspace struct {
	app    *application
	c      *components
	logger *slog.Logger
}

// OpenWorkspace builds the content collaborators without starting a server.
func OpenWorkspace(opts ...Option) (*Workspace, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.newLogger()
	c, err := app.build(logger)
	if err != nil {
		return nil, err
	}
	return &Workspace{app: app, c: c, logger: logger}, nil
}

// Site returns the catalog and rendering service.
func (w *Workspace) Site() *site.Service { return w.c.site }

// Metadata returns the override store, or apperr.ErrReadOnly when none is
// configured.
func (w *Workspace) Metadata() (*metadata.Store, error) {
	if w.c.meta == nil {
		return nil, fmt.Errorf("metadata: no override directory configured: %w", apperr.ErrReadOnly)
	}
	return w.c.meta, nil
}

// SetMetadata validates o and stores it for the tutorial at p.
func (w *Workspace) SetMetadata(p string, o metadata.Override) (metadata.Override, error) {
	store, err := w.Metadata()
	if err != nil {
		return metadata.Override{}, err
	}
	meta, err := w.c.site.Lookup(p)
	if err != nil {
		return metadata.Override{}, err
	}
	return store.Set(meta.Path, o)
}

// DeleteMetadata removes the override for the tutorial at p. Entries whose
// file no longer exists are addressed by their stored path.
func (w *Workspace) DeleteMetadata(p string) error {
	store, err := w.Metadata()
	if err != nil {
		return err
	}
	if meta, err := w.c.site.Lookup(p); err == nil {
		p = meta.Path
	}
	return store.Delete(p)
}

// SyncMetadata adds entries for new tutorials and drops entries for removed ones.
func (w *Workspace) SyncMetadata() (metadata.SyncResult, error) {
	store, err := w.Metadata()
	if err != nil {
		return metadata.SyncResult{}, err
	}
	paths, err := w.c.site.Paths()
	if err != nil {
		return metadata.SyncResult{}, err
	}
	return store.Sync(paths)
}

// RenderFile renders a single notebook or Markdown file to HTML.
// Overrides and the content directory play no part.
func RenderFile(ctx context.Context, file string, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fs, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	svc, _ := app.newSite(fs, nil, logger)
	t, err := svc.Tutorial(ctx, filepath.Base(abs))
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, t.HTML)
	return err
}

// ConvertNotebook reads an XML-tagged or JSON notebook from in and writes
// standard nbformat JSON to out.
func ConvertNotebook(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("convert: read: %w", err)
	}
	doc, err := notebook.Parse(textenc.Decode(data))
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	raw, err := notebook.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	_, err = out.Write(raw)
	return err
}

// ServeMCP indexes the content and serves the MCP tools over stdio until
// the client disconnects. Logs must not go to stdout; pass WithLogOutput.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	c, err := app.build(logger)
	if err != nil {
		return err
	}
	db, err := app.openIndex(c, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if app.watching() {
		go func() {
			if err := index.Watch(ctx, db, c.source, c.site, app.config.Content.Path, logger, nil); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.site, db, app.version).ServeStdio()
}
