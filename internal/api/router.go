package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Site  *site.Service
	Index index.TutorialIndex
	// Metadata may be nil, which disables override writes.
	Metadata *metadata.Store
	// Style may be nil, which disables /highlight.css.
	Style StyleSheet
	// Assets is the content source served under /assets.
	Assets storage.Source
	// Events is mounted at GET /events when non-nil.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced on the routes
// that change metadata; reads are public.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d.Site, d.Index, d.Metadata, d.Style)

	r := chi.NewRouter()

	// Catalog and pages.
	r.Get("/sections", h.Sections)
	r.Get("/tutorials", h.ListTutorials)
	r.Get("/tutorials/*", h.GetTutorial)

	// Search.
	r.Get("/search", h.Search)

	// Metadata overrides.
	r.Get("/metadata", h.ListMetadata)
	r.Get("/metadata/*", h.GetMetadata)
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))
		r.Post("/metadata/sync", h.SyncMetadata)
		r.Put("/metadata/*", h.PutMetadata)
		r.Delete("/metadata/*", h.DeleteMetadata)
	})

	// Static support.
	r.Get("/highlight.css", h.HighlightCSS)
	if d.Assets != nil {
		r.Get("/assets/*", NewAssetHandler(d.Assets).ServeFile)
	}

	// SSE endpoint.
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
