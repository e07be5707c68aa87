package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
)

// StyleSheet provides the CSS for highlighted code.
type StyleSheet interface {
	CSS() (string, error)
}

// Handler holds API route handlers.
type Handler struct {
	site  *site.Service
	index index.TutorialIndex
	meta  *metadata.Store
	style StyleSheet
}

// NewHandler creates a new Handler. meta and style may be nil; their routes
// then answer 403 and 404 respectively.
func NewHandler(svc *site.Service, idx index.TutorialIndex, meta *metadata.Store, style StyleSheet) *Handler {
	return &Handler{site: svc, index: idx, meta: meta, style: style}
}

// wildcardPath extracts the content path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. agents%2Flangchain.ipynb).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Sections handles GET /api/sections.
//
//	@Summary		List sections with resolved tutorial metadata
//	@Tags			tutorials
//	@Produce		json
//	@Success		200	{object}	Catalog
//	@Router			/sections [get]
func (h *Handler) Sections(w http.ResponseWriter, r *http.Request) {
	cat, err := h.site.Sections(r.Context())
	if err != nil {
		writeError(w, "sections", "", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// ListTutorials handles GET /api/tutorials.
//
//	@Summary		List indexed tutorials with optional filtering
//	@Tags			tutorials
//	@Produce		json
//	@Param			section	query		string	false	"Filter by section"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	TutorialListResponse
//	@Router			/tutorials [get]
func (h *Handler) ListTutorials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	rows, total, err := h.index.List(index.ListQuery{
		Section: q.Get("section"),
		Tag:     q.Get("tag"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeError(w, "list tutorials", "", err)
		return
	}
	writeJSON(w, http.StatusOK, TutorialListResponse{Tutorials: rows, Total: total})
}

// GetTutorial handles GET /api/tutorials/*.
//
//	@Summary		Get a rendered tutorial; the extension may be omitted
//	@Tags			tutorials
//	@Produce		json,html,plain
//	@Param			path	path		string	true	"Tutorial path"
//	@Param			format	query		string	false	"Response format"	Enums(json, html, markdown)
//	@Success		200		{object}	Tutorial
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/tutorials/{path} [get]
func (h *Handler) GetTutorial(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	switch r.URL.Query().Get("format") {
	case "markdown":
		md, err := h.site.Markdown(r.Context(), p)
		if err != nil {
			writeError(w, "export tutorial", p, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(md))
	case "html":
		tut, err := h.site.Tutorial(r.Context(), p)
		if err != nil {
			writeError(w, "render tutorial", p, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(tut.HTML))
	case "", "json":
		tut, err := h.site.Tutorial(r.Context(), p)
		if err != nil {
			writeError(w, "render tutorial", p, err)
			return
		}
		writeJSON(w, http.StatusOK, tut)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("format must be json, html or markdown"))
	}
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across tutorials
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.index.Search(q, limit)
	if err != nil {
		writeError(w, "search", q, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListMetadata handles GET /api/metadata.
//
//	@Summary		List manual metadata overrides
//	@Tags			metadata
//	@Produce		json
//	@Success		200	{object}	MetadataListResponse
//	@Router			/metadata [get]
func (h *Handler) ListMetadata(w http.ResponseWriter, _ *http.Request) {
	if h.meta == nil {
		writeJSON(w, http.StatusOK, MetadataListResponse{Entries: []metadata.Entry{}})
		return
	}
	entries, err := h.meta.List()
	if err != nil {
		writeError(w, "list metadata", "", err)
		return
	}
	writeJSON(w, http.StatusOK, MetadataListResponse{Entries: entries})
}

// GetMetadata handles GET /api/metadata/*.
//
//	@Summary		Get the override and resolved metadata of a tutorial
//	@Tags			metadata
//	@Produce		json
//	@Param			path	path		string	true	"Tutorial path"
//	@Success		200		{object}	MetadataResponse
//	@Failure		404		{object}	errResponse
//	@Router			/metadata/{path} [get]
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	fm, err := h.site.Lookup(p)
	if err != nil {
		writeError(w, "get metadata", p, err)
		return
	}
	resolved, err := h.site.Metadata(r.Context(), fm.Path)
	if err != nil {
		writeError(w, "get metadata", fm.Path, err)
		return
	}
	resp := MetadataResponse{Path: fm.Path, Resolved: resolved}
	if h.meta != nil {
		o, ok, err := h.meta.Get(fm.Path)
		if err != nil {
			writeError(w, "get metadata", fm.Path, err)
			return
		}
		if ok {
			resp.Override = &o
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutMetadata handles PUT /api/metadata/*.
//
//	@Summary		Merge fields into a tutorial's manual override
//	@Tags			metadata
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Tutorial path"
//	@Param			body	body		metadata.Override	true	"Fields to set"
//	@Success		200		{object}	metadata.Override
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/{path} [put]
func (h *Handler) PutMetadata(w http.ResponseWriter, r *http.Request) {
	if h.meta == nil {
		writeJSON(w, http.StatusForbidden, errorBody("metadata overrides are disabled"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req metadata.Override
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	fm, err := h.site.Lookup(p)
	if err != nil {
		writeError(w, "put metadata", p, err)
		return
	}
	o, err := h.meta.Set(fm.Path, req)
	if err != nil {
		writeError(w, "put metadata", fm.Path, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteMetadata handles DELETE /api/metadata/*.
//
//	@Summary		Remove a tutorial's manual override
//	@Tags			metadata
//	@Param			path	path	string	true	"Tutorial path"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/{path} [delete]
func (h *Handler) DeleteMetadata(w http.ResponseWriter, r *http.Request) {
	if h.meta == nil {
		writeJSON(w, http.StatusForbidden, errorBody("metadata overrides are disabled"))
		return
	}
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	// Stale entries outlive their files, so a failed lookup falls back to the
	// path as given.
	target := p
	if fm, err := h.site.Lookup(p); err == nil {
		target = fm.Path
	}
	if err := h.meta.Delete(target); err != nil {
		writeError(w, "delete metadata", target, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncMetadata handles POST /api/metadata/sync.
//
//	@Summary		Add overrides for new tutorials and drop stale ones
//	@Tags			metadata
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/metadata/sync [post]
func (h *Handler) SyncMetadata(w http.ResponseWriter, _ *http.Request) {
	if h.meta == nil {
		writeJSON(w, http.StatusForbidden, errorBody("metadata overrides are disabled"))
		return
	}
	paths, err := h.site.Paths()
	if err != nil {
		writeError(w, "sync metadata", "", err)
		return
	}
	res, err := h.meta.Sync(paths)
	if err != nil {
		writeError(w, "sync metadata", "", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HighlightCSS handles GET /api/highlight.css.
//
//	@Summary		Stylesheet for highlighted code
//	@Tags			assets
//	@Produce		text/css
//	@Success		200
//	@Router			/highlight.css [get]
func (h *Handler) HighlightCSS(w http.ResponseWriter, _ *http.Request) {
	if h.style == nil {
		writeJSON(w, http.StatusNotFound, errorBody("highlighting disabled"))
		return
	}
	css, err := h.style.CSS()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("highlighting unavailable"))
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(css))
}
