package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

// AssetHandler serves images and other files stored next to the tutorials.
type AssetHandler struct {
	src storage.Source
}

// NewAssetHandler creates a handler reading from src.
func NewAssetHandler(src storage.Source) *AssetHandler {
	return &AssetHandler{src: src}
}

// hiddenPath reports whether any segment of p starts with a dot.
func hiddenPath(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// ServeFile handles GET /api/assets/*.
//
//	@Summary		Serve a content asset
//	@Tags			assets
//	@Param			path	path	string	true	"Asset path"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Router			/assets/{path} [get]
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" || hiddenPath(path.Clean("/"+p)) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	data, err := h.src.Read(p)
	if err != nil {
		writeError(w, "serve asset", p, err)
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
