package api

import (
	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
)

// Catalog is the sections response (aliased from the domain layer).
type Catalog = site.Catalog

// Tutorial is a rendered tutorial response (aliased from the domain layer).
type Tutorial = site.Tutorial

// TutorialListResponse wraps paginated index listings.
type TutorialListResponse struct {
	Tutorials []index.Row `json:"tutorials" validate:"required"`
	Total     int         `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// MetadataResponse pairs the stored override with the resolved metadata.
type MetadataResponse struct {
	Path     string                  `json:"path" example:"agents/langchain.ipynb" validate:"required"`
	Override *metadata.Override      `json:"override,omitempty"`
	Resolved models.TutorialMetadata `json:"resolved" validate:"required"`
}

// MetadataListResponse lists every override entry.
type MetadataListResponse struct {
	Entries []metadata.Entry `json:"entries" validate:"required"`
}

// SyncResponse reports the override entries a sync added and removed.
type SyncResponse = metadata.SyncResult
