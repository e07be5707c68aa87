package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/theaibuilders/ai-builders-tutorial/internal/highlight"
	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/render"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
	"github.com/theaibuilders/ai-builders-tutorial/internal/testutil"
)

const testNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["# Retrieval Basics\n", "\n", "Learn how vector retrieval works end to end.\n", "## Embeddings\n"]},
  {"cell_type": "code", "execution_count": 2, "metadata": {}, "source": ["embed('hello')"], "outputs": []}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 4
}`

// pngHeader is enough for content-type sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testServer struct {
	router http.Handler
	store  *metadata.Store
	fs     *storage.FS
}

// testEnv sets up a temp content dir, SQLite DB, services, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) *testServer {
	t.Helper()
	return testEnvWithEvents(t, authToken, nil)
}

func testEnvWithEvents(t *testing.T, authToken string, events http.Handler) *testServer {
	t.Helper()

	fs := testutil.TestContent(t, map[string][]byte{
		"rag/retrieval.ipynb":    []byte(testNotebook),
		"rag/broken.ipynb":       []byte("{oops"),
		"overview/welcome.md":    []byte("# Welcome\n\nA guided tour of the site.\n"),
		"rag/images/diagram.png": pngHeader,
		"rag/.secret/hidden.png": pngHeader,
	})
	db := testutil.TestDB(t)

	logger := testutil.QuietLogger()
	store := metadata.NewStore(fs, "", metadata.WithDefaultAuthorID("devon-sun"))
	svc := site.NewService(fs, render.New(nil), site.WithOverrides(store), site.WithLogger(logger))
	if err := index.Sync(db, fs, svc, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	router := NewRouter(Deps{
		Site:     svc,
		Index:    db,
		Metadata: store,
		Style:    highlight.NewChroma(highlight.Options{Style: "github"}),
		Assets:   fs,
		Events:   events,
	}, authToken != "", authToken)
	return &testServer{router: router, store: store, fs: fs}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestSections(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/sections", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var cat struct {
		Sections []struct {
			Name      string `json:"name"`
			Tutorials []struct {
				Path  string `json:"path"`
				Title string `json:"title"`
			} `json:"tutorials"`
		} `json:"sections"`
		Errors []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &cat); err != nil {
		t.Fatal(err)
	}
	if len(cat.Sections) != 2 || cat.Sections[0].Name != "Overview" || cat.Sections[1].Name != "Rag" {
		t.Fatalf("sections = %+v", cat.Sections)
	}
	if cat.Sections[1].Tutorials[0].Title != "Retrieval Basics" {
		t.Errorf("tutorials = %+v", cat.Sections[1].Tutorials)
	}
	if len(cat.Errors) != 1 || cat.Errors[0].Path != "rag/broken.ipynb" || cat.Errors[0].Error == "" {
		t.Errorf("errors = %+v", cat.Errors)
	}
}

func TestGetTutorial_JSON(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/tutorials/rag/retrieval", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Metadata struct {
			Path        string `json:"path"`
			Description string `json:"description"`
		} `json:"metadata"`
		HTML     string `json:"html"`
		Headings []struct {
			ID string `json:"id"`
		} `json:"headings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Metadata.Path != "rag/retrieval.ipynb" || resp.Metadata.Description != "Learn how vector retrieval works end to end." {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if len(resp.Headings) != 1 || resp.Headings[0].ID != "embeddings" {
		t.Errorf("headings = %+v", resp.Headings)
	}
	if !strings.Contains(resp.HTML, "In [2]:") {
		t.Errorf("html = %s", resp.HTML)
	}
}

func TestGetTutorial_HTML(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/tutorials/rag/retrieval.ipynb?format=html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	doc, err := goquery.NewDocumentFromReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Find(".code-cell").Length() != 1 || doc.Find("h2#embeddings").Length() != 1 {
		t.Error("fragment incomplete")
	}
}

func TestGetTutorial_Markdown(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/tutorials/rag%2Fretrieval.ipynb?format=markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "embed('hello')") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetTutorial_Errors(t *testing.T) {
	s := testEnv(t, "")
	cases := []struct {
		target string
		want   int
	}{
		{"/tutorials/rag/missing", http.StatusNotFound},
		{"/tutorials/rag/broken.ipynb", http.StatusUnprocessableEntity},
		{"/tutorials/rag/retrieval.ipynb?format=pdf", http.StatusBadRequest},
		{"/tutorials/../../etc/passwd.md", http.StatusNotFound},
	}
	for _, tc := range cases {
		if w := s.do(t, http.MethodGet, tc.target, nil); w.Code != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.target, w.Code, tc.want)
		}
	}
}

func TestListTutorials(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/tutorials?section=rag", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp TutorialListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Tutorials[0].Path != "rag/retrieval.ipynb" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/search?q=embed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Path != "rag/retrieval.ipynb" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	s := testEnv(t, "")
	if w := s.do(t, http.MethodGet, "/search?q=%20", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestMetadata_PutAndGet(t *testing.T) {
	s := testEnv(t, "")
	body := []byte(`{"difficulty": "advanced", "tags": ["rag"]}`)
	w := s.do(t, http.MethodPut, "/metadata/rag/retrieval", body)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/metadata/rag/retrieval.ipynb", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp MetadataResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Override == nil || resp.Override.Difficulty != "advanced" {
		t.Errorf("override = %+v", resp.Override)
	}
	if resp.Resolved.Difficulty != "advanced" || len(resp.Resolved.Tags) != 1 || resp.Resolved.Tags[0] != "rag" {
		t.Errorf("resolved = %+v", resp.Resolved)
	}
}

func TestMetadata_PutValidation(t *testing.T) {
	s := testEnv(t, "")
	cases := []struct {
		target string
		body   string
		want   int
	}{
		{"/metadata/rag/retrieval.ipynb", `{"difficulty": "expert"}`, http.StatusBadRequest},
		{"/metadata/rag/retrieval.ipynb", `{"lastUpdated": "14/03/2025"}`, http.StatusBadRequest},
		{"/metadata/rag/retrieval.ipynb", `not json`, http.StatusBadRequest},
		{"/metadata/rag/ghost.ipynb", `{"title": "x"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		if w := s.do(t, http.MethodPut, tc.target, []byte(tc.body)); w.Code != tc.want {
			t.Errorf("PUT %s %s = %d, want %d", tc.target, tc.body, w.Code, tc.want)
		}
	}
}

func TestMetadata_Delete(t *testing.T) {
	s := testEnv(t, "")
	if w := s.do(t, http.MethodPut, "/metadata/rag/retrieval.ipynb", []byte(`{"title": "T"}`)); w.Code != http.StatusOK {
		t.Fatalf("put status = %d", w.Code)
	}

	if w := s.do(t, http.MethodDelete, "/metadata/rag/retrieval", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, ok, _ := s.store.Get("rag/retrieval.ipynb"); ok {
		t.Error("override still stored")
	}
	if w := s.do(t, http.MethodDelete, "/metadata/rag/retrieval.ipynb", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/metadata/rag/ghost.ipynb", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", w.Code)
	}
}

func TestMetadata_DeleteStaleEntry(t *testing.T) {
	s := testEnv(t, "")
	if _, err := s.store.Set("rag/removed.ipynb", metadata.Override{Title: "Gone"}); err != nil {
		t.Fatal(err)
	}
	if w := s.do(t, http.MethodDelete, "/metadata/rag/removed.ipynb", nil); w.Code != http.StatusNoContent {
		t.Errorf("stale delete = %d, want 204", w.Code)
	}
}

func TestMetadata_Sync(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodPost, "/metadata/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res SyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Added) != 3 {
		t.Errorf("added = %v", res.Added)
	}

	w = s.do(t, http.MethodGet, "/metadata", nil)
	var list MetadataListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Entries) != 3 || list.Entries[0].Override.AuthorID != "devon-sun" {
		t.Errorf("entries = %+v", list.Entries)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	s := testEnv(t, "secret123")
	w := s.do(t, http.MethodPut, "/metadata/rag/retrieval.ipynb", []byte(`{"title": "T"}`), "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed put = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	s := testEnv(t, "secret123")
	if w := s.do(t, http.MethodPut, "/metadata/rag/retrieval.ipynb", []byte(`{}`)); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/metadata/sync", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed sync = %d, want 401", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/metadata/rag/retrieval.ipynb", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed delete = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	s := testEnv(t, "secret123")
	w := s.do(t, http.MethodPut, "/metadata/rag/retrieval.ipynb", []byte(`{}`), "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_ReadsArePublic(t *testing.T) {
	s := testEnv(t, "secret123")
	if w := s.do(t, http.MethodGet, "/sections", nil); w.Code != http.StatusOK {
		t.Errorf("public read = %d, want 200", w.Code)
	}
}

func TestHighlightCSS(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/highlight.css", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), ".chroma") {
		t.Errorf("css = %.200s", w.Body.String())
	}
}

func TestAssets(t *testing.T) {
	s := testEnv(t, "")
	w := s.do(t, http.MethodGet, "/assets/rag/images/diagram.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	for _, target := range []string{"/assets/rag/.secret/hidden.png", "/assets/rag/none.png"} {
		if w := s.do(t, http.MethodGet, target, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, w.Code)
		}
	}
}

func TestEvents_Mounted(t *testing.T) {
	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
	s := testEnvWithEvents(t, "", stub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("events = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}
