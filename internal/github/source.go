// Package github implements a read-only storage.Source over the GitHub REST
// API: the git trees endpoint for listing and the contents endpoint for reads.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/models"
)

const (
	DefaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	maxFileSize    = 20 << 20
	userAgent      = "ai-builders-tutorial"
)

// Config locates the tutorial tree inside a repository.
type Config struct {
	BaseURL string
	Owner   string
	Repo    string
	Ref     string // branch, tag or commit; empty means the default branch
	Root    string // directory inside the repository, e.g. "tutorials"
	Token   string
}

// Source reads tutorials from a GitHub repository.
type Source struct {
	cfg    Config
	client *http.Client
}

// NewSource creates a Source. Owner and Repo are required.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required: %w", apperr.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Root = strings.Trim(cfg.Root, "/")
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// List returns every tutorial file under dir. Checksums are git blob SHAs;
// UpdatedAt is left zero because the trees API carries no timestamps.
func (s *Source) List(dir string) ([]models.FileMeta, error) {
	ref := s.cfg.Ref
	if ref == "" {
		ref = "HEAD"
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		s.cfg.BaseURL, url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), url.PathEscape(ref))

	var tree treeResponse
	if err := s.getJSON(endpoint, &tree); err != nil {
		return nil, fmt.Errorf("github: list: %w", err)
	}

	prefix := s.cfg.Root
	if d := strings.Trim(dir, "/"); d != "" {
		prefix = path.Join(prefix, d)
	}
	var out []models.FileMeta
	for _, e := range tree.Tree {
		if e.Type != "blob" {
			continue
		}
		rel := e.Path
		if s.cfg.Root != "" {
			var ok bool
			if rel, ok = strings.CutPrefix(e.Path, s.cfg.Root+"/"); !ok {
				continue
			}
		}
		if prefix != "" && !strings.HasPrefix(e.Path, prefix+"/") {
			continue
		}
		if hidden(rel) {
			continue
		}
		kind := models.KindOf(rel)
		if kind == "" {
			continue
		}
		out = append(out, models.FileMeta{Path: rel, Kind: kind, Checksum: e.SHA})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read fetches and base64-decodes one file.
func (s *Source) Read(p string) ([]byte, error) {
	clean := path.Clean("/" + p)[1:]
	if clean == "" || clean != strings.TrimPrefix(p, "/") {
		return nil, fmt.Errorf("github: invalid path %q: %w", p, apperr.ErrInvalidInput)
	}
	full := path.Join(s.cfg.Root, clean)
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.cfg.BaseURL, url.PathEscape(s.cfg.Owner), url.PathEscape(s.cfg.Repo), escapePath(full))
	if s.cfg.Ref != "" {
		endpoint += "?ref=" + url.QueryEscape(s.cfg.Ref)
	}

	var c contentResponse
	if err := s.getJSON(endpoint, &c); err != nil {
		return nil, fmt.Errorf("github: read %s: %w", p, err)
	}
	if c.Type != "file" {
		return nil, fmt.Errorf("github: read %s: not a file: %w", p, apperr.ErrNotFound)
	}
	if c.Encoding != "base64" {
		return nil, fmt.Errorf("github: read %s: unsupported encoding %q", p, c.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(c.Content), ""))
	if err != nil {
		return nil, fmt.Errorf("github: read %s: decode: %w", p, err)
	}
	return data, nil
}

func (s *Source) getJSON(endpoint string, v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("response too large: exceeds %d bytes", maxFileSize)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func hidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
