// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the tutorial catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/theaibuilders/ai-builders-tutorial/internal/apperr"
	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
)

const defaultSearchLimit = 20

// Server wraps the MCP server with the tutorial tools.
type Server struct {
	mcp   *server.MCPServer
	site  *site.Service
	index index.TutorialIndex
}

// New creates a new MCP server with all tools registered.
func New(svc *site.Service, idx index.TutorialIndex, version string) *Server {
	s := &Server{site: svc, index: idx}
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(
		"ai-builders-tutorial",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_tutorials",
		mcp.WithDescription("Full-text search through tutorial titles, text, code and outputs."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchTutorials)

	s.mcp.AddTool(mcp.NewTool("list_tutorials",
		mcp.WithDescription("List sections and their tutorials with resolved metadata "+
			"(title, author, difficulty, tags, last updated)."),
		mcp.WithString("section", mcp.Description("Optional section slug to list (empty for all)")),
	), s.listTutorials)

	s.mcp.AddTool(mcp.NewTool("read_tutorial",
		mcp.WithDescription("Read a tutorial as Markdown. Notebooks are converted cell by cell, "+
			"including code outputs."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Tutorial path (e.g. agents/langchain.ipynb); the extension may be omitted")),
	), s.readTutorial)

	s.mcp.AddTool(mcp.NewTool("get_headings",
		mcp.WithDescription("Return the table of contents (level 2 and 3 headings) of a tutorial."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Tutorial path")),
	), s.getHeadings)

	// Resource: metadata override format.
	s.mcp.AddResource(
		mcp.NewResource(MetadataFormatURI, "Tutorial Metadata Format",
			mcp.WithResourceDescription("How tutorial metadata is resolved and how the override file is structured."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMetadataFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(path string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchTutorials(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultSearchLimit)
	results, err := s.index.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listTutorials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section := strings.Trim(req.GetString("section", ""), "/")

	cat, err := s.site.Sections(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if section == "" {
		return jsonResult(cat), nil
	}
	for _, sec := range cat.Sections {
		if sec.Slug == section {
			return jsonResult(sec), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown section: %s", section)), nil
}

func (s *Server) readTutorial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.site.Markdown(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) getHeadings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hs, err := s.site.Headings(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	if len(hs) == 0 {
		return mcp.NewToolResultText("no headings found"), nil
	}
	var b strings.Builder
	for _, h := range hs {
		fmt.Fprintf(&b, "%s- [%s](#%s)\n", strings.Repeat("  ", h.Level-2), h.Text, h.ID)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) readMetadataFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MetadataFormatURI,
			MIMEType: "text/markdown",
			Text:     MetadataFormat,
		},
	}, nil
}
