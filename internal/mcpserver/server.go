// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes facet tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/propindex/internal/apperr"
	"github.com/starford/propindex/internal/facet"
	"github.com/starford/propindex/internal/facetservice"
)

// NodeIDFormatURI is the resource describing node ids.
const NodeIDFormatURI = "propindex://node-id-format"

// Facets is the part of the facet service exposed over MCP.
type Facets interface {
	Tree() *facet.Tree
	Overview() facetservice.Overview
	NodeNotes(id string, includeDescendants bool) (*facetservice.NodeView, error)
	IncludeDescendants() bool
	SetSelection(ctx context.Context, raw []byte) (string, error)
	Reveal(ctx context.Context, path string, includeDescendants bool) (string, bool, error)
	Rebuild(ctx context.Context) (facetservice.Summary, error)
}

var _ Facets = (*facetservice.Service)(nil)

// Server wraps the MCP server with facet tools.
type Server struct {
	mcp    *server.MCPServer
	facets Facets
}

// New creates a new MCP server with all facet tools registered.
func New(facets Facets, version string) *Server {
	s := &Server{facets: facets}

	s.mcp = server.NewMCPServer(
		"propindex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_facets",
		mcp.WithDescription("List every indexed property key with its values and note counts."),
	), s.listFacets)

	s.mcp.AddTool(mcp.NewTool("get_facet_notes",
		mcp.WithDescription("List the notes behind a facet node. Read "+NodeIDFormatURI+" for the id format."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id, e.g. key:status=draft")),
		mcp.WithBoolean("include_descendants", mcp.Description("Also include notes with nested values")),
	), s.getFacetNotes)

	s.mcp.AddTool(mcp.NewTool("reveal_note",
		mcp.WithDescription("Find the facet node that best represents a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
		mcp.WithBoolean("include_descendants", mcp.Description("Prefer key nodes that count nested values")),
	), s.revealNote)

	s.mcp.AddTool(mcp.NewTool("resolve_selection",
		mcp.WithDescription("Resolve a stored selection (node id or legacy {key,value} JSON) against the current tree."),
		mcp.WithString("selection", mcp.Required(), mcp.Description("Node id or legacy JSON record")),
		mcp.WithBoolean("persist", mcp.Description("Also store it as the navigator selection")),
	), s.resolveSelection)

	s.mcp.AddTool(mcp.NewTool("rebuild_facets",
		mcp.WithDescription("Re-read the vault and rebuild the facet tree."),
	), s.rebuildFacets)

	s.mcp.AddResource(
		mcp.NewResource(NodeIDFormatURI, "Facet Node ID Format",
			mcp.WithResourceDescription("How facet node ids are encoded and resolved."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNodeIDFormat,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listFacets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ov := s.facets.Overview()
	if !ov.Enabled {
		return mcp.NewToolResultText("facets are disabled: no property keys configured"), nil
	}
	return jsonResult(ov), nil
}

func (s *Server) getFacetNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.facets.NodeNotes(id, req.GetBool("include_descendants", s.facets.IncludeDescendants()))
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("no such node: %s", id)), nil
	case errors.Is(err, apperr.ErrInvalidArgument):
		return mcp.NewToolResultError(fmt.Sprintf("malformed node id %q, see %s", id, NodeIDFormatURI)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view), nil
}

func (s *Server) revealNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, ok, err := s.facets.Reveal(ctx, path, req.GetBool("include_descendants", s.facets.IncludeDescendants()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("no facet node for " + path), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) resolveSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("selection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("persist", false) {
		id, err := s.facets.SetSelection(ctx, []byte(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(id), nil
	}
	id, ok := facet.ParseStoredSelection([]byte(raw))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unrecognised selection %q", raw)), nil
	}
	return mcp.NewToolResultText(facet.ResolveSelection(s.facets.Tree(), id)), nil
}

func (s *Server) rebuildFacets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.facets.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum), nil
}

func (s *Server) readNodeIDFormat(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NodeIDFormatURI,
			MIMEType: "text/markdown",
			Text:     NodeIDFormat,
		},
	}, nil
}
