// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes SEFS tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sefs/internal/apperr"
	"github.com/starford/sefs/internal/fileservice"
)

const graphFormatURI = "sefs://graph-format"

// Server wraps the MCP server with SEFS tools.
type Server struct {
	mcp        *server.MCPServer
	svc        *fileservice.Service
	importable []string
}

// New creates a new MCP server with all SEFS tools registered. extensions
// lists what the extractors accept; import_file takes the subset it can
// verify by content.
func New(svc *fileservice.Service, extensions []string) *Server {
	s := &Server{svc: svc, importable: importableExtensions(extensions)}

	s.mcp = server.NewMCPServer(
		"SEFS",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("fetch_graph",
		mcp.WithDescription("Return the current semantic graph of the managed root: folders, "+
			"files, their summaries and lock state. Read sefs://graph-format for the schema."),
	), s.fetchGraph)

	s.mcp.AddTool(mcp.NewTool("lock_file",
		mcp.WithDescription("Lock a file by basename with a secret. Locked files are shown as "+
			"locked in the graph and cannot be opened without the secret."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File basename (e.g. report.pdf)")),
		mcp.WithString("secret", mcp.Required(), mcp.Description("Secret required to open or unlock")),
	), s.lockFile)

	s.mcp.AddTool(mcp.NewTool("unlock_file",
		mcp.WithDescription("Remove the lock on a file. The secret must match."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File basename")),
		mcp.WithString("secret", mcp.Required(), mcp.Description("Secret the file was locked with")),
	), s.unlockFile)

	s.mcp.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Resolve a file by basename and return where it currently lives. "+
			"Locked files require their secret."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File basename")),
		mcp.WithString("secret", mcp.Description("Secret for locked files")),
	), s.openFile)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Full-text search over file names, folders and content of the last completed cycle."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("resync",
		mcp.WithDescription("Run a full organize cycle now and return its result."),
	), s.resync)

	s.mcp.AddTool(mcp.NewTool("import_file",
		mcp.WithDescription(importDescription(s.importable)),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:<mime>;base64,... URI or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Optional target basename; derived from the URL when empty")),
	), s.importFile)

	s.mcp.AddTool(mcp.NewTool("get_graph_format",
		mcp.WithDescription("Returns the SEFS graph format contract."),
	), s.getGraphFormat)

	// Resource: graph format contract.
	s.mcp.AddResource(
		mcp.NewResource(graphFormatURI, "Graph Format Contract",
			mcp.WithResourceDescription("Shape of the graph returned by fetch_graph."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGraphFormatResource,
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

// toolError turns service errors into messages an LLM can act on.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrWrongSecret):
		return mcp.NewToolResultError("wrong secret")
	case errors.Is(err, apperr.ErrDenied):
		return mcp.NewToolResultError("denied: file is locked, provide its secret")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("file not found")
	case errors.Is(err, apperr.ErrNotReady):
		return mcp.NewToolResultError("graph not generated yet; run resync")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) fetchGraph(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, raw, _, err := s.svc.FetchGraph(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

type lockResult struct {
	Name    string `json:"name"`
	Locked  bool   `json:"locked"`
	CycleID string `json:"cycle_id"`
	Outcome string `json:"outcome"`
}

func (s *Server) lockFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	secret, err := req.RequireString("secret")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.LockFile(ctx, name, secret)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(lockResult{Name: name, Locked: true, CycleID: res.ID, Outcome: string(res.Outcome)}), nil
}

func (s *Server) unlockFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	secret, err := req.RequireString("secret")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.UnlockFile(ctx, name, secret)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(lockResult{Name: name, Locked: false, CycleID: res.ID, Outcome: string(res.Outcome)}), nil
}

func (s *Server) openFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.svc.OpenFile(ctx, name, req.GetString("secret", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(meta), nil
}

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) resync(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Resync(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getGraphFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GraphFormatContract), nil
}

func (s *Server) readGraphFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphFormatURI,
			MIMEType: "text/markdown",
			Text:     GraphFormatContract,
		},
	}, nil
}
