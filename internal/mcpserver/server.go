// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the version store and sync engine as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/corrander/vellum/internal/docservice"
)

// Server wraps the MCP server with Vellum tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Vellum tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Vellum",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List tracked documents with their kind, category, and current version."),
		mcp.WithString("kind", mcp.Description("Optional filter: 'command' or 'plan'")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the current content of a document by its logical name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Logical document name (e.g. deploy-checklist)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("document_history",
		mcp.WithDescription("List the archived versions of a document, oldest first."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Logical document name")),
	), s.documentHistory)

	s.mcp.AddTool(mcp.NewTool("rollback_document",
		mcp.WithDescription("Create a new current version whose content equals a prior version. "+
			"Never destructive: the superseded content is archived."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Logical document name")),
		mcp.WithNumber("version", mcp.Required(), mcp.Description("Prior version to restore")),
		mcp.WithString("summary", mcp.Description("Note recorded on the archived version")),
	), s.rollbackDocument)

	s.mcp.AddTool(mcp.NewTool("sync_documents",
		mcp.WithDescription("Run one sync batch: load every document file from the workspace and "+
			"upsert it into the version store. Returns the batch summary."),
	), s.syncDocuments)

	s.mcp.AddTool(mcp.NewTool("flatten_documents",
		mcp.WithDescription("Write the store's current state back onto disk, making the workspace "+
			"a faithful projection of the store."),
	), s.flattenDocuments)

	// Resource: workspace layout contract.
	s.mcp.AddResource(
		mcp.NewResource("vellum://layout", "Workspace Layout Contract",
			mcp.WithResourceDescription("Directory layout and naming rules for document files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
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

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := ""
	if k, err := req.RequireString("kind"); err == nil {
		kind = k
	}
	docs, err := s.svc.ListDocuments(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, d := range docs {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\tv%d", d.Name, d.Kind, d.Category, d.Version))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no documents tracked"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) documentHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hist, err := s.svc.History(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hist) == 0 {
		return mcp.NewToolResultText("no archived versions"), nil
	}
	out, _ := json.MarshalIndent(hist, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) rollbackDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	version, err := req.RequireFloat("version")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary := ""
	if sum, sumErr := req.RequireString("summary"); sumErr == nil {
		summary = sum
	}
	res, err := s.svc.Rollback(ctx, name, int(version), summary)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s, now v%d", name, res.Outcome, res.Version)), nil
}

func (s *Server) syncDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) flattenDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.Flatten(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vellum://layout",
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
