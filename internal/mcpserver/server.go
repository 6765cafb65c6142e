// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes diary summarization tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/diarysum/internal/diaryservice"
)

const formatURI = "diarysum://diary-format"

// Server wraps the MCP server with diary tools.
type Server struct {
	mcp *server.MCPServer
	svc *diaryservice.Service
}

// New creates a new MCP server with all diary tools registered.
func New(svc *diaryservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"diarysum",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recent_diaries",
		mcp.WithDescription("List the most recently modified diary files with their modification times."),
		mcp.WithString("folder", mcp.Description("Diary folder (defaults to the configured folder)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of diaries to return")),
	), s.listRecentDiaries)

	s.mcp.AddTool(mcp.NewTool("summarize_folder",
		mcp.WithDescription("Write a first-person summary into every diary of a folder that does not have one yet. "+
			"Returns the run report with per-file outcomes."),
		mcp.WithString("folder", mcp.Description("Diary folder (defaults to the configured folder)")),
		mcp.WithBoolean("dry_run", mcp.Description("Generate summaries without writing files")),
	), s.summarizeFolder)

	s.mcp.AddTool(mcp.NewTool("summarize_diary",
		mcp.WithDescription("Write a first-person summary into a single diary file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the diary file (must end with .md)")),
		mcp.WithBoolean("dry_run", mcp.Description("Generate the summary without writing the file")),
	), s.summarizeDiary)

	s.mcp.AddTool(mcp.NewTool("preview_diary",
		mcp.WithDescription("Show the text that would be sent to the model for a diary, with template boilerplate removed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the diary file")),
	), s.previewDiary)

	s.mcp.AddTool(mcp.NewTool("get_diary_format",
		mcp.WithDescription("Returns the diary format contract. "+
			"Call this before creating diaries to ensure they can be summarized."),
	), s.getDiaryFormat)

	// Resource: diary format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Diary Format Contract",
			mcp.WithResourceDescription("Markdown diary layout understood by the summarizer."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDiaryFormatResource,
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

func (s *Server) listRecentDiaries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	limit := req.GetInt("limit", 0)
	files, err := s.svc.Recent(ctx, folder, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		return mcp.NewToolResultText("no diaries found"), nil
	}
	return jsonResult(files)
}

func (s *Server) summarizeFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	dryRun := req.GetBool("dry_run", false)
	// Cancelling the tool call does not abandon a folder half done.
	report, err := s.svc.Run(context.WithoutCancel(ctx), folder, dryRun)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) summarizeDiary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcome, err := s.svc.ProcessFile(ctx, path, req.GetBool("dry_run", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(outcome)
}

func (s *Server) previewDiary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.Preview(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if text == "" {
		return mcp.NewToolResultText("no content to summarize"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getDiaryFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DiaryFormatContract), nil
}

func (s *Server) readDiaryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DiaryFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
