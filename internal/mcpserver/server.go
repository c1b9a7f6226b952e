// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio articles to LLM tooling over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/codec"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/markdown"
	"github.com/starford/folio/internal/models"
)

// FormatURI is the resource URI of the article format contract.
const FormatURI = "folio://article-format"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp      *server.MCPServer
	repo     *content.Repository
	renderer *markdown.Renderer
}

// New creates a new MCP server with all Folio tools registered.
func New(repo *content.Repository, renderer *markdown.Renderer, version string) *Server {
	s := &Server{repo: repo, renderer: renderer}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List article metadata, newest first. Drafts are included only when requested."),
		mcp.WithBoolean("include_drafts", mcp.Description("Include unpublished articles")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read an article by slug, returned in the stored Markdown format."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Article slug (lowercase, hyphen separated)")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Create a new article. Read "+FormatURI+" first for the field rules."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug for the new article")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body")),
		mcp.WithString("excerpt", mcp.Description("Short summary")),
		mcp.WithString("date", mcp.Description("Publication date, YYYY-MM-DD; defaults to today")),
		mcp.WithString("image", mcp.Description("Featured image URL")),
		mcp.WithBoolean("published", mcp.Description("Defaults to true")),
	), s.createArticle)

	s.mcp.AddTool(mcp.NewTool("update_article",
		mcp.WithDescription("Replace an article. Setting new_slug renames it."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug of the stored article")),
		mcp.WithString("new_slug", mcp.Description("New slug; defaults to slug")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body")),
		mcp.WithString("excerpt", mcp.Description("Short summary")),
		mcp.WithString("date", mcp.Description("Publication date, YYYY-MM-DD; defaults to the stored date")),
		mcp.WithString("image", mcp.Description("Featured image URL")),
		mcp.WithBoolean("published", mcp.Description("Defaults to true")),
	), s.updateArticle)

	s.mcp.AddTool(mcp.NewTool("delete_article",
		mcp.WithDescription("Delete an article from every configured backend."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Article slug")),
	), s.deleteArticle)

	s.mcp.AddTool(mcp.NewTool("preview_markdown",
		mcp.WithDescription("Render Markdown to sanitized HTML exactly as published pages do."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown source")),
	), s.previewMarkdown)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Article Format Contract",
			mcp.WithResourceDescription("Stored article format: YAML metadata block followed by a Markdown body."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

// toolError turns a repository error into a tool result. Domain errors are
// reported to the caller; anything else fails the call.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrBackendUnavailable):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func articleInput(req mcp.CallToolRequest) (models.ArticleInput, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return models.ArticleInput{}, err
	}
	body, err := req.RequireString("content")
	if err != nil {
		return models.ArticleInput{}, err
	}
	in := models.ArticleInput{
		Title:   title,
		Content: body,
		Excerpt: req.GetString("excerpt", ""),
		Date:    req.GetString("date", ""),
		Image:   req.GetString("image", ""),
	}
	if p, ok := req.GetArguments()["published"].(bool); ok {
		in.Published = &p
	}
	return in, nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("include_drafts", false) {
		all, err := s.repo.ListAll(ctx)
		if err != nil {
			return toolError(err)
		}
		metas := make([]models.ArticleMeta, 0, len(all))
		for i := range all {
			metas = append(metas, all[i].Meta())
		}
		return jsonResult(metas)
	}
	metas, err := s.repo.ListPublished(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(metas)
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.repo.Get(ctx, slug)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(codec.Encode(a.Fields))), nil
}

func (s *Server) createArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := articleInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.repo.Create(ctx, slug, in)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", a.Slug)), nil
}

func (s *Server) updateArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := articleInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.repo.Update(ctx, slug, req.GetString("new_slug", slug), in)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", a.Slug)), nil
}

func (s *Server) deleteArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.repo.Delete(ctx, slug); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", slug)), nil
}

func (s *Server) previewMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.renderer.Render(ctx, src)), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
