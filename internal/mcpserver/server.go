// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the persona library as resources and tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/avatars/internal/catalog"
	"github.com/starford/avatars/internal/frontmatter"
	"github.com/starford/avatars/internal/resources"
)

const (
	mimeJSON     = "application/json"
	mimeMarkdown = "text/markdown"
)

// Info names the server in the MCP handshake.
type Info struct {
	Name    string
	Version string
}

// Server wraps the MCP server with the library resources and tools.
type Server struct {
	mcp     *server.MCPServer
	res     *resources.Service
	builder *catalog.Builder
	logger  *slog.Logger
}

// personaSummary is one element of the list_personas result.
type personaSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URI         string `json:"uri"`
}

// New creates an MCP server over res. Every persona file present at startup
// is registered as a static resource; the template resource covers files
// added later.
func New(res *resources.Service, builder *catalog.Builder, info Info, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{res: res, builder: builder, logger: logger}

	s.mcp = server.NewMCPServer(
		info.Name,
		info.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddResource(
		mcp.NewResource(res.CatalogURI(), "Persona catalog",
			mcp.WithResourceDescription("Metadata of every persona, sorted by id."),
			mcp.WithMIMEType(mimeJSON),
		),
		s.readResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(res.BaseURI(), "Base instructions",
			mcp.WithResourceDescription("Instructions shared by every persona."),
			mcp.WithMIMEType(mimeMarkdown),
		),
		s.readResource,
	)
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(res.PersonaURI("{name}"), "Persona",
			mcp.WithTemplateDescription("A persona document from the library."),
			mcp.WithTemplateMIMEType(mimeMarkdown),
		),
		s.readResource,
	)

	uris, err := res.List()
	if err != nil {
		return nil, fmt.Errorf("mcpserver: register personas: %w", err)
	}
	// The first two entries are the catalog and the base file.
	for _, uri := range uris[2:] {
		s.mcp.AddResource(
			mcp.NewResource(uri, uri, mcp.WithMIMEType(mimeMarkdown)),
			s.readResource,
		)
	}

	s.mcp.AddTool(mcp.NewTool("list_personas",
		mcp.WithDescription("List every persona in the library with its id, name, description and uri."),
	), s.listPersonas)

	s.mcp.AddTool(mcp.NewTool("read_persona",
		mcp.WithDescription("Read the instructions of a persona, without its front matter."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Persona id as listed by list_personas")),
	), s.readPersona)

	s.mcp.AddTool(mcp.NewTool("get_persona_contract",
		mcp.WithDescription("Returns the persona document format. "+
			"Call this before authoring a new persona."),
	), s.getPersonaContract)

	return s, nil
}

// Serve runs the MCP protocol over in and out until ctx is cancelled or
// the input ends.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp: serving", slog.String("catalog", s.res.CatalogURI()))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: serve: %w", err)
	}
	return nil
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) readResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	text, err := s.res.Read(ctx, uri)
	if err != nil {
		s.logger.Warn("mcp: read failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return nil, errors.New(resources.ClientMessage(err))
	}
	mime := mimeMarkdown
	if uri == s.res.CatalogURI() {
		mime = mimeJSON
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mime,
			Text:     text,
		},
	}, nil
}

func (s *Server) listPersonas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.builder.Build(s.res.Dir(), s.res.BaseInstructionsPath())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]personaSummary, 0, len(c.Personas))
	for _, p := range c.Personas {
		out = append(out, personaSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			URI:         p.URI,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readPersona(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.builder.Build(s.res.Dir(), s.res.BaseInstructionsPath())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, ok := c.Find(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("persona not found: %s", id)), nil
	}
	text, err := s.res.Read(ctx, s.res.PersonaURI(entry.File))
	if err != nil {
		return mcp.NewToolResultError(resources.ClientMessage(err)), nil
	}
	doc, err := frontmatter.Parse(text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.Body), nil
}

func (s *Server) getPersonaContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PersonaFormatContract), nil
}
