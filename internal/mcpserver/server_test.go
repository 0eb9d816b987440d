package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/avatars/internal/catalog"
	"github.com/starford/avatars/internal/resources"
	"github.com/starford/avatars/internal/storage"
	"github.com/starford/avatars/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Library) {
	t.Helper()

	lib := testutil.SampleLibrary(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := catalog.NewBuilder("https://example.invalid", logger)
	if _, err := builder.Generate(lib.Dir, lib.Base); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewFS(lib.Dir)
	if err != nil {
		t.Fatal(err)
	}
	res := resources.New(store, resources.Config{BaseInstructions: lib.Base, CatalogURI: "avatars.json"})

	srv, err := New(res, builder, Info{Name: "Avatars MCP", Version: "0.1"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	return srv, lib
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_personas":
		result, err = srv.listPersonas(ctx, req)
	case "read_persona":
		result, err = srv.readPersona(ctx, req)
	case "get_persona_contract":
		result, err = srv.getPersonaContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func readResource(t *testing.T, srv *Server, uri string) ([]mcp.ResourceContents, error) {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return srv.readResource(context.Background(), req)
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListPersonas(t *testing.T) {
	srv, lib := testServer(t)
	lib.Add(t, "THREE.md", testutil.Persona("three", "Three"))

	r := callTool(t, srv, "list_personas", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}

	var got []personaSummary
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d personas, want 3 (built fresh from disk)", len(got))
	}
	if got[0].ID != "one" || got[0].Description != "First" {
		t.Errorf("first persona = %+v", got[0])
	}
	if got[0].URI != "https://example.invalid/avatars/ONE.md" {
		t.Errorf("uri = %q", got[0].URI)
	}
}

func TestListPersonas_BrokenLibrary(t *testing.T) {
	srv, lib := testServer(t)
	lib.Add(t, "BAD.md", "no front matter\n")

	r := callTool(t, srv, "list_personas", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for broken persona")
	}
}

func TestReadPersona(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "read_persona", map[string]interface{}{"id": "one"})
	if got := resultText(r); got != "body one\n" {
		t.Errorf("read_persona = %q, want body without front matter", got)
	}
}

func TestReadPersonaMissing(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "read_persona", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown id")
	}

	r = callTool(t, srv, "read_persona", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing id argument")
	}
}

func TestGetPersonaContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_persona_contract", nil)
	if !strings.Contains(resultText(r), "Persona Format Contract") {
		t.Error("contract text missing")
	}
}

func TestReadResource(t *testing.T) {
	srv, _ := testServer(t)

	cases := []struct {
		uri  string
		mime string
		want string
	}{
		{"avatars/ONE.md", mimeMarkdown, "id: one"},
		{"AGENTS.md", mimeMarkdown, "Base instructions"},
		{"avatars.json", mimeJSON, `"base_uri"`},
	}
	for _, tc := range cases {
		contents, err := readResource(t, srv, tc.uri)
		if err != nil {
			t.Fatalf("%s: %v", tc.uri, err)
		}
		if len(contents) != 1 {
			t.Fatalf("%s: got %d contents", tc.uri, len(contents))
		}
		text, ok := contents[0].(mcp.TextResourceContents)
		if !ok {
			t.Fatalf("%s: unexpected content type %T", tc.uri, contents[0])
		}
		if text.MIMEType != tc.mime || !strings.Contains(text.Text, tc.want) {
			t.Errorf("%s: got %s %q", tc.uri, text.MIMEType, text.Text)
		}
	}
}

func TestReadResource_TraversalDenied(t *testing.T) {
	srv, lib := testServer(t)
	testutil.WriteFile(t, filepath.Join(lib.Root, "secret"), "do not serve")

	_, err := readResource(t, srv, "avatars/../secret")
	if err == nil || err.Error() != "Access denied" {
		t.Errorf("err = %v, want Access denied", err)
	}

	_, err = readResource(t, srv, "nope")
	if err == nil || err.Error() != "Unknown resource" {
		t.Errorf("err = %v, want Unknown resource", err)
	}
}
