package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/sefs/internal/cluster"
	"github.com/starford/sefs/internal/embed"
	"github.com/starford/sefs/internal/extract"
	"github.com/starford/sefs/internal/fileservice"
	"github.com/starford/sefs/internal/graph"
	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/pipeline"
	"github.com/starford/sefs/internal/registry"
	"github.com/starford/sefs/internal/storage"
	"github.com/starford/sefs/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	ex := extract.NewRegistry(extract.OCROptions{})
	root, fs := testutil.TestRoot(t, storage.WithFilter(ex.Supports))
	db := testutil.TestDB(t)
	reg := registry.New(db.Locks())
	graphs := graph.NewStore(filepath.Join(t.TempDir(), "graph_data.json"))
	orch := pipeline.New(pipeline.Deps{
		FS:        fs,
		Extractor: ex,
		Embedder:  embed.NewLocal(embed.DefaultLocalDimension),
		Clusterer: cluster.NewThreshold(0.35, 2),
		Registry:  reg,
		Builder:   graph.NewBuilder(fs, false),
		Graphs:    graphs,
	}, pipeline.WithCatalog(db))
	t.Cleanup(orch.Close)

	svc := fileservice.New(fs, reg, graphs, orch,
		fileservice.WithCatalog(db),
		fileservice.WithSupports(ex.Supports))
	return New(svc, ex.Extensions()), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "fetch_graph":
		result, err = srv.fetchGraph(ctx, req)
	case "lock_file":
		result, err = srv.lockFile(ctx, req)
	case "unlock_file":
		result, err = srv.unlockFile(ctx, req)
	case "open_file":
		result, err = srv.openFile(ctx, req)
	case "search_files":
		result, err = srv.searchFiles(ctx, req)
	case "resync":
		result, err = srv.resync(ctx, req)
	case "import_file":
		result, err = srv.importFile(ctx, req)
	case "get_graph_format":
		result, err = srv.getGraphFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func textURI(s string) string {
	return "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(s))
}

func importAll(t *testing.T, srv *Server) {
	t.Helper()
	files := map[string]string{
		"launch.txt":  "rocket launch rocket launch countdown checklist",
		"orbit.txt":   "rocket launch rocket launch orbital insertion",
		"recipes.txt": "bakery bread bakery bread sourdough starter",
	}
	for name, body := range files {
		r := callTool(t, srv, "import_file", map[string]any{"url": textURI(body), "filename": name})
		if r.IsError {
			t.Fatalf("import %s: %s", name, resultText(r))
		}
	}
	if r := callTool(t, srv, "resync", nil); r.IsError {
		t.Fatalf("resync: %s", resultText(r))
	}
}

func TestFetchGraphBeforeCycle(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "fetch_graph", nil)
	if !r.IsError {
		t.Fatal("expected error before the first cycle")
	}
	if !strings.Contains(resultText(r), "resync") {
		t.Errorf("error text = %q", resultText(r))
	}
}

func TestImportResyncAndFetchGraph(t *testing.T) {
	srv, _ := testServer(t)
	importAll(t, srv)

	r := callTool(t, srv, "fetch_graph", nil)
	if r.IsError {
		t.Fatalf("fetch_graph: %s", resultText(r))
	}
	var g models.Graph
	if err := json.Unmarshal([]byte(resultText(r)), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if got := g.CountType(models.NodeFile); got != 3 {
		t.Errorf("file nodes = %d, want 3", got)
	}
	if g.FileNode("orbit.txt") == nil {
		t.Error("orbit.txt missing from graph")
	}
}

func TestImportDuplicate(t *testing.T) {
	srv, _ := testServer(t)
	args := map[string]any{"url": textURI("hello there"), "filename": "a.txt"}
	if r := callTool(t, srv, "import_file", args); r.IsError {
		t.Fatalf("first import: %s", resultText(r))
	}
	r := callTool(t, srv, "import_file", args)
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate import = %q", resultText(r))
	}
}

func TestImportRejectsMismatchedContent(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "import_file", map[string]any{"url": textURI("plain words"), "filename": "fake.png"})
	if !r.IsError {
		t.Error("expected error for text saved as .png")
	}
	r = callTool(t, srv, "import_file", map[string]any{"url": textURI("x"), "filename": "tool.exe"})
	if !r.IsError || !strings.Contains(resultText(r), "unsupported file extension") {
		t.Errorf("exe import = %q", resultText(r))
	}
}

func TestLockOpenUnlockTools(t *testing.T) {
	srv, root := testServer(t)
	importAll(t, srv)

	r := callTool(t, srv, "lock_file", map[string]any{"name": "recipes.txt", "secret": "pw"})
	if r.IsError {
		t.Fatalf("lock: %s", resultText(r))
	}
	var lr lockResult
	_ = json.Unmarshal([]byte(resultText(r)), &lr)
	if !lr.Locked || lr.Outcome != string(pipeline.OutcomeCompleted) {
		t.Errorf("lock result = %+v", lr)
	}

	r = callTool(t, srv, "open_file", map[string]any{"name": "recipes.txt"})
	if !r.IsError || !strings.Contains(resultText(r), "denied") {
		t.Errorf("open without secret = %q", resultText(r))
	}

	r = callTool(t, srv, "open_file", map[string]any{"name": "recipes.txt", "secret": "pw"})
	if r.IsError {
		t.Fatalf("open with secret: %s", resultText(r))
	}
	var meta models.FileMeta
	_ = json.Unmarshal([]byte(resultText(r)), &meta)
	if meta.Path != filepath.Join(root, models.Unassigned, "recipes.txt") {
		t.Errorf("path = %q", meta.Path)
	}

	r = callTool(t, srv, "unlock_file", map[string]any{"name": "recipes.txt", "secret": "bad"})
	if !r.IsError || resultText(r) != "wrong secret" {
		t.Errorf("unlock wrong secret = %q", resultText(r))
	}
	r = callTool(t, srv, "unlock_file", map[string]any{"name": "recipes.txt", "secret": "pw"})
	if r.IsError {
		t.Fatalf("unlock: %s", resultText(r))
	}
}

func TestOpenFileMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "open_file", map[string]any{"name": "nope.txt"})
	if !r.IsError || resultText(r) != "file not found" {
		t.Errorf("open missing = %q", resultText(r))
	}
}

func TestSearchFiles(t *testing.T) {
	srv, _ := testServer(t)
	importAll(t, srv)

	r := callTool(t, srv, "search_files", map[string]any{"query": "sourdough"})
	if r.IsError {
		t.Fatalf("search: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "recipes.txt") {
		t.Errorf("search result = %s", resultText(r))
	}
}

func TestGraphFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readGraphFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != graphFormatURI || tc.Text != GraphFormatContract {
		t.Errorf("resource = %+v", contents[0])
	}
	if r := callTool(t, srv, "get_graph_format", nil); resultText(r) != GraphFormatContract {
		t.Error("get_graph_format returned a different contract")
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, ext, err := decodeDataURI(textURI("hi"))
	if err != nil || string(data) != "hi" || ext != ".txt" {
		t.Errorf("decode = %q %q %v", data, ext, err)
	}
	if _, _, err := decodeDataURI("data:text/plain,hi"); err == nil {
		t.Error("expected error for non-base64 data URI")
	}
	if _, _, err := decodeDataURI("data:text/plain;base64"); err == nil {
		t.Error("expected error for missing comma")
	}
	if _, _, err := decodeDataURI("data:application/x-msdownload;base64,TVo="); err == nil {
		t.Error("expected error for unsupported MIME type")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":       "report.pdf",
		"../../etc/passwd": "passwd",
		"my notes (1).txt": "my_notes__1_.txt",
		"dir/sub/final.md": "final.md",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeFilename(".."); got == ".." {
		t.Error("'..' must be replaced")
	}
}

func TestCheckBlockedHost(t *testing.T) {
	for _, h := range []string{"127.0.0.1", "169.254.169.254", "metadata.google.internal", "::1"} {
		if err := checkBlockedHost(h); err == nil {
			t.Errorf("%s should be blocked", h)
		}
	}
	if err := checkBlockedHost("93.184.216.34"); err != nil {
		t.Errorf("public address blocked: %v", err)
	}
}

func TestImportableExtensions(t *testing.T) {
	got := importableExtensions([]string{".txt", ".TXT", ".gif", ".pdf"})
	if strings.Join(got, ",") != ".pdf,.txt" {
		t.Errorf("importable = %v, want [.pdf .txt]", got)
	}
	all := importableExtensions(nil)
	if len(all) != len(sniffedTypes) || all[0] != ".docx" {
		t.Errorf("nil list = %v", all)
	}
	desc := importDescription(got)
	if !strings.Contains(desc, "Supported: .pdf, .txt.") {
		t.Errorf("description = %q", desc)
	}
}

func TestImportLimitedToExtractorExtensions(t *testing.T) {
	srv, _ := testServer(t)
	srv.importable = importableExtensions([]string{".pdf"})
	r := callTool(t, srv, "import_file", map[string]any{"url": textURI("some plain words"), "filename": "a.txt"})
	if !r.IsError || !strings.Contains(resultText(r), "allowed: .pdf") {
		t.Errorf("import outside extractor set = %q", resultText(r))
	}
}
