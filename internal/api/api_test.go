package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

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

type testEnvResult struct {
	svc    *fileservice.Service
	router http.Handler
	root   string
}

// testEnv sets up a temp managed root, catalog, pipeline, service and router.
// An empty token means auth is disabled.
func testEnv(t *testing.T, token string) testEnvResult {
	t.Helper()
	return testEnvWithSSE(t, token, nil)
}

func testEnvWithSSE(t *testing.T, token string, sseHandler http.Handler) testEnvResult {
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

	r := chi.NewRouter()
	r.Mount("/api", NewRouter(svc, token != "", token, sseHandler))
	MountLegacy(r, svc, token != "", token)
	return testEnvResult{svc: svc, router: r, root: root}
}

func seed(t *testing.T, env testEnvResult) {
	t.Helper()
	testutil.WriteFiles(t, env.root, map[string]string{
		"launch.txt":  "rocket launch rocket launch countdown checklist",
		"orbit.txt":   "rocket launch rocket launch orbital insertion",
		"recipes.txt": "bakery bread bakery bread sourdough starter",
	})
	if _, err := env.svc.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeGraph(t *testing.T, w *httptest.ResponseRecorder) models.Graph {
	t.Helper()
	var g models.Graph
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	return g
}

func TestGraphBeforeFirstCycle(t *testing.T) {
	env := testEnv(t, "")
	w := do(t, env.router, http.MethodGet, "/api/graph", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("graph = %d, want 503", w.Code)
	}
}

func TestGraphEndpointWithETag(t *testing.T) {
	env := testEnv(t, "")
	seed(t, env)

	w := do(t, env.router, http.MethodGet, "/api/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d, body = %s", w.Code, w.Body.String())
	}
	g := decodeGraph(t, w)
	if got := g.CountType(models.NodeFile); got != 3 {
		t.Errorf("file nodes = %d, want 3", got)
	}
	if got := g.CountType(models.NodeFolder); got != 2 {
		t.Errorf("folder nodes = %d, want 2", got)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	req := httptest.NewRequest(http.MethodGet, "/api/graph", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional graph = %d, want 304", w.Code)
	}
}

func TestLockOpenUnlockFlow(t *testing.T) {
	env := testEnv(t, "")
	seed(t, env)

	w := do(t, env.router, http.MethodPost, "/api/lock", LockRequest{Name: "launch.txt", Secret: "x9"})
	if w.Code != http.StatusOK {
		t.Fatalf("lock = %d, body = %s", w.Code, w.Body.String())
	}
	var lr LockResponse
	_ = json.Unmarshal(w.Body.Bytes(), &lr)
	if !lr.Locked || lr.Cycle.Outcome != pipeline.OutcomeCompleted {
		t.Errorf("lock response = %+v", lr)
	}

	g := decodeGraph(t, do(t, env.router, http.MethodGet, "/api/graph", nil))
	n := g.FileNode("launch.txt")
	if n == nil || !n.Locked || n.Color != models.ColorLocked {
		t.Fatalf("locked node = %+v", n)
	}

	w = do(t, env.router, http.MethodGet, "/api/files/launch.txt", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("open without secret = %d, want 403", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files/launch.txt", nil)
	req.Header.Set("X-File-Secret", "x9")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("open with secret = %d", w.Code)
	}
	if w.Body.String() != "rocket launch rocket launch countdown checklist" {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("X-File-Path"); got != "ROCKET_LAUNCH/launch.txt" {
		t.Errorf("X-File-Path = %q", got)
	}

	w = do(t, env.router, http.MethodGet, "/api/files/launch.txt?secret=x9", nil)
	if w.Code != http.StatusOK {
		t.Errorf("open with query secret = %d", w.Code)
	}

	w = do(t, env.router, http.MethodPost, "/api/unlock", LockRequest{Name: "launch.txt", Secret: "nope"})
	if w.Code != http.StatusForbidden {
		t.Errorf("unlock wrong secret = %d, want 403", w.Code)
	}
	w = do(t, env.router, http.MethodPost, "/api/unlock", LockRequest{Name: "launch.txt", Secret: "x9"})
	if w.Code != http.StatusOK {
		t.Fatalf("unlock = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, env.router, http.MethodGet, "/api/files/launch.txt", nil)
	if w.Code != http.StatusOK {
		t.Errorf("open after unlock = %d", w.Code)
	}
}

func TestLockValidation(t *testing.T) {
	env := testEnv(t, "")

	w := do(t, env.router, http.MethodPost, "/api/lock", LockRequest{Name: "a.txt"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty secret = %d, want 400", w.Code)
	}
	w = do(t, env.router, http.MethodPost, "/api/lock", LockRequest{Name: "../a.txt", Secret: "s"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid name = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/lock", bytes.NewReader([]byte("{")))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", w.Code)
	}
}

func TestOpenFile_IndexHTMLIsStreamed(t *testing.T) {
	env := testEnv(t, "")
	page := "<html><head><title>Launch</title></head><body>countdown</body></html>"
	testutil.WriteFiles(t, env.root, map[string]string{"site/index.html": page})

	w := do(t, env.router, http.MethodGet, "/api/files/index.html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open index.html = %d, want 200 (Location %q)", w.Code, w.Header().Get("Location"))
	}
	if w.Body.String() != page {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("X-File-Path"); got != "site/index.html" {
		t.Errorf("X-File-Path = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestOpenFile_NotFound(t *testing.T) {
	env := testEnv(t, "")
	w := do(t, env.router, http.MethodGet, "/api/files/ghost.txt", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
}

func TestSearchAndCyclesEndpoints(t *testing.T) {
	env := testEnv(t, "")
	seed(t, env)

	w := do(t, env.router, http.MethodGet, "/api/search?q=sourdough", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var sr SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if len(sr.Results) != 1 || sr.Results[0].Name != "recipes.txt" {
		t.Errorf("search results = %+v", sr.Results)
	}

	w = do(t, env.router, http.MethodGet, "/api/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing query = %d, want 400", w.Code)
	}

	w = do(t, env.router, http.MethodGet, "/api/cycles?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cycles = %d", w.Code)
	}
	var cr CyclesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cr)
	if len(cr.Cycles) != 1 || cr.Cycles[0].Outcome != string(pipeline.OutcomeCompleted) {
		t.Errorf("cycles = %+v", cr.Cycles)
	}
}

func TestResyncEndpoint(t *testing.T) {
	env := testEnv(t, "")
	w := do(t, env.router, http.MethodPost, "/api/resync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resync = %d", w.Code)
	}
	var res pipeline.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Outcome != pipeline.OutcomeIdle {
		t.Errorf("outcome on empty root = %s, want idle", res.Outcome)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := testEnv(t, "secret-token")
	req := httptest.NewRequest(http.MethodGet, "/api/cycles", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := testEnv(t, "secret-token")
	for _, target := range []string{"/api/cycles", "/graph_data.json"} {
		w := do(t, env.router, http.MethodGet, target, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", target, w.Code)
		}
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := testEnv(t, "secret-token")
	req := httptest.NewRequest(http.MethodGet, "/api/cycles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := testEnvWithSSE(t, "tok", blockingSSE())
	w := do(t, env.router, http.MethodGet, "/api/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := testEnvWithSSE(t, "tok", blockingSSE())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

// blockingSSE writes stream headers and blocks until the request ends.
func blockingSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

// Upload tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadImportsIntoRoot(t *testing.T) {
	env := testEnv(t, "")

	w := uploadFile(t, env.router, "notes.txt", []byte("imported text"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var meta FileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &meta)
	if meta.Name != "notes.txt" || meta.Rel != "notes.txt" {
		t.Errorf("meta = %+v", meta)
	}
	data, err := os.ReadFile(filepath.Join(env.root, "notes.txt"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "imported text" {
		t.Errorf("content mismatch")
	}

	w = uploadFile(t, env.router, "notes.txt", []byte("again"))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate upload = %d, want 409", w.Code)
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	env := testEnv(t, "")
	w := uploadFile(t, env.router, "tool.exe", []byte("MZ"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unsupported upload = %d, want 400", w.Code)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	env := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

// Legacy route tests.

func legacyStatusOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var s legacyStatus
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode status: %v (%s)", err, w.Body.String())
	}
	return s.Status
}

func TestLegacyRoutes(t *testing.T) {
	env := testEnv(t, "")
	seed(t, env)

	w := do(t, env.router, http.MethodGet, "/graph_data.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph_data.json = %d", w.Code)
	}

	body := map[string]string{"filename": "orbit.txt", "password": "pw"}
	w = do(t, env.router, http.MethodPost, "/lock-node", body)
	if w.Code != http.StatusOK || legacyStatusOf(t, w) != "locked" {
		t.Fatalf("lock-node = %d %s", w.Code, w.Body.String())
	}

	w = do(t, env.router, http.MethodGet, "/open-folder/orbit.txt", nil)
	if w.Code != http.StatusForbidden || legacyStatusOf(t, w) != "denied" {
		t.Errorf("open-folder without password = %d %s", w.Code, w.Body.String())
	}
	w = do(t, env.router, http.MethodGet, "/open-folder/orbit.txt?password=pw", nil)
	if w.Code != http.StatusOK || legacyStatusOf(t, w) != "success" {
		t.Errorf("open-folder with password = %d %s", w.Code, w.Body.String())
	}
	w = do(t, env.router, http.MethodGet, "/open-folder/ghost.txt", nil)
	if w.Code != http.StatusNotFound || legacyStatusOf(t, w) != "file not found" {
		t.Errorf("open-folder missing = %d %s", w.Code, w.Body.String())
	}

	w = do(t, env.router, http.MethodPost, "/unlock-node", map[string]string{"filename": "orbit.txt", "password": "bad"})
	if w.Code != http.StatusForbidden || legacyStatusOf(t, w) != "wrong_password" {
		t.Errorf("unlock-node wrong = %d %s", w.Code, w.Body.String())
	}
	w = do(t, env.router, http.MethodPost, "/unlock-node", body)
	if w.Code != http.StatusOK || legacyStatusOf(t, w) != "unlocked" {
		t.Errorf("unlock-node = %d %s", w.Code, w.Body.String())
	}
}
