//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reposift/reposift/internal/api/handlers"
	"github.com/reposift/reposift/internal/domain"
	"github.com/reposift/reposift/internal/enrich"
	"github.com/reposift/reposift/internal/repository"
	"github.com/reposift/reposift/internal/search"
	"github.com/reposift/reposift/internal/server"
	"github.com/reposift/reposift/internal/storage"
	"github.com/reposift/reposift/internal/testutil"
)

const e2eBucket = "reposift-e2e"

// TestEnv wires real Postgres and RustFS containers, stubbed upstream
// services (feed, digest, search backend), and a live query server around
// one test.
type TestEnv struct {
	T   *testing.T
	Ctx context.Context

	Postgres *testutil.PostgresContainer
	RustFS   *testutil.RustFSContainer
	Pool     *pgxpool.Pool
	Store    *storage.ArtifactStore

	Feed    *feedStub
	Digest  *digestStub
	Backend *backendStub

	ServerURL  string
	HTTPClient *http.Client

	// ConfigHome is handed to CLI subprocesses as XDG_CONFIG_HOME so
	// `reposift config` never touches the real user config.
	ConfigHome string
	BinaryDir  string

	stopServer func()
}

// SetupEnv starts the containers, applies migrations, boots the stub
// services, and brings up the query server on a free port.
func SetupEnv(t *testing.T) *TestEnv {
	ctx := context.Background()

	pg := testutil.NewPostgresContainer(ctx, t)
	fs := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pg, "../../migrations")

	store, err := storage.NewArtifactStore(ctx, storage.S3ClientConfig{
		Endpoint:        fs.Endpoint(),
		Region:          "auto",
		AccessKeyID:     fs.AccessKey,
		SecretAccessKey: fs.SecretKey,
		Bucket:          e2eBucket,
		UsePathStyle:    true,
	}, quietLogger())
	if err != nil {
		t.Fatalf("failed to create artifact store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	env := &TestEnv{
		T:          t,
		Ctx:        ctx,
		Postgres:   pg,
		RustFS:     fs,
		Pool:       pool,
		Store:      store,
		Feed:       newFeedStub(),
		Digest:     newDigestStub(),
		Backend:    newBackendStub(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		ConfigHome: t.TempDir(),
	}

	env.ServerURL, env.stopServer = startServer(t, store, env.Backend.URL())
	return env
}

// Cleanup tears everything down in reverse order of creation.
func (e *TestEnv) Cleanup() {
	if e.stopServer != nil {
		e.stopServer()
	}
	e.Backend.Close()
	e.Digest.Close()
	e.Feed.Close()
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFS != nil {
		e.RustFS.Terminate(e.Ctx)
	}
	if e.Postgres != nil {
		e.Postgres.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries compiles reposiftd and reposift into a temp directory.
func (e *TestEnv) BuildBinaries() {
	tmp, err := os.MkdirTemp("", "reposift-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmp

	for _, name := range []string{"reposiftd", "reposift"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmp, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunIngest runs `reposiftd ingest` pointed at the stub feed and services.
// Migrations are skipped; the harness already applied them.
func (e *TestEnv) RunIngest(args ...string) (string, error) {
	full := append([]string{"ingest", "--no-migrate"}, args...)
	return e.RunDaemon(e.ingestEnv(), full...)
}

// RunDaemon runs the reposiftd binary with extra environment variables.
func (e *TestEnv) RunDaemon(extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "reposiftd"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Env = append(os.Environ(), extraEnv...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// RunCLI runs the reposift client binary against the live server.
func (e *TestEnv) RunCLI(args ...string) (string, error) {
	return e.RunCLIEnv([]string{"REPOSIFT_API_URL=" + e.ServerURL}, args...)
}

// RunCLIEnv runs the reposift client binary with exactly the given extra
// environment, so tests can exercise the URL resolution cascade.
func (e *TestEnv) RunCLIEnv(extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "reposift"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+e.ConfigHome)
	cmd.Env = append(cmd.Env, extraEnv...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (e *TestEnv) ingestEnv() []string {
	return []string{
		"REPOSIFT_FEED_URL=" + e.Feed.URL(),
		"REPOSIFT_DIGEST_URL=" + e.Digest.URL(),
		"REPOSIFT_DATABASE_URL=" + e.Postgres.ConnectionString(),
		"REPOSIFT_S3_ENDPOINT=" + e.RustFS.Endpoint(),
		"REPOSIFT_S3_ACCESS_KEY_ID=" + e.RustFS.AccessKey,
		"REPOSIFT_S3_SECRET_ACCESS_KEY=" + e.RustFS.SecretKey,
		"REPOSIFT_S3_BUCKET=" + e2eBucket,
		"REPOSIFT_S3_USE_PATH_STYLE=true",
	}
}

// PostJSON sends a JSON body to path on the live server and returns the
// status code and raw response body.
func (e *TestEnv) PostJSON(path string, body any) (int, []byte) {
	e.T.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal request body: %v", err)
	}

	resp, err := e.HTTPClient.Post(e.ServerURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		e.T.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("reading response from %s failed: %v", path, err)
	}
	return resp.StatusCode, raw
}

// GetRaw fetches path on the live server.
func (e *TestEnv) GetRaw(path string) (int, []byte, http.Header) {
	e.T.Helper()

	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("reading response from %s failed: %v", path, err)
	}
	return resp.StatusCode, raw, resp.Header
}

// errorEnvelope mirrors the API error shape.
type errorEnvelope struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retry_after"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("response is not an error envelope: %v\n%s", err, body)
	}
	return env
}

// FingerprintCount returns the number of fingerprint rows committed so far.
func (e *TestEnv) FingerprintCount() int64 {
	e.T.Helper()
	n, err := repository.NewFingerprintRepository(e.Pool).Count(e.Ctx)
	if err != nil {
		e.T.Fatalf("failed to count fingerprints: %v", err)
	}
	return n
}

// GetFingerprint loads one fingerprint row.
func (e *TestEnv) GetFingerprint(org, repo string) (domain.Fingerprint, error) {
	return repository.NewFingerprintRepository(e.Pool).Get(e.Ctx, org, repo)
}

// SeedArtifact writes a summary directly into the store, bypassing ingest.
func (e *TestEnv) SeedArtifact(org, repo, content string, pushedAt time.Time) {
	e.T.Helper()
	meta := domain.ArtifactMetadata{
		PushedAt:    pushedAt,
		SourceURL:   "https://github.com/" + org + "/" + repo,
		ProcessedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := e.Store.PutArtifact(e.Ctx, org, repo, content, meta); err != nil {
		e.T.Fatalf("failed to seed artifact %s/%s: %v", org, repo, err)
	}
}

// feedEntry mirrors one object of the public repository feed.
type feedEntry struct {
	FullName string   `json:"full_name"`
	HTMLURL  string   `json:"html_url"`
	PushedAt string   `json:"pushed_at"`
	Language string   `json:"language,omitempty"`
	Topics   []string `json:"topics,omitempty"`
}

// repoEntry builds a feed entry for owner/name last pushed at pushedAt.
func repoEntry(fullName string, pushedAt time.Time) feedEntry {
	return feedEntry{
		FullName: fullName,
		HTMLURL:  "https://github.com/" + fullName,
		PushedAt: pushedAt.UTC().Format(time.RFC3339),
		Language: "Go",
	}
}

// feedStub serves a mutable repository feed.
type feedStub struct {
	mu      sync.Mutex
	entries []feedEntry
	srv     *httptest.Server
}

func newFeedStub() *feedStub {
	s := &feedStub{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.entries)
	}))
	return s
}

func (s *feedStub) URL() string { return s.srv.URL }
func (s *feedStub) Close()      { s.srv.Close() }

// SetRepos replaces the feed contents. Order is preserved on the wire, so
// partition indices are deterministic.
func (s *feedStub) SetRepos(entries ...feedEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}

// Touch advances one repository's push timestamp.
func (s *feedStub) Touch(fullName string, pushedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].FullName == fullName {
			s.entries[i].PushedAt = pushedAt.UTC().Format(time.RFC3339)
			return
		}
	}
}

// digestCall records one request the digest stub received.
type digestCall struct {
	URL         string
	MaxFileSize int
}

// digestStub stands in for the external digest service and counts every
// repository it is asked to summarize.
type digestStub struct {
	mu    sync.Mutex
	calls []digestCall
	srv   *httptest.Server
}

func newDigestStub() *digestStub {
	s := &digestStub{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL         string `json:"url"`
			MaxFileSize int    `json:"max_file_size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.calls = append(s.calls, digestCall{URL: req.URL, MaxFileSize: req.MaxFileSize})
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"summary": stubSummary(req.URL)})
	}))
	return s
}

func (s *digestStub) URL() string { return s.srv.URL }
func (s *digestStub) Close()      { s.srv.Close() }

func (s *digestStub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *digestStub) Calls() []digestCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]digestCall(nil), s.calls...)
}

// CallsFor counts how often one repository URL was digested.
func (s *digestStub) CallsFor(sourceURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.URL == sourceURL {
			n++
		}
	}
	return n
}

// stubSummary is the deterministic digest text for a repository URL. Tests
// assert stored artifacts against it.
func stubSummary(sourceURL string) string {
	name := strings.TrimPrefix(sourceURL, "https://github.com/")
	return fmt.Sprintf("Repository %s: service code, deployment configuration and operational documentation.", name)
}

// backendStub stands in for the managed search index.
type backendStub struct {
	mu        sync.Mutex
	hits      []backendHit
	lastQuery string
	lastLimit int
	srv       *httptest.Server
}

type backendHit struct {
	Content string
	Score   float64
	Path    string
}

func newBackendStub() *backendStub {
	s := &backendStub{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.lastQuery = req.Query
		s.lastLimit = req.Limit
		hits := append([]backendHit(nil), s.hits...)
		s.mu.Unlock()

		type wireHit struct {
			Content  string  `json:"content"`
			Score    float64 `json:"score"`
			Metadata struct {
				Path        string `json:"path"`
				ContentType string `json:"content_type"`
			} `json:"metadata"`
		}
		out := struct {
			Results []wireHit `json:"results"`
		}{Results: make([]wireHit, len(hits))}
		for i, h := range hits {
			out.Results[i].Content = h.Content
			out.Results[i].Score = h.Score
			out.Results[i].Metadata.Path = h.Path
			out.Results[i].Metadata.ContentType = "text/plain"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}))
	return s
}

func (s *backendStub) URL() string { return s.srv.URL }
func (s *backendStub) Close()      { s.srv.Close() }

func (s *backendStub) SetHits(hits ...backendHit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = hits
}

// LastRequest returns the query and limit of the most recent backend call.
func (s *backendStub) LastRequest() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery, s.lastLimit
}

// startServer boots the query API with real handlers on a free port and
// waits until /health answers.
func startServer(t *testing.T, store *storage.ArtifactStore, searchEndpoint string) (string, func()) {
	logger := quietLogger()

	enricher, err := enrich.NewEnricher(store, logger)
	if err != nil {
		t.Fatalf("failed to create enricher: %v", err)
	}

	router := server.NewRouter(server.RouterConfig{
		SearchHandler:    handlers.NewSearchHandler(search.NewClient(searchEndpoint, "", logger), enricher),
		SummariesHandler: handlers.NewSummariesHandler(store),
		HealthHandler:    handlers.NewHealthHandler(store, true),
		Logger:           logger,
	})

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	url := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, url, 10*time.Second)

	return url, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		enricher.Release()
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// quietLogger keeps e2e output readable: warnings and errors only.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
