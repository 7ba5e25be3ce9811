package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildOutput(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":               "<html><body><h1>Templates</h1></body></html>",
		"order_confirm/index.html": "<html><body><p>Order</p></body></html>",
		"order_confirm/logo.png":   "\x89PNG fake",
		"fragment.html":            "<p>no body</p>",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	return root
}

func newTestServer(t *testing.T) (*PreviewServer, *httptest.Server) {
	t.Helper()
	ps := New(Options{Addr: "localhost:0", Root: buildOutput(t)}, nil)
	srv := httptest.NewServer(ps.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = ps.Shutdown(context.Background())
	})
	return ps, srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHTMLResponsesCarryReloadScript(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"preview index", "/"},
		{"template page", "/order_confirm/"},
		{"explicit file", "/order_confirm/index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
			assert.Contains(t, body, DefaultReloadPath)
			assert.Less(t, strings.Index(body, "<script>"), strings.Index(body, "</body>"))
		})
	}
}

func TestHTMLWithoutBodyGetsScriptAppended(t *testing.T) {
	_, srv := newTestServer(t)

	_, body := get(t, srv.URL+"/fragment.html")
	assert.True(t, strings.HasPrefix(body, "<p>no body</p>"))
	assert.Contains(t, body, "<script>")
}

func TestNonHTMLUntouched(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/order_confirm/logo.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "\x89PNG fake", body)
	assert.NotContains(t, body, "<script>")
}

func TestNoDirectoryListing(t *testing.T) {
	_, srv := newTestServer(t)

	resp, _ := get(t, srv.URL+"/empty/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/missing.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDirectoryWithoutSlashRedirects(t *testing.T) {
	_, srv := newTestServer(t)

	resp, _ := get(t, srv.URL+"/order_confirm")
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/order_confirm/", resp.Header.Get("Location"))
}

func TestTraversalStaysInsideRoot(t *testing.T) {
	ps, _ := newTestServer(t)
	secret := filepath.Join(filepath.Dir(ps.opts.Root), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	rec := httptest.NewRecorder()
	ps.handleStatic(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestRejectsWrites(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/index.html", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])
	assert.NotEmpty(t, health["version"])
	assert.Equal(t, float64(0), health["clients"])
}

func TestReloadReachesConnectedClient(t *testing.T) {
	ps, srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + DefaultReloadPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return ps.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, ps.Reload("build-42"))

	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reload","build_id":"build-42"}`, string(payload))
}

func TestStartStopsOnCancel(t *testing.T) {
	ps := New(Options{Addr: "127.0.0.1:0", Root: t.TempDir()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ps.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestDefaultOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"localhost:9000", "127.0.0.1:9000"},
		defaultOrigins("localhost:9000"))
	assert.Equal(t,
		[]string{"0.0.0.0:9000", "localhost:9000", "127.0.0.1:9000"},
		defaultOrigins("0.0.0.0:9000"))
}
