// Package server serves the build output for local preview.
//
// HTML responses carry an injected live-reload client. The client connects
// to the websocket hub mounted at the reload path and reloads the page when
// Reload is called after a successful rebuild.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/version"
	"github.com/conneroisu/mailwright/internal/websocket"
)

const (
	DefaultReloadPath = "/__livereload"
	shutdownTimeout   = 5 * time.Second
)

// Options configures a PreviewServer.
type Options struct {
	Addr       string
	Root       string
	ReloadPath string
	// AllowedOrigins restricts websocket connections that send an Origin
	// header. Empty means the listen address and its loopback aliases.
	AllowedOrigins []string
}

// OptionsFrom derives server options from the run configuration. root is the
// build output directory.
func OptionsFrom(cfg *config.Config, root string) Options {
	return Options{
		Addr:       cfg.Addr(),
		Root:       root,
		ReloadPath: cfg.Server.ReloadPath,
	}
}

// PreviewServer serves static build output with live reload.
type PreviewServer struct {
	opts    Options
	hub     *websocket.Hub
	logger  logging.Logger
	script  []byte
	handler http.Handler

	httpServer   *http.Server
	serverMutex  sync.Mutex
	shutdownOnce sync.Once
}

// New creates a preview server. The websocket hub starts immediately so
// Handler can be used without Start.
func New(opts Options, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.ReloadPath == "" {
		opts.ReloadPath = DefaultReloadPath
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = defaultOrigins(opts.Addr)
	}
	logger = logger.WithComponent("server")

	s := &PreviewServer{
		opts:   opts,
		hub:    websocket.NewHub(opts.AllowedOrigins, logger),
		logger: logger,
		script: ReloadScript(opts.ReloadPath),
	}

	mux := http.NewServeMux()
	mux.Handle(opts.ReloadPath, s.hub)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleStatic)
	s.handler = s.logRequests(mux)

	return s
}

// Handler returns the root HTTP handler.
func (s *PreviewServer) Handler() http.Handler {
	return s.handler
}

// URL returns the address browsers should open.
func (s *PreviewServer) URL() string {
	return "http://" + s.opts.Addr + "/"
}

// Reload tells every connected page to reload.
func (s *PreviewServer) Reload(buildID string) error {
	return s.hub.BroadcastReload(buildID)
}

// ClientCount returns the number of connected live-reload clients.
func (s *PreviewServer) ClientCount() int {
	return s.hub.ClientCount()
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *PreviewServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Preview server listening", "url", s.URL(), "root", s.opts.Root)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.hub.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown closes live-reload connections and stops the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down preview server")
		s.hub.Shutdown()

		s.serverMutex.Lock()
		server := s.httpServer
		s.serverMutex.Unlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":  "ok",
		"version": version.GetShortVersion(),
		"clients": s.hub.ClientCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

// handleStatic serves files under Root. Directories resolve to their
// index.html; there is no directory listing.
func (s *PreviewServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upath := path.Clean("/" + r.URL.Path)
	name := filepath.Join(s.opts.Root, filepath.FromSlash(upath))

	info, err := os.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = filepath.Join(name, "index.html")
		info, err = os.Stat(name)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	if isHTML(name) {
		s.serveHTML(w, r, name)
		return
	}

	f, err := os.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *PreviewServer) serveHTML(w http.ResponseWriter, r *http.Request, name string) {
	content, err := os.ReadFile(name)
	if err != nil {
		s.logger.Warn(r.Context(), err, "Failed to read preview file", "path", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body := InjectScript(content, s.script)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		s.logger.Debug(r.Context(), "Failed to write response", "path", name, "error", err)
	}
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

func defaultOrigins(addr string) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return []string{addr}
	}
	origins := []string{addr}
	for _, alias := range []string{"localhost", "127.0.0.1"} {
		if alias != host {
			origins = append(origins, net.JoinHostPort(alias, port))
		}
	}
	return origins
}
