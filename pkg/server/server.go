// Package server exposes a session to the browser views: the page shell,
// layout data in the surface formats, focus and navigation mutations, and a
// WebSocket feed of focus changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kraitsura/ktree_viewer/pkg/session"
)

// DefaultPort is the first port tried when none is configured.
const DefaultPort = 9000

// PortRangeStart and PortRangeEnd bound automatic port selection.
const (
	PortRangeStart = 9000
	PortRangeEnd   = 9100
)

const shutdownTimeout = 5 * time.Second

// Config configures the server.
type Config struct {
	// Host is the interface to bind; empty binds all interfaces.
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the port to serve on (0 for auto-select).
	Port int `mapstructure:"port" yaml:"port"`
	// OpenBrowser opens the page once the listener is up.
	OpenBrowser bool `mapstructure:"open_browser" yaml:"open_browser"`
}

// DefaultConfig returns auto port selection without opening a browser.
func DefaultConfig() Config {
	return Config{Host: "127.0.0.1"}
}

// Server serves one session.
type Server struct {
	cfg     Config
	sess    *session.Session
	logger  *log.Logger
	page    *template.Template
	hub     *Hub
	started time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a server for sess. The WebSocket hub subscribes to the
// session's focus state immediately; Close releases it.
func New(sess *session.Session, cfg Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	page, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Server{
		cfg:     cfg,
		sess:    sess,
		logger:  logger,
		page:    page,
		hub:     NewHub(sess, logger),
		started: time.Now(),
	}, nil
}

// Handler returns the routes wrapped in the no-cache middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/tree", s.handleTree)
	mux.HandleFunc("GET /api/layout/2d", s.handleLayout2D)
	mux.HandleFunc("GET /api/layout/3d", s.handleLayout3D)
	mux.HandleFunc("GET /api/focus", s.handleGetFocus)
	mux.HandleFunc("POST /api/focus", s.handleSetFocus)
	mux.HandleFunc("POST /api/click", s.handleClick)
	mux.HandleFunc("POST /api/drag", s.handleDrag)
	mux.HandleFunc("GET /api/nav", s.handleNav)
	mux.HandleFunc("POST /api/nav/next", s.handleNext)
	mux.HandleFunc("POST /api/nav/prev", s.handlePrev)
	mux.HandleFunc("POST /api/order", s.handleOrder)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/camera", s.handleCamera)
	mux.Handle("GET /ws", s.hub)
	mux.HandleFunc("GET /__preview__/status", s.statusHandler)
	return noCacheMiddleware(s.logRequests(mux))
}

// Listen binds the listener, selecting a free port when none is set.
func (s *Server) Listen() error {
	port := s.cfg.Port
	if port == 0 {
		var err error
		port, err = FindAvailablePort(PortRangeStart, PortRangeEnd)
		if err != nil {
			return fmt.Errorf("could not find available port: %w", err)
		}
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()
	return nil
}

// Serve listens (if Listen was not called) and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	bound := s.listener != nil
	s.mu.Unlock()
	if !bound {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	s.logger.Info("viewer running", "url", s.URL(), "tree", s.sess.Name())
	if s.cfg.OpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := OpenInBrowser(s.URL()); err != nil {
				s.logger.Warn("could not open browser", "url", s.URL(), "err", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down viewer")
		return s.Stop()
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Stop gracefully stops the server and disconnects WebSocket clients.
func (s *Server) Stop() error {
	s.hub.Close()
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Port returns the bound port, or the configured one before Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.cfg.Port
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.Port())
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// noCacheMiddleware adds headers to prevent browser caching.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		// Views may be served from a dev server on another origin.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// FindAvailablePort finds an available port in the given range.
func FindAvailablePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, end)
}

// OpenInBrowser opens url with the platform's default handler.
func OpenInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
