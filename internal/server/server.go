package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/jpalmerr/pingboard/internal/registry"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Pingboard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Source is the read side of the status registry.
// [registry.Registry] implements it.
type Source interface {
	Snapshot() []registry.Entry
	Entry(address string) (registry.Entry, error)
	Subscribe() <-chan registry.Entry
	Unsubscribe(ch <-chan registry.Entry)
}

// Health summarises the monitors behind the registry, keyed by host address.
type Health struct {
	// Halted holds monitors stopped by a write failure. Empty means healthy.
	Halted map[string]error
	Phases map[string]string
	Writes map[string]uint64
}

// HealthFunc reports the current [Health].
type HealthFunc func() Health

// Server handles HTTP requests for the pingboard dashboard and API.
//
// Endpoints:
//   - GET /: the embedded dashboard HTML
//   - GET /api/status: all hosts with their current status as JSON
//   - GET /api/hosts/{address}: one host, 404 if unknown
//   - GET /api/sse: Server-Sent Events stream of updates
//   - GET /api/ws: the same stream over a WebSocket
//   - GET /healthz: liveness, 503 while any monitor is halted
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	source     Source
	health     HealthFunc
	port       int
	httpServer *http.Server
	listener   net.Listener
	assets     fs.FS
	title      string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - src: Registry to read statuses from
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "Pingboard" if empty)
//   - health: Reports monitor health (may be nil)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(src Source, port int, assets fs.FS, title string, health HealthFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		source: src,
		health: health,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", s.handleHealth)

	// streaming routes must not be buffered by the gzip writer
	r.Get("/api/sse", s.handleSSE)
	r.Get("/api/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(gziphandler.GzipHandler)

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/hosts/{address}", s.handleHost)
		if s.assets != nil {
			r.Get("/", s.handleDashboard)
		}
	})

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// addr returns the bound listener address, or nil before Start.
func (s *Server) addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns every host and its status in configuration order.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, s.source.Snapshot())
}

// handleHost returns a single host by address.
func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	address, err := url.PathUnescape(chi.URLParam(r, "address"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid address"})
		return
	}

	entry, err := s.source.Entry(address)
	if errors.Is(err, registry.ErrUnknownHost) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown host"})
		return
	}
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, entry)
}

type errorBody struct {
	Error string `json:"error"`
}

type monitorBody struct {
	Phase  string `json:"phase"`
	Writes uint64 `json:"writes"`
}

type healthBody struct {
	Status   string                 `json:"status"`
	Halted   map[string]string      `json:"halted,omitempty"`
	Monitors map[string]monitorBody `json:"monitors,omitempty"`
}

// handleHealth reports liveness. Halted monitors make it unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok"}
	code := http.StatusOK

	if s.health != nil {
		h := s.health()
		if len(h.Halted) > 0 {
			body.Status = "degraded"
			body.Halted = make(map[string]string, len(h.Halted))
			for addr, err := range h.Halted {
				body.Halted[addr] = err.Error()
			}
			code = http.StatusServiceUnavailable
		}
		if len(h.Phases) > 0 {
			body.Monitors = make(map[string]monitorBody, len(h.Phases))
			for addr, phase := range h.Phases {
				body.Monitors[addr] = monitorBody{Phase: phase, Writes: h.Writes[addr]}
			}
		}
	}

	s.writeJSON(w, code, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode json response", "error", err)
	}
}

// handleSSE streams status updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// may not be supported by some ResponseWriter impls
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so no write falls in between
	ch := s.source.Subscribe()
	defer s.source.Unsubscribe(ch)

	for _, entry := range s.source.Snapshot() {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}

// handleWS streams the same entries as handleSSE over a WebSocket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.source.Subscribe()
	defer s.source.Unsubscribe(ch)

	for _, entry := range s.source.Snapshot() {
		if err := writeWS(conn, entry); err != nil {
			return
		}
	}

	// the reader only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			if err := writeWS(conn, entry); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func writeWS(conn *websocket.Conn, entry registry.Entry) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// sameOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
}
