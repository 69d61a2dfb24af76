package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/rxvoice/internal/config"
	"github.com/skypro1111/rxvoice/internal/conversation"
	"github.com/skypro1111/rxvoice/internal/gateway"
	"github.com/skypro1111/rxvoice/internal/metrics"
	"github.com/skypro1111/rxvoice/internal/session"
	"github.com/skypro1111/rxvoice/internal/transcription"
)

// TurnHandler runs one conversation turn for an inbound message.
type TurnHandler interface {
	Handle(ctx context.Context, msg gateway.InboundMessage) (conversation.Result, error)
}

// SessionDirectory exposes the session store for monitoring.
type SessionDirectory interface {
	Get(id string) (session.State, bool)
	List() []session.Info
	GetStats() session.Stats
}

// TranscriptionStats reports speech-to-text client statistics.
type TranscriptionStats interface {
	Stats() transcription.ClientStats
}

// Options wires the HTTP server to the rest of the service.
type Options struct {
	Address      string
	Port         int
	WriteTimeout time.Duration
	StaticDir    string // empty disables /static/

	Config        *config.Config
	Turns         TurnHandler
	Sessions      SessionDirectory
	Transcription TranscriptionStats // optional
	Gatherer      prometheus.Gatherer
}

// HTTPServer serves the gateway webhook, published artifacts and the
// monitoring endpoints.
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	opts    Options
	metrics *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(opts Options, logger *slog.Logger, m *metrics.Metrics) *HTTPServer {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	h := &HTTPServer{
		logger:    logger,
		opts:      opts,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Address, opts.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the routed handler.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// setupRoutes configures HTTP routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/whatsapp-webhook", h.withMetrics("/whatsapp-webhook", h.handleWebhook))

	if h.opts.StaticDir != "" {
		static := http.StripPrefix("/static/", http.FileServer(http.Dir(h.opts.StaticDir)))
		mux.Handle("/static/", h.withMetrics("/static", static.ServeHTTP))
	}

	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/sessions", h.withMetrics("/sessions", h.handleSessions))
	mux.HandleFunc("/sessions/", h.withMetrics("/sessions/{id}", h.handleSessionDetail))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP server",
		slog.String("address", h.server.Addr),
		slog.Bool("static", h.opts.StaticDir != ""),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server, waiting for in-flight turns.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleWebhook runs one conversation turn per gateway event. The gateway
// only learns whether the turn failed; replies go out through the sender.
func (h *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg, err := gateway.ParseInbound(r)
	if err != nil {
		h.logger.Warn("Rejected webhook request", slog.String("error", err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Turns run to completion even if the gateway hangs up.
	ctx := context.WithoutCancel(r.Context())

	if _, err := h.opts.Turns.Handle(ctx, msg); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionStats := h.opts.Sessions.GetStats()
	components := map[string]interface{}{
		"sessions": map[string]interface{}{
			"status": "running",
			"active": sessionStats.Active,
		},
	}
	if h.opts.Transcription != nil {
		stats := h.opts.Transcription.Stats()
		components["transcription"] = map[string]interface{}{
			"status":          "running",
			"total_requests":  stats.TotalRequests,
			"success_rate":    stats.SuccessRate,
			"active_requests": stats.ActiveRequests,
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "rxvoice",
			"version": "1.0.0",
		},
		"components": components,
	})
}

// sessionView omits the summary text from monitoring output.
type sessionView struct {
	ID                 string    `json:"id"`
	Phase              string    `json:"phase"`
	LanguageCode       string    `json:"language_code,omitempty"`
	LanguageLabel      string    `json:"language_label,omitempty"`
	SummaryUnavailable bool      `json:"summary_unavailable"`
	Version            uint64    `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivity       time.Time `json:"last_activity"`
}

func newSessionView(id string, st session.State) sessionView {
	return sessionView{
		ID:                 id,
		Phase:              st.Phase.String(),
		LanguageCode:       st.LanguageCode,
		LanguageLabel:      st.LanguageLabel,
		SummaryUnavailable: st.SummaryUnavailable,
		Version:            st.Version,
		CreatedAt:          st.CreatedAt,
		LastActivity:       st.LastActivity,
	}
}

// handleSessions implements the /sessions endpoint
func (h *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := h.opts.Sessions.List()
	views := make([]sessionView, 0, len(infos))
	for _, info := range infos {
		views = append(views, newSessionView(info.ID, info.State))
	}

	h.writeJSON(w, map[string]interface{}{
		"total_sessions": len(views),
		"timestamp":      time.Now().UTC(),
		"sessions":       views,
	})
}

// handleSessionDetail implements the /sessions/{id} endpoint. The id is the
// URL-escaped sender address.
func (h *HTTPServer) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := url.PathUnescape(r.URL.EscapedPath()[len("/sessions/"):])
	if err != nil || id == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	st, ok := h.opts.Sessions.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, newSessionView(id, st))
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.opts.Config == nil {
		http.NotFound(w, r)
		return
	}

	h.writeJSON(w, h.opts.Config.Sanitized())
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions":  h.opts.Sessions.GetStats(),
	}
	if h.opts.Transcription != nil {
		stats["transcription"] = h.opts.Transcription.Stats()
	}

	h.writeJSON(w, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"service": "Prescription Voice Assistant",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /whatsapp-webhook": "Messaging gateway webhook",
			"GET /static/{key}":      "Published audio replies (local storage only)",
			"GET /":                  "API documentation",
			"GET /health":            "Service health check",
			"GET /sessions":          "List active conversations",
			"GET /sessions/{id}":     "Get one conversation by sender address",
			"GET /config":            "Get service configuration",
			"GET /stats":             "Get service statistics",
			"GET /metrics":           "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
