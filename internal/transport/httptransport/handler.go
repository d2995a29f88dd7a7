package httptransport

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/awmpietro/path-analysis/internal/app"
	"github.com/awmpietro/path-analysis/internal/transport/analyzedto"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 64 << 20

const requestIDHeader = "X-Request-Id"

type Handler struct {
	svc          app.Analyzer
	logger       *log.Logger
	maxBodyBytes int64
}

type Option func(*Handler)

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func NewHandler(svc app.Analyzer, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: log.Default(), maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts POST /analyze and GET /healthz.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Post("/analyze", h.Analyze)
	r.Get("/healthz", h.Health)
	return r
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in analyzedto.AnalyzeRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := sonic.ConfigDefault.NewDecoder(body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json", "details": err.Error()})
		return
	}

	rows, err := in.EventRows()
	if err != nil {
		writeJSON(w, analyzedto.StatusFor(err), analyzedto.NewErrorResponse("invalid rows", err, nil))
		return
	}

	if in.Debug {
		res, trace, err := h.svc.AnalyzeWithTrace(r.Context(), rows, in.Options)
		if err != nil {
			writeJSON(w, analyzedto.StatusFor(err), analyzedto.NewErrorResponse("analyze failed", err, trace))
			return
		}
		writeJSON(w, http.StatusOK, analyzedto.AnalyzeResponse{Result: *res, Trace: trace})
		return
	}

	res, err := h.svc.Analyze(r.Context(), rows, in.Options)
	if err != nil {
		writeJSON(w, analyzedto.StatusFor(err), analyzedto.NewErrorResponse("analyze failed", err, nil))
		return
	}
	writeJSON(w, http.StatusOK, analyzedto.AnalyzeResponse{Result: *res})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(body)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"request_id", w.Header().Get(requestIDHeader),
		)
	})
}
