package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/herdask/internal/domain"
	assistantuc "github.com/kailas-cloud/herdask/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/herdask/internal/usecase/health"
	"github.com/kailas-cloud/herdask/internal/version"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the chat, recommendation and history API.
type Server struct {
	assistant     *assistantuc.Service
	health        *healthuc.Service
	callerHeader  string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. An empty callerHeader uses DefaultCallerHeader.
func NewServer(
	assistant *assistantuc.Service,
	health *healthuc.Service,
	callerHeader string,
	logger *zap.Logger,
) *Server {
	if callerHeader == "" {
		callerHeader = DefaultCallerHeader
	}
	s := &Server{
		assistant:    assistant,
		health:       health,
		callerHeader: callerHeader,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthorized),
		sentinelHandler(domain.ErrMalformedRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrBusy, http.StatusTooManyRequests, CodeBusy),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationProvider, http.StatusBadGateway, CodeGenerationProviderError),
		sentinelHandler(domain.ErrRanking, http.StatusServiceUnavailable, CodeRankingError),
	}
	return s
}

// Mount registers every route on r. Unknown paths and wrong methods get JSON errors.
func (s *Server) Mount(r gochi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/recommend", s.Recommend)
		r.Group(func(r gochi.Router) {
			r.Use(CallerMiddleware(s.callerHeader))
			r.Post("/chat", s.Chat)
			r.Get("/chat/history", s.ChatHistory)
		})
	})
}

// Chat handles POST /api/v1/chat. Busy and pipeline failures still answer 200 with a fixed reply.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := s.assistant.Ask(r.Context(), CallerFromContext(r.Context()), req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply.Text})
}

// Recommend handles POST /api/v1/recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	topK := 0
	if req.TopK != nil {
		if *req.TopK <= 0 || *req.TopK > assistantuc.MaxRecommendTopK {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"top_k must be between 1 and "+strconv.Itoa(assistantuc.MaxRecommendTopK))
			return
		}
		topK = *req.TopK
	}

	results, err := s.assistant.Recommend(r.Context(), req.Query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]recommendItem, len(results))
	for i := range results {
		items[i] = recommendItemFromDomain(&results[i])
	}
	writeJSON(w, http.StatusOK, recommendResponse{Results: items})
}

// ChatHistory handles GET /api/v1/chat/history.
func (s *Server) ChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := s.assistant.History(r.Context(), CallerFromContext(r.Context()), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]historyItem, len(msgs))
	for i := range msgs {
		items[i] = historyItemFromDomain(&msgs[i])
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnauthenticated,
		domain.ErrMalformedRequest,
		domain.ErrBusy,
		domain.ErrTimeout,
		domain.ErrEmbeddingProvider,
		domain.ErrGenerationProvider,
		domain.ErrRanking,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err), zap.String("error_kind", domain.ErrorKind(err)))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
