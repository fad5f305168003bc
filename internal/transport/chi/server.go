package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	domusage "github.com/kailas-cloud/catalograg/internal/domain/usage"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	queryuc "github.com/kailas-cloud/catalograg/internal/usecase/query"
	usageuc "github.com/kailas-cloud/catalograg/internal/usecase/usage"
)

const (
	maxQueryLength = 2000
	maxBodyBytes   = 64 << 10

	// defaultRecommendQuery is used when /recommendations has no q.
	defaultRecommendQuery = "populaire meilleur"
)

// Limits bounds the list endpoints.
type Limits struct {
	DefaultRecommend int
	MaxRecommend     int
	DefaultSearchK   int
	MaxSearchK       int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultRecommend <= 0 {
		l.DefaultRecommend = 5
	}
	if l.MaxRecommend <= 0 {
		l.MaxRecommend = 50
	}
	if l.DefaultSearchK <= 0 {
		l.DefaultSearchK = 5
	}
	if l.MaxSearchK <= 0 {
		l.MaxSearchK = l.MaxRecommend
	}
	return l
}

// Server serves the query facade over HTTP.
type Server struct {
	query  *queryuc.Service
	health *healthuc.Service
	usage  *usageuc.Service
	limits Limits
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(query *queryuc.Service, health *healthuc.Service, limits Limits, logger *zap.Logger) *Server {
	return &Server{
		query:  query,
		health: health,
		limits: limits.withDefaults(),
		logger: logger,
	}
}

// WithUsage enables GET /api/v1/usage.
func (s *Server) WithUsage(u *usageuc.Service) *Server {
	s.usage = u
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/answer", s.Answer)
		r.Get("/recommendations", s.Recommendations)
		r.Get("/documents", s.ListDocuments)
		r.Get("/search", s.Search)
		r.Post("/refresh", s.Refresh)
		r.Get("/greeting", s.Greeting)
		r.Get("/help", s.Help)
		r.Get("/usage", s.Usage)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorResponseCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponseCodeBadRequest, "method not allowed")
	})
}

// Answer handles POST /api/v1/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := validateQuery(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithGenerationUsage(r.Context())
	answer := s.query.Answer(ctx, q)

	setGenerationHeaders(w, usage)
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: answer})
}

// Recommendations handles GET /api/v1/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		q = defaultRecommendQuery
	}
	if utf8.RuneCountInString(q) > maxQueryLength {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "query too long")
		return
	}

	limit, err := intParam(r, "limit", s.limits.DefaultRecommend, s.limits.MaxRecommend)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	items := s.query.Recommend(r.Context(), q, limit)

	resp := make([]ItemResponse, len(items))
	for i, it := range items {
		resp[i] = itemToResponse(it)
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: resp, Limit: limit, Total: len(resp)})
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	docs := s.query.AllDocuments()
	slices.SortFunc(docs, func(a, b domain.Document) int {
		return strings.Compare(a.ID(), b.ID())
	})

	items := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: items, Total: len(items)})
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q, err := validateQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	k, err := intParam(r, "k", s.limits.DefaultSearchK, s.limits.MaxSearchK)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	results := s.query.SearchScored(q, k)

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = scoredToResponse(results[i])
	}
	writeJSON(w, http.StatusOK, SearchResultListResponse{Items: items, K: k, Total: len(items)})
}

// Refresh handles POST /api/v1/refresh.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	n, err := s.query.RefreshNow(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Upserted: n, Documents: s.query.DocumentCount()})
}

// Greeting handles GET /api/v1/greeting.
func (s *Server) Greeting(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	writeJSON(w, http.StatusOK, TextResponse{Text: s.query.Greeting(name)})
}

// Help handles GET /api/v1/help.
func (s *Server) Help(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TextResponse{Text: s.query.Help()})
}

// Usage handles GET /api/v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeError(w, http.StatusNotFound, ErrorResponseCodeNotFound, "usage reporting is not enabled")
		return
	}

	period := domusage.ParsePeriod(r.URL.Query().Get("period"))
	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToResponse(report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    string(report.Status),
		Checks:    checks,
		Documents: report.Documents,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setGenerationHeaders(w http.ResponseWriter, usage *domain.GenerationUsage) {
	if usage == nil || usage.Source == "" {
		return
	}
	w.Header().Set("X-Answer-Source", usage.Source)
	if usage.TotalTokens > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func validateQuery(raw string) (string, error) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return "", errors.New("query is required")
	}
	if utf8.RuneCountInString(q) > maxQueryLength {
		return "", errors.New("query too long")
	}
	return q, nil
}

// intParam parses a positive integer query parameter, capped at maxVal.
func intParam(r *http.Request, name string, def, maxVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return min(def, maxVal), nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return min(v, maxVal), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrCatalogUnavailable) {
		s.logger.Warn("domain error", zap.Error(err))
		writeError(w, http.StatusBadGateway, ErrorResponseCodeCatalogUnavailable, domain.ErrCatalogUnavailable.Error())
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
