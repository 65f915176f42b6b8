// Package api serves the account feed, metrics and daily series over HTTP.
// Reads never trigger an upstream fetch; only the POST routes do.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"xrpl-activity-lab/internal/aggregator"
	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/metrics"
	"xrpl-activity-lab/internal/observability"
	"xrpl-activity-lab/internal/service"
	"xrpl-activity-lab/internal/timeseries"
)

// Server routes HTTP requests to the session registry.
type Server struct {
	registry *service.Registry
	logger   *log.Logger
	started  time.Time
}

// NewServer creates a Server.
func NewServer(registry *service.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{registry: registry, logger: logger, started: time.Now()}
}

// Handler returns the routed handler, including /health and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.instrument("status", s.handleStatus))

	mux.HandleFunc("GET /v1/accounts/{account}/activity", s.instrument("activity", s.handleActivity))
	mux.HandleFunc("POST /v1/accounts/{account}/activity/next", s.instrument("activity_next", s.handleNext))
	mux.HandleFunc("POST /v1/accounts/{account}/reset", s.instrument("reset", s.handleReset))
	mux.HandleFunc("POST /v1/accounts/{account}/performance/refresh", s.instrument("performance_refresh", s.handleRefresh))
	mux.HandleFunc("GET /v1/accounts/{account}/metrics", s.instrument("metrics", s.handleMetrics))
	mux.HandleFunc("GET /v1/accounts/{account}/series/{kind}", s.instrument("series", s.handleSeries))

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status   string   `json:"status"`
	Uptime   string   `json:"uptime"`
	Accounts []string `json:"accounts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Accounts: s.registry.Accounts(),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	q := r.URL.Query()
	filter := aggregator.Filter{
		Kinds: aggregator.ParseKinds(q.Get("kinds")),
		Query: q.Get("q"),
	}

	feed, statuses, err := s.registry.Activity(account, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit < len(feed) {
		feed = feed[:limit]
	}

	writeJSON(w, http.StatusOK, ActivityResponse{
		Account:    account,
		Count:      len(feed),
		Activities: toActivitiesJSON(feed),
		Sources:    toStatusesJSON(statuses),
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	res, err := s.registry.MergeNextPage(r.Context(), account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{
		Account:   account,
		Session:   res.SessionID,
		Added:     res.Added,
		Count:     len(res.Feed),
		Exhausted: res.Exhausted,
		Sources:   toStatusesJSON(res.Statuses),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Reset(r.Context(), r.PathValue("account")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.RefreshPerformance(r.Context(), r.PathValue("account")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	window, ok := domain.ParseWindow(r.URL.Query().Get("window"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "window must be one of 24h, 7d, 1m, 3m, all"})
		return
	}
	sum, err := s.registry.Summary(r.Context(), r.PathValue("account"), window)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	kind := domain.SeriesKind(r.PathValue("kind"))
	points, err := s.registry.Series(account, kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SeriesResponse{
		Account: account,
		Kind:    string(kind),
		Points:  toPointsJSON(points),
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAccount),
		errors.Is(err, metrics.ErrInvalidWindow),
		errors.Is(err, timeseries.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStaleSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOrdering):
		return http.StatusUnprocessableEntity
	case errors.Is(err, aggregator.ErrNoStatsSource):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Printf("request error: %v", err)
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.code), time.Since(start).Seconds())
	}
}
