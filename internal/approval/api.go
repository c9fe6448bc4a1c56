package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trade-approval-go/internal/chart"
	"trade-approval-go/internal/models"
)

// APIServer exposes the lifecycle manager over HTTP. The handlers are a thin
// request/response mapping; all semantics live in the Manager.
type APIServer struct {
	server   *http.Server
	manager  *Manager
	renderer chart.Renderer
	logger   *zap.Logger
	validate *validator.Validate
}

// NewAPIServer creates a new APIServer listening on the given port.
func NewAPIServer(manager *Manager, renderer chart.Renderer, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		manager:  manager,
		renderer: renderer,
		logger:   logger.Named("api-server"),
		validate: validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /trade/request", s.requestHandler)
	mux.HandleFunc("GET /trade/status/{id}", s.statusHandler)
	mux.HandleFunc("POST /trade/approve/{id}", s.decideHandler(models.StatusApproved))
	mux.HandleFunc("POST /trade/reject/{id}", s.decideHandler(models.StatusRejected))
	mux.HandleFunc("GET /chart/{id}", s.chartHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Handler returns the server's router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) writeNotFound(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Trade not found"})
}

func (s *APIServer) requestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	req.ApplyDefaults()
	if err := s.validate.Struct(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	trade, err := s.manager.Create(req)
	if err != nil {
		s.logger.Error("Failed to create trade", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "failed to create trade"})
		return
	}

	s.writeJSON(w, http.StatusOK, struct {
		TradeID  string `json:"trade_id"`
		Status   string `json:"status"`
		ChartURL string `json:"chart_url"`
	}{
		TradeID:  trade.ID,
		Status:   string(trade.Status),
		ChartURL: s.manager.ChartURL(trade.ID),
	})
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	trade, err := s.manager.Status(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.writeNotFound(w)
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	var decisionTime *string
	if trade.DecidedAt != nil {
		formatted := trade.DecidedAt.Format(time.RFC3339)
		decisionTime = &formatted
	}

	s.writeJSON(w, http.StatusOK, struct {
		TradeID      string  `json:"trade_id"`
		Status       string  `json:"status"`
		Timestamp    string  `json:"timestamp"`
		ExpiresAt    string  `json:"expires_at"`
		DecisionTime *string `json:"decision_time"`
	}{
		TradeID:      trade.ID,
		Status:       string(trade.Status),
		Timestamp:    trade.CreatedAt.Format(time.RFC3339),
		ExpiresAt:    trade.ExpiresAt.Format(time.RFC3339),
		DecisionTime: decisionTime,
	})
}

// decideHandler builds the approve/reject callback handler for one outcome.
// The response reflects the status after the call, which differs from the
// requested outcome when the decision lost a race or arrived twice.
func (s *APIServer) decideHandler(outcome models.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trade, err := s.manager.Decide(r.PathValue("id"), outcome)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.writeNotFound(w)
				return
			}
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}

		s.writeJSON(w, http.StatusOK, struct {
			Status  string `json:"status"`
			TradeID string `json:"trade_id"`
		}{
			Status:  string(trade.Status),
			TradeID: trade.ID,
		})
	}
}

func (s *APIServer) chartHandler(w http.ResponseWriter, r *http.Request) {
	path, ok := s.renderer.Path(r.PathValue("id"))
	if !ok {
		s.writeJSON(w, http.StatusAccepted, map[string]string{"message": "Chart generating..."})
		return
	}

	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeFile(w, r, path)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Status       string `json:"status"`
		Timestamp    string `json:"timestamp"`
		ActiveTrades int    `json:"active_trades"`
	}{
		Status:       "healthy",
		Timestamp:    time.Now().Format(time.RFC3339),
		ActiveTrades: s.manager.PendingCount(),
	})
}
