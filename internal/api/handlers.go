// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loyalty-agent/internal/agent"
	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/common/validation"

	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 10
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeValidated reads the body, checks it against schema and decodes it
// into out.
func decodeValidated(r *http.Request, schema string, out interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewValidationError("body", "Unable to read request body")
	}
	if !json.Valid(body) {
		return errors.NewValidationError("body", "Request body must be valid JSON")
	}

	result, err := validation.ValidateDocument(schema, body)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !result.Valid {
		return errors.NewValidationError("body", strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewValidationError("body", err.Error())
	}
	return nil
}

func (s *Server) unavailable() error {
	return errors.NewServiceUnavailableError("customer data is not loaded")
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:     "Welcome to Loyalty AI Agent API",
		Version:     s.deps.App.Version,
		Status:      "online",
		Deployed:    true,
		Environment: s.deps.App.Environment,
		Endpoints: map[string]string{
			"analyze":    "POST /analyze",
			"batch":      "POST /analyze/batch",
			"health":     "GET /health",
			"metrics":    "GET /metrics",
			"register":   "POST /register",
			"history":    "GET /customers/{id}/history",
			"at_risk":    "GET /customers/at-risk",
			"memory":     "GET /memory/stats",
			"clear":      "DELETE /memory/short-term",
			"prometheus": "GET /prometheus",
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeValidated(r, validation.SchemaAnalyzeRequest, &req); err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	if s.deps.Agent == nil {
		s.errors.HandleHTTPError(w, r, s.unavailable())
		return
	}

	summary, err := s.deps.Agent.Optimize(r.Context(), req.CustomerID)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}

	if err := s.deps.Memory.Remember(r.Context(), summary.CustomerID, summary); err != nil {
		s.logger.Warn("failed to remember analysis", map[string]interface{}{
			"customerId": summary.CustomerID,
			"error":      err.Error(),
		})
	}

	resp := analyzeResponse{
		CustomerID:         summary.CustomerID,
		RecommendedReward:  summary.RecommendedReward,
		PredictedRetention: summary.PredictedRetention,
		Segment:            string(summary.Segment),
		RFMScore:           summary.RFMScore,
		ChurnRisk:          string(summary.ChurnRisk),
		Timestamp:          s.now().Format(time.RFC3339),
	}
	if req.IncludeHistory {
		resp.History = s.deps.Memory.History(summary.CustomerID, 0)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeValidated(r, validation.SchemaBatchRequest, &req); err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	if s.deps.Agent == nil {
		s.errors.HandleHTTPError(w, r, s.unavailable())
		return
	}

	results, err := s.deps.Agent.BatchAnalyze(r.Context(), req.CustomerIDs, req.Limit)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Count: len(results), Results: results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := s.now().Sub(s.started)
	requests, failures := s.requests.Load(), s.failures.Load()

	resp := healthResponse{
		Status:        "healthy",
		UptimeSeconds: math.Round(uptime.Seconds()*100) / 100,
		UptimeHuman:   formatUptime(uptime),
		TotalRequests: requests,
		TotalErrors:   failures,
		Timestamp:     s.now().Format(time.RFC3339),
		Environment:   s.deps.App.Environment,
	}
	if requests > 0 {
		resp.ErrorRate = math.Round(float64(failures)/float64(requests)*100*100) / 100
	}
	if s.deps.Agent == nil || s.deps.Catalog == nil {
		resp.Status = "degraded"
	} else {
		resp.CustomersLoaded = s.deps.Catalog.CustomerCount()
		resp.TransactionsLoaded = s.deps.Catalog.TransactionCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Agent == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func formatUptime(d time.Duration) string {
	secs := int64(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", secs/3600, secs%3600/60, secs%60)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		s.errors.HandleHTTPError(w, r, s.unavailable())
		return
	}

	resp := metricsResponse{
		TotalCustomers:          s.deps.Catalog.CustomerCount(),
		SegmentDistribution:     map[string]int{},
		LoyaltyTierDistribution: map[string]int{},
		RewardSummary:           map[string]int{},
		Timestamp:               s.now().Format(time.RFC3339),
	}
	for _, c := range s.deps.Catalog.AllCustomers() {
		resp.SegmentDistribution[orUnknown(c.Segment)]++
		resp.LoyaltyTierDistribution[orUnknown(c.LoyaltyTier)]++
	}

	recent := s.deps.Memory.AllShortTerm()
	var retention, churn float64
	for _, raw := range recent {
		var rec cachedSummary
		_ = json.Unmarshal(raw, &rec)

		retention += rec.PredictedRetention
		switch rec.ChurnRisk {
		case "High":
			churn++
		case "Medium":
			churn += 0.5
		}
		resp.RewardSummary[orUnknown(rec.RecommendedReward)]++
	}
	if n := float64(len(recent)); n > 0 {
		resp.AvgRetentionRate = math.Round(retention/n*10000) / 10000
		resp.AvgChurnRisk = math.Round(churn/n*10000) / 10000
	}
	writeJSON(w, http.StatusOK, resp)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeValidated(r, validation.SchemaRegisterRequest, &req); err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	if s.deps.Registry == nil {
		s.errors.HandleHTTPError(w, r, errors.NewServiceUnavailableError("registry client is not configured"))
		return
	}

	reg, err := s.deps.Registry.Register(r.Context(), req.SupervisorURL, req.AgentMetadata)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	if s.deps.HeartbeatInterval > 0 {
		s.deps.Registry.StartHeartbeat(s.deps.Lifetime, s.deps.HeartbeatInterval)
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ValidateCustomerID(chi.URLParam(r, "id"))
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.errors.HandleHTTPError(w, r, errors.NewValidationError("limit", "limit must be an integer"))
			return
		}
		if limit, err = validation.ValidateLimit(n); err != nil {
			s.errors.HandleHTTPError(w, r, err)
			return
		}
	}

	history := s.deps.Memory.History(id, limit)
	if history == nil {
		history = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, historyResponse{CustomerID: id, Count: len(history), History: history})
}

func (s *Server) handleAtRisk(w http.ResponseWriter, r *http.Request) {
	if s.deps.Agent == nil {
		s.errors.HandleHTTPError(w, r, s.unavailable())
		return
	}
	threshold, err := floatParam(r, "threshold", agent.DefaultAtRiskThreshold)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	minLTV, err := floatParam(r, "min_ltv", agent.DefaultMinLifetimeValue)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}

	results, err := s.deps.Agent.HighValueAtRisk(r.Context(), threshold, minLTV)
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Count: len(results), Results: results})
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(name, fmt.Sprintf("%s must be a number", name))
	}
	return v, nil
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Memory.Stats())
}

type clearResponse struct {
	Status     string `json:"status"`
	CustomerID string `json:"customer_id,omitempty"`
}

func (s *Server) handleClearShortTerm(w http.ResponseWriter, r *http.Request) {
	s.deps.Memory.ClearShortTerm(r.Context())
	writeJSON(w, http.StatusOK, clearResponse{Status: "cleared"})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ValidateCustomerID(chi.URLParam(r, "id"))
	if err != nil {
		s.errors.HandleHTTPError(w, r, err)
		return
	}
	s.deps.Memory.ClearLongTerm(id)
	writeJSON(w, http.StatusOK, clearResponse{Status: "cleared", CustomerID: id})
}
