// internal/api/types.go
package api

import (
	"encoding/json"

	"loyalty-agent/internal/models"
)

type analyzeRequest struct {
	CustomerID     string `json:"customer_id"`
	IncludeHistory bool   `json:"include_history"`
}

type analyzeResponse struct {
	CustomerID         string            `json:"customer_id"`
	RecommendedReward  string            `json:"recommended_reward"`
	PredictedRetention float64           `json:"predicted_retention"`
	Segment            string            `json:"segment"`
	RFMScore           float64           `json:"rfm_score"`
	ChurnRisk          string            `json:"churn_risk"`
	Timestamp          string            `json:"timestamp"`
	History            []json.RawMessage `json:"history,omitempty"`
}

type batchRequest struct {
	CustomerIDs []string `json:"customer_ids"`
	Limit       int      `json:"limit"`
}

type batchResponse struct {
	Count   int                      `json:"count"`
	Results []*models.AnalysisResult `json:"results"`
}

type registerRequest struct {
	SupervisorURL string                 `json:"supervisor_url"`
	AgentMetadata map[string]interface{} `json:"agent_metadata"`
}

type rootResponse struct {
	Message     string            `json:"message"`
	Version     string            `json:"version"`
	Status      string            `json:"status"`
	Deployed    bool              `json:"deployed"`
	Environment string            `json:"environment"`
	Endpoints   map[string]string `json:"endpoints"`
}

type healthResponse struct {
	Status             string  `json:"status"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
	UptimeHuman        string  `json:"uptime_human"`
	TotalRequests      int64   `json:"total_requests"`
	TotalErrors        int64   `json:"total_errors"`
	ErrorRate          float64 `json:"error_rate"`
	CustomersLoaded    int     `json:"customers_loaded"`
	TransactionsLoaded int     `json:"transactions_loaded"`
	Timestamp          string  `json:"timestamp"`
	Environment        string  `json:"environment"`
}

type metricsResponse struct {
	TotalCustomers          int            `json:"total_customers"`
	AvgRetentionRate        float64        `json:"avg_retention_rate"`
	AvgChurnRisk            float64        `json:"avg_churn_risk"`
	SegmentDistribution     map[string]int `json:"segment_distribution"`
	LoyaltyTierDistribution map[string]int `json:"loyalty_tier_distribution"`
	RewardSummary           map[string]int `json:"reward_recommendations_summary"`
	Timestamp               string         `json:"timestamp"`
}

// cachedSummary is the subset of a remembered OptimizationSummary that
// /metrics aggregates.
type cachedSummary struct {
	PredictedRetention float64 `json:"predicted_retention"`
	ChurnRisk          string  `json:"churn_risk"`
	RecommendedReward  string  `json:"recommended_reward"`
}

type historyResponse struct {
	CustomerID string            `json:"customer_id"`
	Count      int               `json:"count"`
	History    []json.RawMessage `json:"history"`
}
