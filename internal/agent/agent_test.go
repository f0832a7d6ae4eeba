// internal/agent/agent_test.go
package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/internal/models"
	"loyalty-agent/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

func daysAgo(n int) models.Date {
	d := fixedNow.AddDate(0, 0, -n)
	return models.NewDate(d.Year(), d.Month(), d.Day())
}

func staleCustomer(id string, ltv float64) models.Customer {
	return models.Customer{
		CustomerID:        id,
		Segment:           "Occasional",
		LoyaltyTier:       "Bronze",
		RegistrationDate:  daysAgo(600),
		LastPurchaseDate:  daysAgo(200),
		TotalPurchases:    10,
		AvgOrderValue:     ltv / 10,
		LifetimeValue:     ltv,
		PurchaseFrequency: 0.3,
		EngagementScore:   20,
	}
}

func freshCustomer(id string, ltv float64) models.Customer {
	return models.Customer{
		CustomerID:        id,
		Segment:           "Premium",
		LoyaltyTier:       "Gold",
		RegistrationDate:  daysAgo(700),
		LastPurchaseDate:  daysAgo(5),
		TotalPurchases:    120,
		AvgOrderValue:     ltv / 120,
		LifetimeValue:     ltv,
		PurchaseFrequency: 3,
		EngagementScore:   90,
		IsActive:          true,
	}
}

func completedTxn(n int, customerID string) models.Transaction {
	return models.Transaction{
		TransactionID: fmt.Sprintf("TXN%08d", n),
		CustomerID:    customerID,
		FinalAmount:   100,
		Status:        models.StatusCompleted,
	}
}

func newTestAgent(t *testing.T, customers ...models.Customer) *Agent {
	t.Helper()
	txns := make([]models.Transaction, len(customers))
	for i, c := range customers {
		txns[i] = completedTxn(i, c.CustomerID)
	}
	s, err := store.New("test", customers, txns)
	require.NoError(t, err)

	seq := 0
	return New(s, logger.NewTestLogger(t),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("analysis-%d", seq)
		}),
	)
}

// ==========================
// Analyze
// ==========================

func TestAnalyze(t *testing.T) {
	a := newTestAgent(t, staleCustomer("CUST000001", 2000))

	result, err := a.Analyze(context.Background(), "  CUST000001 ")
	require.NoError(t, err)

	assert.Equal(t, "analysis-1", result.AnalysisID)
	assert.Equal(t, "CUST000001", result.CustomerID)
	assert.Equal(t, "2025-06-01 12:00:00", result.Timestamp)
	assert.Equal(t, "Bronze", result.Profile.LoyaltyTier)

	assert.Equal(t, 32.4, result.RFMAnalysis.RFMScore)
	assert.Equal(t, models.SegmentHibernating, result.Segmentation.DetailedSegment)
	assert.True(t, result.Segmentation.IsAtRisk)

	assert.Equal(t, models.ChurnPrediction{
		Probability:        0.816,
		RiskLevel:          models.LevelHigh,
		PredictedRetention: "18.4%",
	}, result.ChurnPrediction)

	assert.Equal(t, models.StrategyChurnPrevention, result.Recommendation.Strategy)
	assert.Equal(t, models.RewardVIPUpgrade, result.Recommendation.RecommendedReward)
	assert.Equal(t, "-46.0%", result.Recommendation.ExpectedROI)

	assert.Equal(t, models.KPIs{
		LifetimeValue:   2000,
		TotalPurchases:  10,
		AvgOrderValue:   200,
		EngagementScore: 20,
	}, result.KPIs)
}

func TestAnalyze_Errors(t *testing.T) {
	a := newTestAgent(t, staleCustomer("CUST000001", 2000))

	tests := []struct {
		name    string
		id      string
		check   func(error) bool
		details string
	}{
		{"unknown customer", "NOPE", apperrors.IsCustomerNotFound, "NOPE"},
		{"empty id", "   ", apperrors.IsValidation, "Customer ID cannot be empty"},
		{"id too long", strings.Repeat("x", 51), apperrors.IsValidation, "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Analyze(context.Background(), tt.id)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Contains(t, err.Error(), tt.details)
		})
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	a := newTestAgent(t, staleCustomer("CUST000001", 2000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, "CUST000001")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptimize(t *testing.T) {
	a := newTestAgent(t, staleCustomer("CUST000001", 2000))

	summary, err := a.Optimize(context.Background(), "CUST000001")
	require.NoError(t, err)

	assert.Equal(t, "CUST000001", summary.CustomerID)
	assert.Equal(t, models.SegmentHibernating, summary.Segment)
	assert.Equal(t, models.LevelHigh, summary.ChurnRisk)
	assert.InDelta(t, 0.184, summary.PredictedRetention, 1e-9)
	assert.Equal(t, models.RewardVIPUpgrade, summary.RecommendedReward)
	assert.Equal(t, 0.9, summary.Confidence)
	assert.Equal(t, fixedNow.Format(time.RFC3339), summary.Timestamp)
}

func TestAccessors(t *testing.T) {
	a := newTestAgent(t, freshCustomer("CUST000000", 150000))

	rfm, err := a.RFM("CUST000000")
	require.NoError(t, err)
	assert.Equal(t, 5, rfm.RecencyDays)

	churn, err := a.Churn("CUST000000")
	require.NoError(t, err)
	assert.Equal(t, models.LevelLow, churn.RiskLevel)

	seg, err := a.Segment("CUST000000")
	require.NoError(t, err)
	assert.Equal(t, rfm.RFMScore, seg.RFMScore)
	assert.Equal(t, churn.Probability, seg.ChurnProbability)

	rec, err := a.Recommend("CUST000000")
	require.NoError(t, err)
	assert.Equal(t, seg.DetailedSegment, rec.Reasoning.Segment)

	for _, call := range []func(string) error{
		func(id string) error { _, err := a.RFM(id); return err },
		func(id string) error { _, err := a.Churn(id); return err },
		func(id string) error { _, err := a.Segment(id); return err },
		func(id string) error { _, err := a.Recommend(id); return err },
	} {
		assert.True(t, apperrors.IsCustomerNotFound(call("NOPE")))
	}
}

// ==========================
// Batch operations
// ==========================

func TestBatchAnalyze_LimitAppliesBeforeAnalysis(t *testing.T) {
	customers := make([]models.Customer, 100)
	for i := range customers {
		customers[i] = staleCustomer(fmt.Sprintf("CUST%06d", i), float64(1000+i))
	}
	a := newTestAgent(t, customers...)

	results, err := a.BatchAnalyze(context.Background(), nil, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("CUST%06d", i), r.CustomerID)
	}

	// The unknown id lies beyond the limit and is never looked up.
	results, err = a.BatchAnalyze(context.Background(), []string{"CUST000010", "CUST000003", "NOPE"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CUST000010", results[0].CustomerID)
	assert.Equal(t, "CUST000003", results[1].CustomerID)
}

func TestBatchAnalyze(t *testing.T) {
	a := newTestAgent(t, staleCustomer("A", 1), freshCustomer("B", 2))

	all, err := a.BatchAnalyze(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	big, err := a.BatchAnalyze(context.Background(), nil, 50)
	require.NoError(t, err)
	assert.Len(t, big, 2)

	_, err = a.BatchAnalyze(context.Background(), nil, -1)
	assert.True(t, apperrors.IsValidation(err))

	_, err = a.BatchAnalyze(context.Background(), []string{}, 0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = a.BatchAnalyze(context.Background(), []string{"A", "NOPE"}, 0)
	assert.True(t, apperrors.IsCustomerNotFound(err))
}

func TestHighValueAtRisk(t *testing.T) {
	a := newTestAgent(t,
		staleCustomer("A", 90000),
		staleCustomer("B", 60000),
		freshCustomer("D", 200000),
		staleCustomer("C", 90000),
		staleCustomer("E", 1000),
	)

	results, err := a.HighValueAtRisk(context.Background(), DefaultAtRiskThreshold, DefaultMinLifetimeValue)
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.CustomerID
		assert.GreaterOrEqual(t, r.ChurnPrediction.Probability, DefaultAtRiskThreshold)
		assert.GreaterOrEqual(t, r.KPIs.LifetimeValue, DefaultMinLifetimeValue)
	}
	assert.Equal(t, []string{"A", "C", "B"}, ids, "descending ltv, ties in store order")
}

func TestHighValueAtRisk_Validation(t *testing.T) {
	a := newTestAgent(t, staleCustomer("A", 90000))

	tests := []struct {
		name      string
		threshold float64
		minLTV    float64
	}{
		{"threshold above one", 1.5, 0},
		{"negative threshold", -0.1, 0},
		{"negative min ltv", 0.5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.HighValueAtRisk(context.Background(), tt.threshold, tt.minLTV)
			assert.True(t, apperrors.IsValidation(err))
		})
	}

	results, err := a.HighValueAtRisk(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
