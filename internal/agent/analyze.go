// internal/agent/analyze.go
package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/common/metrics"
	"loyalty-agent/internal/common/validation"
	"loyalty-agent/internal/engine/recommend"
	"loyalty-agent/internal/engine/scoring"
	"loyalty-agent/internal/models"
)

// evaluation holds the scores of one customer for the duration of a single
// call. It is never shared between calls.
type evaluation struct {
	customer     models.Customer
	rfm          models.RFMResult
	churn        float64
	segmentation models.SegmentationResult
	at           time.Time
}

func (a *Agent) evaluate(id string) (*evaluation, error) {
	id, err := validation.ValidateCustomerID(id)
	if err != nil {
		return nil, err
	}

	c, ok := a.store.Customer(id)
	if !ok {
		return nil, errors.NewCustomerNotFoundError(id)
	}

	now := a.now()
	rfm := scoring.CalculateRFM(c, a.store.Transactions(id), now)
	churn := scoring.PredictChurn(c, rfm.RFMScore, now)

	return &evaluation{
		customer:     c,
		rfm:          rfm,
		churn:        churn,
		segmentation: scoring.Segment(c, rfm, churn),
		at:           now,
	}, nil
}

// Analyze produces the full analysis record for one customer.
func (a *Agent) Analyze(ctx context.Context, id string) (result *models.AnalysisResult, err error) {
	ctx, done := a.observe(ctx, "analyze", id)
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ev, err := a.evaluate(id)
	if err != nil {
		return nil, err
	}

	result = a.assemble(ev)
	metrics.SegmentAssignments.WithLabelValues(string(ev.segmentation.DetailedSegment)).Inc()

	a.logger.Debug("customer analyzed", map[string]interface{}{
		"customerId": ev.customer.CustomerID,
		"segment":    ev.segmentation.DetailedSegment,
		"rfmScore":   ev.rfm.RFMScore,
		"churn":      ev.churn,
		"reward":     result.Recommendation.RecommendedReward,
	})
	return result, nil
}

func (a *Agent) assemble(ev *evaluation) *models.AnalysisResult {
	c := ev.customer
	return &models.AnalysisResult{
		AnalysisID: a.newID(),
		CustomerID: c.CustomerID,
		Profile: models.Profile{
			Segment:          c.Segment,
			LoyaltyTier:      c.LoyaltyTier,
			RegistrationDate: c.RegistrationDate,
			LastPurchaseDate: c.LastPurchaseDate,
			IsActive:         c.IsActive,
		},
		RFMAnalysis:     ev.rfm,
		Segmentation:    ev.segmentation,
		ChurnPrediction: churnPrediction(ev.churn),
		Recommendation:  recommend.Recommend(c, ev.segmentation),
		KPIs: models.KPIs{
			LifetimeValue:   c.LifetimeValue,
			TotalPurchases:  c.TotalPurchases,
			AvgOrderValue:   c.AvgOrderValue,
			EngagementScore: c.EngagementScore,
		},
		Timestamp: ev.at.Format(TimestampLayout),
	}
}

// Optimize returns the condensed summary that is served to callers and kept
// in memory.
func (a *Agent) Optimize(ctx context.Context, id string) (summary *models.OptimizationSummary, err error) {
	ctx, done := a.observe(ctx, "optimize", id)
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ev, err := a.evaluate(id)
	if err != nil {
		return nil, err
	}

	rec := recommend.Recommend(ev.customer, ev.segmentation)
	metrics.SegmentAssignments.WithLabelValues(string(ev.segmentation.DetailedSegment)).Inc()

	return &models.OptimizationSummary{
		AnalysisID:         a.newID(),
		CustomerID:         ev.customer.CustomerID,
		Segment:            ev.segmentation.DetailedSegment,
		RFMScore:           ev.rfm.RFMScore,
		ChurnRisk:          scoring.RiskLevel(ev.churn),
		PredictedRetention: math.Round((1-ev.churn)*1000) / 1000,
		RecommendedReward:  rec.RecommendedReward,
		RewardDetails:      rec.RewardDetails,
		Confidence:         rec.Confidence,
		Strategy:           rec.Strategy,
		Timestamp:          ev.at.Format(time.RFC3339),
	}, nil
}

// RFM scores a single customer.
func (a *Agent) RFM(id string) (models.RFMResult, error) {
	ev, err := a.evaluate(id)
	if err != nil {
		return models.RFMResult{}, err
	}
	return ev.rfm, nil
}

func (a *Agent) Churn(id string) (models.ChurnPrediction, error) {
	ev, err := a.evaluate(id)
	if err != nil {
		return models.ChurnPrediction{}, err
	}
	return churnPrediction(ev.churn), nil
}

func churnPrediction(p float64) models.ChurnPrediction {
	return models.ChurnPrediction{
		Probability:        p,
		RiskLevel:          scoring.RiskLevel(p),
		PredictedRetention: fmt.Sprintf("%.1f%%", (1-p)*100),
	}
}

func (a *Agent) Segment(id string) (models.SegmentationResult, error) {
	ev, err := a.evaluate(id)
	if err != nil {
		return models.SegmentationResult{}, err
	}
	return ev.segmentation, nil
}

func (a *Agent) Recommend(id string) (models.Recommendation, error) {
	ev, err := a.evaluate(id)
	if err != nil {
		return models.Recommendation{}, err
	}
	return recommend.Recommend(ev.customer, ev.segmentation), nil
}
