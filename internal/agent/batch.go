// internal/agent/batch.go
package agent

import (
	"context"
	"sort"

	"loyalty-agent/internal/common/validation"
	"loyalty-agent/internal/models"
)

// Defaults for HighValueAtRisk.
const (
	DefaultAtRiskThreshold  = 0.6
	DefaultMinLifetimeValue = 50000.0
)

// BatchAnalyze analyzes ids in order, or every loaded customer when ids is
// nil. A non-zero limit truncates the id list before any analysis runs.
func (a *Agent) BatchAnalyze(ctx context.Context, ids []string, limit int) (results []*models.AnalysisResult, err error) {
	ctx, done := a.observe(ctx, "batch_analyze", "")
	defer func() { done(err) }()

	if limit != 0 {
		if _, err := validation.ValidateLimit(limit); err != nil {
			return nil, err
		}
	}

	if ids == nil {
		ids = a.store.CustomerIDs()
	} else if ids, err = validation.ValidateCustomerList(ids); err != nil {
		return nil, err
	}

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	results = make([]*models.AnalysisResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := a.evaluate(id)
		if err != nil {
			return nil, err
		}
		results = append(results, a.assemble(ev))
	}

	a.logger.Info("batch analysis completed", map[string]interface{}{
		"requested": len(ids),
		"limit":     limit,
	})
	return results, nil
}

// HighValueAtRisk returns customers with lifetime value at least minLTV and
// churn probability at least threshold, highest lifetime value first. Ties
// keep store order.
func (a *Agent) HighValueAtRisk(ctx context.Context, threshold, minLTV float64) (results []*models.AnalysisResult, err error) {
	ctx, done := a.observe(ctx, "high_value_at_risk", "")
	defer func() { done(err) }()

	if _, err := validation.ValidateProbability(threshold, "churn_threshold"); err != nil {
		return nil, err
	}
	if _, err := validation.ValidateNonNegative(minLTV, "min_ltv"); err != nil {
		return nil, err
	}

	var matched []*evaluation
	for _, id := range a.store.CustomerIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := a.evaluate(id)
		if err != nil {
			return nil, err
		}
		if ev.customer.LifetimeValue >= minLTV && ev.churn >= threshold {
			matched = append(matched, ev)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].customer.LifetimeValue > matched[j].customer.LifetimeValue
	})

	results = make([]*models.AnalysisResult, len(matched))
	for i, ev := range matched {
		results[i] = a.assemble(ev)
	}

	a.logger.Info("high value at-risk customers identified", map[string]interface{}{
		"threshold": threshold,
		"minLtv":    minLTV,
		"count":     len(results),
	})
	return results, nil
}
