// internal/agent/agent.go
package agent

import (
	"context"
	"time"

	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/internal/common/metrics"
	"loyalty-agent/internal/common/observability"
	"loyalty-agent/internal/models"

	"github.com/google/uuid"
)

// TimestampLayout is the layout of AnalysisResult timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// CustomerStore is the read side of the reference data.
type CustomerStore interface {
	Customer(id string) (models.Customer, bool)
	Transactions(id string) []models.Transaction
	CustomerIDs() []string
}

// Agent composes scoring and recommendation into per-customer results. It
// holds no mutable state and is safe for concurrent use.
type Agent struct {
	store  CustomerStore
	logger logger.Logger
	obs    *observability.Observability
	now    func() time.Time
	newID  func() string
}

type Option func(*Agent)

// WithClock overrides the reference time used for recency.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithObservability(obs *observability.Observability) Option {
	return func(a *Agent) { a.obs = obs }
}

// WithIDGenerator overrides analysis id generation.
func WithIDGenerator(f func() string) Option {
	return func(a *Agent) { a.newID = f }
}

func New(store CustomerStore, log logger.Logger, opts ...Option) *Agent {
	a := &Agent{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "agent"}),
		obs:    observability.NewNoop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// observe opens a span for operation and returns a func that closes it and
// records the outcome.
func (a *Agent) observe(ctx context.Context, operation, customerID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := a.obs.StartSpan(ctx, "agent."+operation)

	return ctx, func(err error) {
		defer span.End()
		elapsed := time.Since(start)

		metrics.AnalysisDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
		a.obs.RecordAnalysisDuration(ctx, elapsed, operation)

		if err != nil {
			span.RecordError(err)
			code := string(errors.AsStandardError(err).Code)
			metrics.AnalysesFailed.WithLabelValues(operation, code).Inc()
			a.obs.RecordAnalysis(ctx, operation, "failed")
			a.logger.Warn("analysis failed", map[string]interface{}{
				"operation":  operation,
				"customerId": customerID,
				"error":      err.Error(),
			})
			return
		}

		metrics.AnalysesCompleted.WithLabelValues(operation).Inc()
		a.obs.RecordAnalysis(ctx, operation, "success")
	}
}
