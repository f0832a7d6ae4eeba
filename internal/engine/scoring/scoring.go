// Package scoring computes RFM scores, churn probabilities and behavioral
// segments. Every function is pure; the reference time is passed in.
package scoring

import (
	"math"
	"time"

	"loyalty-agent/internal/models"
)

// RFM parameters.
const (
	RecencyDecayDays = 365.0
	MaxFrequency     = 150.0
	MaxLifetimeValue = 300000.0

	WeightRecency   = 0.30
	WeightFrequency = 0.35
	WeightMonetary  = 0.35
)

// Churn parameters. Recency thresholds are in days, frequency thresholds in
// purchases per month.
const (
	ChurnRecencyRecent   = 30
	ChurnRecencyModerate = 90
	ChurnRecencyOld      = 180

	FrequencyHigh   = 2.0
	FrequencyMedium = 1.0
	FrequencyLow    = 0.5

	ChurnWeightRecency    = 0.35
	ChurnWeightFrequency  = 0.25
	ChurnWeightEngagement = 0.25
	ChurnWeightRFM        = 0.15

	ChurnRiskHigh   = 0.7
	ChurnRiskMedium = 0.4
)

// Segmentation parameters.
const (
	ChampionThreshold  = 75.0
	LoyalThreshold     = 50.0
	PotentialThreshold = 30.0

	NewCustomerPurchaseLimit = 3

	EngagementHigh   = 70.0
	EngagementMedium = 40.0
)

// RecencyDays is the number of whole days between the last purchase and now.
func RecencyDays(c models.Customer, now time.Time) int {
	return int(math.Floor(now.Sub(c.LastPurchaseDate.Time).Hours() / 24))
}

// CalculateRFM scores a customer. A customer without completed transactions
// gets the zero result.
func CalculateRFM(c models.Customer, completed []models.Transaction, now time.Time) models.RFMResult {
	if len(completed) == 0 {
		return models.RFMResult{}
	}

	days := RecencyDays(c, now)
	recency := clamp(100-float64(days)/RecencyDecayDays, 0, 100)
	frequency := clamp(float64(c.TotalPurchases)/MaxFrequency*100, 0, 100)
	monetary := clamp(c.LifetimeValue/MaxLifetimeValue*100, 0, 100)

	score := recency*WeightRecency + frequency*WeightFrequency + monetary*WeightMonetary

	return models.RFMResult{
		Recency:        round(recency, 2),
		Frequency:      round(frequency, 2),
		Monetary:       round(monetary, 2),
		RFMScore:       round(score, 2),
		RecencyDays:    days,
		TotalPurchases: c.TotalPurchases,
		LifetimeValue:  round(c.LifetimeValue, 2),
	}
}

// PredictChurn combines recency, frequency, engagement and RFM risk into a
// probability in [0, 1] rounded to three decimals.
func PredictChurn(c models.Customer, rfmScore float64, now time.Time) float64 {
	p := recencyRisk(RecencyDays(c, now))*ChurnWeightRecency +
		frequencyRisk(c.PurchaseFrequency)*ChurnWeightFrequency +
		clamp(1-c.EngagementScore/100, 0, 1)*ChurnWeightEngagement +
		clamp(1-rfmScore/100, 0, 1)*ChurnWeightRFM

	return round(clamp(p, 0, 1), 3)
}

func recencyRisk(days int) float64 {
	switch {
	case days < ChurnRecencyRecent:
		return 0.1
	case days < ChurnRecencyModerate:
		return 0.3
	case days < ChurnRecencyOld:
		return 0.6
	default:
		return 0.9
	}
}

func frequencyRisk(perMonth float64) float64 {
	switch {
	case perMonth > FrequencyHigh:
		return 0.1
	case perMonth > FrequencyMedium:
		return 0.3
	case perMonth > FrequencyLow:
		return 0.5
	default:
		return 0.8
	}
}

// Segment classifies a customer from an already computed RFM result and
// churn probability.
func Segment(c models.Customer, rfm models.RFMResult, churn float64) models.SegmentationResult {
	return models.SegmentationResult{
		CustomerID:       c.CustomerID,
		BasicSegment:     c.Segment,
		LoyaltyTier:      c.LoyaltyTier,
		DetailedSegment:  DetailedSegment(rfm.RFMScore, churn, c.TotalPurchases),
		RFMScore:         rfm.RFMScore,
		ChurnProbability: churn,
		IsAtRisk:         churn >= ChurnRiskMedium,
		EngagementLevel:  EngagementLevel(c.EngagementScore),
	}
}

// DetailedSegment maps (rfm, churn, purchases) to exactly one label.
func DetailedSegment(rfmScore, churn float64, totalPurchases int) models.DetailedSegment {
	switch {
	case rfmScore >= ChampionThreshold:
		if churn < 0.3 {
			return models.SegmentChampion
		}
		return models.SegmentAtRiskChampion
	case rfmScore >= LoyalThreshold:
		if churn < 0.4 {
			return models.SegmentLoyalCustomer
		}
		return models.SegmentAtRiskLoyal
	case rfmScore >= PotentialThreshold:
		if churn < 0.5 {
			return models.SegmentPotentialLoyalist
		}
		return models.SegmentHibernating
	case totalPurchases < NewCustomerPurchaseLimit:
		return models.SegmentNewCustomer
	default:
		return models.SegmentLostCustomer
	}
}

func EngagementLevel(score float64) models.Level {
	switch {
	case score >= EngagementHigh:
		return models.LevelHigh
	case score >= EngagementMedium:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

// RiskLevel buckets a churn probability.
func RiskLevel(churn float64) models.Level {
	switch {
	case churn >= ChurnRiskHigh:
		return models.LevelHigh
	case churn >= ChurnRiskMedium:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
