// Package recommend picks a reward strategy for a segmented customer and
// estimates its retention lift and ROI.
package recommend

import (
	"fmt"
	"math"

	"loyalty-agent/internal/engine/scoring"
	"loyalty-agent/internal/models"
)

// RetentionLiftFactor scales reward confidence into expected retention lift.
const RetentionLiftFactor = 0.30

// MaxAlternatives is the number of runner-up rewards reported.
const MaxAlternatives = 2

// Strategy is an ordered reward ranking with its label.
type Strategy struct {
	Label   string
	Rewards []models.RankedReward
}

var (
	churnPrevention = Strategy{
		Label: models.StrategyChurnPrevention,
		Rewards: []models.RankedReward{
			{Key: models.RewardVIPUpgrade, Confidence: 0.9},
			{Key: models.RewardPremiumDiscount, Confidence: 0.85},
			{Key: models.RewardGiftVoucher, Confidence: 0.8},
			{Key: models.RewardCashback, Confidence: 0.75},
		},
	}
	engagement = Strategy{
		Label: models.StrategyEngagement,
		Rewards: []models.RankedReward{
			{Key: models.RewardEarlyAccess, Confidence: 0.9},
			{Key: models.RewardVIPUpgrade, Confidence: 0.8},
			{Key: models.RewardBirthdaySpecial, Confidence: 0.75},
			{Key: models.RewardPremiumDiscount, Confidence: 0.7},
		},
	}
	growth = Strategy{
		Label: models.StrategyGrowth,
		Rewards: []models.RankedReward{
			{Key: models.RewardLoyaltyPoints, Confidence: 0.9},
			{Key: models.RewardBundleOffer, Confidence: 0.85},
			{Key: models.RewardStandardDiscount, Confidence: 0.8},
			{Key: models.RewardFreeShipping, Confidence: 0.7},
		},
	}
	activation = Strategy{
		Label: models.StrategyActivation,
		Rewards: []models.RankedReward{
			{Key: models.RewardStandardDiscount, Confidence: 0.9},
			{Key: models.RewardFreeShipping, Confidence: 0.85},
			{Key: models.RewardLoyaltyPoints, Confidence: 0.8},
		},
	}
	winBack = Strategy{
		Label: models.StrategyWinBack,
		Rewards: []models.RankedReward{
			{Key: models.RewardPremiumDiscount, Confidence: 0.9},
			{Key: models.RewardGiftVoucher, Confidence: 0.85},
			{Key: models.RewardCashback, Confidence: 0.8},
		},
	}
)

// SelectStrategy returns the first matching strategy. High churn overrides
// the segment.
func SelectStrategy(segment models.DetailedSegment, churn float64) Strategy {
	switch {
	case segment == models.SegmentAtRiskChampion || segment == models.SegmentAtRiskLoyal ||
		churn >= scoring.ChurnRiskHigh:
		return churnPrevention
	case segment == models.SegmentChampion || segment == models.SegmentLoyalCustomer:
		return engagement
	case segment == models.SegmentPotentialLoyalist:
		return growth
	case segment == models.SegmentNewCustomer:
		return activation
	default:
		return winBack
	}
}

// Recommend builds the recommendation for c from its segmentation.
func Recommend(c models.Customer, seg models.SegmentationResult) models.Recommendation {
	strategy := SelectStrategy(seg.DetailedSegment, seg.ChurnProbability)

	primary := strategy.Rewards[0]
	reward, _ := models.LookupReward(primary.Key)
	confidence := round(primary.Confidence, 2)

	alternatives := make([]models.AlternativeReward, 0, MaxAlternatives)
	for _, r := range strategy.Rewards[1:] {
		if len(alternatives) == MaxAlternatives {
			break
		}
		alt, _ := models.LookupReward(r.Key)
		alternatives = append(alternatives, models.AlternativeReward{Reward: alt.Name, Confidence: r.Confidence})
	}

	lift := confidence * RetentionLiftFactor
	roi := ROI(c.LifetimeValue, lift, reward.Cost)

	return models.Recommendation{
		CustomerID:            c.CustomerID,
		RecommendedReward:     primary.Key,
		RewardDetails:         reward,
		Confidence:            confidence,
		Strategy:              strategy.Label,
		AlternativeRewards:    alternatives,
		ExpectedRetentionLift: fmt.Sprintf("%.1f%%", lift*100),
		ExpectedROI:           fmt.Sprintf("%.1f%%", roi),
		RetentionLiftValue:    round(lift, 4),
		ROIValue:              round(roi, 2),
		Reasoning: models.Reasoning{
			Segment:       seg.DetailedSegment,
			ChurnRisk:     scoring.RiskLevel(seg.ChurnProbability),
			RFMScore:      seg.RFMScore,
			LifetimeValue: c.LifetimeValue,
		},
	}
}

// ROI is the percent return of spending cost to gain lift on ltv. A free
// reward has zero ROI.
func ROI(ltv, lift float64, cost int) float64 {
	if cost == 0 {
		return 0
	}
	return (ltv*lift - float64(cost)) / float64(cost) * 100
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
