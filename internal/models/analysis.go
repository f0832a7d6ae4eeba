// internal/models/analysis.go
package models

// DetailedSegment is the behavioral label assigned from RFM score and churn.
type DetailedSegment string

const (
	SegmentChampion          DetailedSegment = "Champion"
	SegmentAtRiskChampion    DetailedSegment = "At-Risk Champion"
	SegmentLoyalCustomer     DetailedSegment = "Loyal Customer"
	SegmentAtRiskLoyal       DetailedSegment = "At-Risk Loyal"
	SegmentPotentialLoyalist DetailedSegment = "Potential Loyalist"
	SegmentHibernating       DetailedSegment = "Hibernating"
	SegmentNewCustomer       DetailedSegment = "New Customer"
	SegmentLostCustomer      DetailedSegment = "Lost Customer"
)

// DetailedSegments lists every label in threshold order.
var DetailedSegments = []DetailedSegment{
	SegmentChampion, SegmentAtRiskChampion,
	SegmentLoyalCustomer, SegmentAtRiskLoyal,
	SegmentPotentialLoyalist, SegmentHibernating,
	SegmentNewCustomer, SegmentLostCustomer,
}

// Strategy labels.
const (
	StrategyChurnPrevention = "Churn Prevention - High Value Retention"
	StrategyEngagement      = "Engagement & Loyalty Reinforcement"
	StrategyGrowth          = "Growth & Upsell"
	StrategyActivation      = "New Customer Activation"
	StrategyWinBack         = "Win-Back Campaign"
)

// Level is a High/Medium/Low bucket used for churn risk and engagement.
type Level string

const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

type RFMResult struct {
	Recency        float64 `json:"recency"`
	Frequency      float64 `json:"frequency"`
	Monetary       float64 `json:"monetary"`
	RFMScore       float64 `json:"rfm_score"`
	RecencyDays    int     `json:"recency_days"`
	TotalPurchases int     `json:"total_purchases"`
	LifetimeValue  float64 `json:"lifetime_value"`
}

type SegmentationResult struct {
	CustomerID       string          `json:"customer_id"`
	BasicSegment     string          `json:"basic_segment"`
	LoyaltyTier      string          `json:"loyalty_tier"`
	DetailedSegment  DetailedSegment `json:"detailed_segment"`
	RFMScore         float64         `json:"rfm_score"`
	ChurnProbability float64         `json:"churn_probability"`
	IsAtRisk         bool            `json:"is_at_risk"`
	EngagementLevel  Level           `json:"engagement_level"`
}

type RankedReward struct {
	Key        string  `json:"key"`
	Confidence float64 `json:"confidence"`
}

type AlternativeReward struct {
	Reward     string  `json:"reward"`
	Confidence float64 `json:"confidence"`
}

type Reasoning struct {
	Segment       DetailedSegment `json:"segment"`
	ChurnRisk     Level           `json:"churn_risk"`
	RFMScore      float64         `json:"rfm_score"`
	LifetimeValue float64         `json:"lifetime_value"`
}

// Recommendation carries lift and ROI both as display strings ("27.0%") and
// as raw numbers.
type Recommendation struct {
	CustomerID            string              `json:"customer_id"`
	RecommendedReward     string              `json:"recommended_reward"`
	RewardDetails         Reward              `json:"reward_details"`
	Confidence            float64             `json:"confidence"`
	Strategy              string              `json:"strategy"`
	AlternativeRewards    []AlternativeReward `json:"alternative_rewards"`
	ExpectedRetentionLift string              `json:"expected_retention_lift"`
	ExpectedROI           string              `json:"expected_roi"`
	RetentionLiftValue    float64             `json:"retention_lift_value"`
	ROIValue              float64             `json:"roi_value"`
	Reasoning             Reasoning           `json:"reasoning"`
}

type ChurnPrediction struct {
	Probability        float64 `json:"probability"`
	RiskLevel          Level   `json:"risk_level"`
	PredictedRetention string  `json:"predicted_retention"`
}

type Profile struct {
	Segment          string `json:"segment"`
	LoyaltyTier      string `json:"loyalty_tier"`
	RegistrationDate Date   `json:"registration_date"`
	LastPurchaseDate Date   `json:"last_purchase_date"`
	IsActive         bool   `json:"is_active"`
}

type KPIs struct {
	LifetimeValue   float64 `json:"lifetime_value"`
	TotalPurchases  int     `json:"total_purchases"`
	AvgOrderValue   float64 `json:"avg_order_value"`
	EngagementScore float64 `json:"engagement_score"`
}

// AnalysisResult is the full per-customer record.
type AnalysisResult struct {
	AnalysisID      string             `json:"analysis_id"`
	CustomerID      string             `json:"customer_id"`
	Profile         Profile            `json:"profile"`
	RFMAnalysis     RFMResult          `json:"rfm_analysis"`
	Segmentation    SegmentationResult `json:"segmentation"`
	ChurnPrediction ChurnPrediction    `json:"churn_prediction"`
	Recommendation  Recommendation     `json:"recommendation"`
	KPIs            KPIs               `json:"kpis"`
	Timestamp       string             `json:"timestamp"`
}

// OptimizationSummary is the condensed record served by /analyze and kept
// in memory.
type OptimizationSummary struct {
	AnalysisID         string          `json:"analysis_id"`
	CustomerID         string          `json:"customer_id"`
	Segment            DetailedSegment `json:"segment"`
	RFMScore           float64         `json:"rfm_score"`
	ChurnRisk          Level           `json:"churn_risk"`
	PredictedRetention float64         `json:"predicted_retention"`
	RecommendedReward  string          `json:"recommended_reward"`
	RewardDetails      Reward          `json:"reward_details"`
	Confidence         float64         `json:"confidence"`
	Strategy           string          `json:"strategy"`
	Timestamp          string          `json:"timestamp"`
}
