// internal/models/customer.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// TransactionStatus values. Only completed transactions count toward scoring.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
)

type Customer struct {
	CustomerID          string   `json:"customer_id"`
	Segment             string   `json:"segment"`
	LoyaltyTier         string   `json:"loyalty_tier"`
	RegistrationDate    Date     `json:"registration_date"`
	LastPurchaseDate    Date     `json:"last_purchase_date"`
	TotalPurchases      int      `json:"total_purchases"`
	AvgOrderValue       float64  `json:"avg_order_value"`
	LifetimeValue       float64  `json:"lifetime_value"`
	PurchaseFrequency   float64  `json:"purchase_frequency"`
	PreferredCategories []string `json:"preferred_categories"`
	EngagementScore     float64  `json:"engagement_score"`
	ChurnRisk           *float64 `json:"churn_risk,omitempty"`
	ContactEmail        string   `json:"contact_email,omitempty"`
	IsActive            bool     `json:"is_active"`
}

type Transaction struct {
	TransactionID   string   `json:"transaction_id"`
	CustomerID      string   `json:"customer_id"`
	Timestamp       DateTime `json:"timestamp"`
	ProductCategory string   `json:"product_category"`
	ProductName     string   `json:"product_name,omitempty"`
	Quantity        int      `json:"quantity,omitempty"`
	OriginalAmount  float64  `json:"original_amount,omitempty"`
	DiscountApplied bool     `json:"discount_applied,omitempty"`
	DiscountAmount  float64  `json:"discount_amount,omitempty"`
	FinalAmount     float64  `json:"final_amount"`
	PaymentMethod   string   `json:"payment_method,omitempty"`
	Status          string   `json:"status"`
}

// IsCompleted reports whether the transaction participates in scoring.
func (t Transaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateTime is a local timestamp serialized as "YYYY-MM-DD HH:MM:SS".
type DateTime struct {
	time.Time
}

func ParseDateTime(s string) (DateTime, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.Local)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return DateTime{t}, nil
}

func (d DateTime) String() string {
	return d.Format(DateTimeLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
