// Package datagen produces synthetic customers and transactions with the
// distributions the scoring thresholds were tuned against.
package datagen

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"loyalty-agent/internal/models"
)

// HistoryDays is how far back registrations and transactions reach.
const HistoryDays = 730

var (
	segments       = []string{"Premium", "Regular", "Occasional", "New"}
	segmentWeights = []float64{0.10, 0.30, 0.40, 0.20}

	categories = []string{
		"Electronics", "Clothing", "Home & Garden", "Sports",
		"Beauty", "Books", "Food & Beverage", "Toys", "Automotive",
	}

	products = map[string][]string{
		"Electronics":     {"Laptop", "Smartphone", "Headphones", "Tablet", "Smart Watch"},
		"Clothing":        {"T-Shirt", "Jeans", "Jacket", "Shoes", "Dress"},
		"Home & Garden":   {"Furniture", "Decor", "Kitchen Appliance", "Bedding", "Tools"},
		"Sports":          {"Running Shoes", "Yoga Mat", "Dumbbell Set", "Bicycle", "Sports Wear"},
		"Beauty":          {"Skincare", "Makeup", "Hair Care", "Fragrance", "Nail Care"},
		"Books":           {"Fiction Novel", "Non-Fiction", "Educational", "Comics", "Magazine"},
		"Food & Beverage": {"Snacks", "Beverages", "Organic Foods", "Frozen Items", "Bakery"},
		"Toys":            {"Action Figures", "Board Games", "Puzzles", "Educational Toys", "Dolls"},
		"Automotive":      {"Car Accessories", "Motor Oil", "Tires", "Cleaning Products", "Tools"},
	}

	paymentMethods = []string{"Credit Card", "Debit Card", "PayPal", "Gift Card", "Cash"}
)

type intSpan struct{ lo, hi int }

type span struct{ lo, hi float64 }

// profile holds the per-segment ranges of a customer and their purchases.
type profile struct {
	tiers            []string
	registeredDays   intSpan
	purchases        intSpan
	orderValue       span
	frequency        span
	engagement       span
	lastPurchaseDays intSpan
	amount           span
	discountChance   float64
	discountRate     span
}

var profiles = map[string]profile{
	"Premium": {
		tiers:            []string{"Gold", "Silver"},
		registeredDays:   intSpan{366, 730},
		purchases:        intSpan{50, 150},
		orderValue:       span{500, 2000},
		frequency:        span{2, 4},
		engagement:       span{70, 100},
		lastPurchaseDays: intSpan{1, 180},
		amount:           span{300, 2500},
		discountChance:   0.75,
		discountRate:     span{0.1, 0.3},
	},
	"Regular": {
		tiers:            []string{"Silver", "Bronze"},
		registeredDays:   intSpan{366, 730},
		purchases:        intSpan{20, 60},
		orderValue:       span{200, 800},
		frequency:        span{1, 2.5},
		engagement:       span{50, 80},
		lastPurchaseDays: intSpan{1, 180},
		amount:           span{150, 1000},
		discountChance:   0.5,
		discountRate:     span{0.05, 0.2},
	},
	"Occasional": {
		tiers:            []string{"Bronze", "Standard"},
		registeredDays:   intSpan{91, 365},
		purchases:        intSpan{5, 25},
		orderValue:       span{100, 500},
		frequency:        span{0.3, 1.2},
		engagement:       span{20, 60},
		lastPurchaseDays: intSpan{30, 365},
		amount:           span{50, 600},
		discountChance:   0.25,
		discountRate:     span{0.05, 0.15},
	},
	"New": {
		tiers:            []string{"Standard"},
		registeredDays:   intSpan{1, 90},
		purchases:        intSpan{1, 5},
		orderValue:       span{50, 300},
		frequency:        span{0.1, 0.5},
		engagement:       span{0, 40},
		lastPurchaseDays: intSpan{30, 365},
		amount:           span{20, 400},
		discountChance:   0.25,
		discountRate:     span{0.05, 0.15},
	},
}

// Generator is deterministic for a given seed and reference time.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

func New(seed uint64, now time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed)), now: now}
}

// Generate returns n customers and m transactions spread over them.
func (g *Generator) Generate(n, m int) ([]models.Customer, []models.Transaction) {
	customers := make([]models.Customer, n)
	for i := range customers {
		customers[i] = g.customer(fmt.Sprintf("CUST%06d", i))
	}

	var transactions []models.Transaction
	if n > 0 {
		transactions = make([]models.Transaction, m)
		for i := range transactions {
			transactions[i] = g.transaction(fmt.Sprintf("TXN%08d", i), customers)
		}
	}
	return customers, transactions
}

func (g *Generator) customer(id string) models.Customer {
	segment := g.weighted(segments, segmentWeights)
	p := profiles[segment]

	purchases := g.intRange(p.purchases)
	orderValue := g.uniform(p.orderValue)
	engagement := g.uniform(p.engagement)
	lastPurchase := g.intRange(p.lastPurchaseDays)
	churn := round2(1 - engagement/100)

	return models.Customer{
		CustomerID:          id,
		Segment:             segment,
		LoyaltyTier:         p.tiers[g.rng.IntN(len(p.tiers))],
		RegistrationDate:    g.daysAgo(g.intRange(p.registeredDays)),
		LastPurchaseDate:    g.daysAgo(lastPurchase),
		TotalPurchases:      purchases,
		AvgOrderValue:       round2(orderValue),
		LifetimeValue:       round2(float64(purchases) * orderValue),
		PurchaseFrequency:   round2(g.uniform(p.frequency)),
		PreferredCategories: g.sample(categories, g.intRange(intSpan{2, 4})),
		EngagementScore:     round2(engagement),
		ChurnRisk:           &churn,
		ContactEmail:        strings.ToLower(id) + "@example.com",
		IsActive:            lastPurchase < 180,
	}
}

func (g *Generator) transaction(id string, customers []models.Customer) models.Transaction {
	c := customers[g.rng.IntN(len(customers))]
	p := profiles[c.Segment]

	// Recent purchases are more likely.
	days := int(g.rng.ExpFloat64() * 180)
	if days > HistoryDays {
		days = HistoryDays
	}
	at := g.now.AddDate(0, 0, -days)
	if at.Before(c.RegistrationDate.Time) {
		at = c.RegistrationDate.AddDate(0, 0, g.intRange(intSpan{1, 30}))
	}

	category := categories[g.rng.IntN(len(categories))]
	if g.rng.Float64() < 0.7 {
		category = c.PreferredCategories[g.rng.IntN(len(c.PreferredCategories))]
	}
	names := products[category]

	amount := g.uniform(p.amount)
	discounted := g.rng.Float64() < p.discountChance
	var discount float64
	if discounted {
		discount = round2(amount * g.uniform(p.discountRate))
	}

	status := models.StatusCompleted
	if g.rng.Float64() < 0.01 {
		status = models.StatusFailed
	}

	return models.Transaction{
		TransactionID:   id,
		CustomerID:      c.CustomerID,
		Timestamp:       models.DateTime{Time: at.Truncate(time.Second)},
		ProductCategory: category,
		ProductName:     names[g.rng.IntN(len(names))],
		Quantity:        g.intRange(intSpan{1, 5}),
		OriginalAmount:  round2(amount),
		DiscountApplied: discounted,
		DiscountAmount:  discount,
		FinalAmount:     round2(amount - discount),
		PaymentMethod:   paymentMethods[g.rng.IntN(len(paymentMethods))],
		Status:          status,
	}
}

func (g *Generator) daysAgo(n int) models.Date {
	d := g.now.AddDate(0, 0, -n)
	return models.NewDate(d.Year(), d.Month(), d.Day())
}

// intRange is inclusive on both ends.
func (g *Generator) intRange(r intSpan) int {
	return r.lo + g.rng.IntN(r.hi-r.lo+1)
}

func (g *Generator) uniform(r span) float64 {
	return r.lo + g.rng.Float64()*(r.hi-r.lo)
}

func (g *Generator) weighted(items []string, weights []float64) string {
	var total float64
	for _, w := range weights {
		total += w
	}
	x := g.rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return items[i]
		}
		x -= w
	}
	return items[len(items)-1]
}

func (g *Generator) sample(items []string, k int) []string {
	idx := g.rng.Perm(len(items))[:k]
	out := make([]string, k)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WriteFiles writes customers.json and transactions.json into dir.
func WriteFiles(dir string, customers []models.Customer, transactions []models.Transaction) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "customers.json"), customers); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "transactions.json"), transactions)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
