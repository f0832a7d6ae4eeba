// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loyalty-agent/internal/common/database"
	"loyalty-agent/internal/common/errors"
	"loyalty-agent/internal/models"

	"github.com/lib/pq"
)

const (
	customersQuery = `
		SELECT customer_id, segment, loyalty_tier, registration_date, last_purchase_date,
		       total_purchases, avg_order_value, lifetime_value, purchase_frequency,
		       preferred_categories, engagement_score, churn_risk, contact_email, is_active
		FROM customers
		ORDER BY customer_id`

	transactionsQuery = `
		SELECT transaction_id, customer_id, created_at, product_category, product_name,
		       quantity, original_amount, discount_applied, discount_amount,
		       final_amount, payment_method, status
		FROM transactions
		ORDER BY transaction_id`
)

// LoadPostgres reads the customers and transactions tables.
func LoadPostgres(ctx context.Context, pg *database.PostgresClient) (*Store, error) {
	const source = "postgres"

	customers, err := queryCustomers(ctx, pg)
	if err != nil {
		return nil, errors.NewDataLoadError(source, err)
	}
	transactions, err := queryTransactions(ctx, pg)
	if err != nil {
		return nil, errors.NewDataLoadError(source, err)
	}
	return New(source, customers, transactions)
}

func queryCustomers(ctx context.Context, pg *database.PostgresClient) ([]models.Customer, error) {
	rows, err := pg.Query(ctx, customersQuery)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var (
			c                  models.Customer
			registered, lastAt time.Time
			categories         pq.StringArray
			churnRisk          sql.NullFloat64
			email              sql.NullString
		)
		if err := rows.Scan(
			&c.CustomerID, &c.Segment, &c.LoyaltyTier, &registered, &lastAt,
			&c.TotalPurchases, &c.AvgOrderValue, &c.LifetimeValue, &c.PurchaseFrequency,
			&categories, &c.EngagementScore, &churnRisk, &email, &c.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.RegistrationDate = asDate(registered)
		c.LastPurchaseDate = asDate(lastAt)
		c.PreferredCategories = []string(categories)
		if churnRisk.Valid {
			v := churnRisk.Float64
			c.ChurnRisk = &v
		}
		c.ContactEmail = email.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func queryTransactions(ctx context.Context, pg *database.PostgresClient) ([]models.Transaction, error) {
	rows, err := pg.Query(ctx, transactionsQuery)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			t                        models.Transaction
			createdAt                time.Time
			productName, payment     sql.NullString
			quantity                 sql.NullInt64
			originalAmount, discount sql.NullFloat64
			discountApplied          sql.NullBool
		)
		if err := rows.Scan(
			&t.TransactionID, &t.CustomerID, &createdAt, &t.ProductCategory, &productName,
			&quantity, &originalAmount, &discountApplied, &discount,
			&t.FinalAmount, &payment, &t.Status,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Timestamp = models.DateTime{Time: createdAt.In(time.Local)}
		t.ProductName = productName.String
		t.Quantity = int(quantity.Int64)
		t.OriginalAmount = originalAmount.Float64
		t.DiscountApplied = discountApplied.Bool
		t.DiscountAmount = discount.Float64
		t.PaymentMethod = payment.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// asDate drops the time-of-day and pins the date to local midnight.
func asDate(t time.Time) models.Date {
	y, m, d := t.Date()
	return models.NewDate(y, m, d)
}
